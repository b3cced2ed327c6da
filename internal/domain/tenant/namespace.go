package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Namespace Errors
// ---------------------------------------------------------------------------

var (
	ErrNamespaceNotFound      = errors.New("tenant: namespace not found")
	ErrNamespaceInvalidName   = errors.New("tenant: namespace name is required")
	ErrNamespaceNoKeywords    = errors.New("tenant: namespace requires at least one keyword")
	ErrNamespaceAlreadyExists = errors.New("tenant: namespace already exists")
	ErrKeywordOverlap         = errors.New("tenant: keyword already registered by another namespace")
	ErrDefaultConflict        = errors.New("tenant: exactly one active namespace may be the default")
	ErrDefaultCreateFailed    = errors.New("tenant: default namespace creation failed")
)

// DefaultKeyword marks the namespace that receives campaigns no keyword matches
const DefaultKeyword = "default"

// ---------------------------------------------------------------------------
// Namespace Entity
// ---------------------------------------------------------------------------

// Namespace is a logical partition of engagement data for one customer
// sharing the same physical store. Campaign names are routed to namespaces
// by ordered, case-insensitive keyword matching.
type Namespace struct {
	// ID is the namespace identifier
	ID uuid.UUID
	// Name is the unique namespace name
	Name string
	// Keywords is the ordered set of routing keywords, stored lowercase
	Keywords []string
	// TableRef is the logical table reference events for this namespace land in
	TableRef string
	// IsDefault marks the single fallback namespace
	IsDefault bool
	// Active controls whether the namespace participates in routing and sync
	Active bool
	// CreatedAt is when the namespace was created
	CreatedAt time.Time
	// UpdatedAt is when the namespace was last modified
	UpdatedAt time.Time
}

// NewNamespace creates a namespace with normalized keywords
func NewNamespace(name string, keywords []string, tableRef string, isDefault bool) (*Namespace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNamespaceInvalidName
	}
	normalized := NormalizeKeywords(keywords)
	if len(normalized) == 0 {
		return nil, ErrNamespaceNoKeywords
	}
	if tableRef == "" {
		tableRef = "engagement_events"
	}
	now := time.Now()
	return &Namespace{
		ID:        uuid.New(),
		Name:      name,
		Keywords:  normalized,
		TableRef:  tableRef,
		IsDefault: isDefault,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewDefaultNamespace creates the lazily-provisioned fallback namespace.
// The generated name is unique so repeated lazy creation attempts cannot clash.
func NewDefaultNamespace() (*Namespace, error) {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return NewNamespace(fmt.Sprintf("default-%s", suffix), []string{DefaultKeyword}, "", true)
}

// Matches returns true if the campaign name contains any of the namespace's
// keywords, case-insensitively
func (n *Namespace) Matches(campaignName string) bool {
	if campaignName == "" {
		return false
	}
	lowered := strings.ToLower(campaignName)
	for _, kw := range n.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// HasKeyword returns true if the namespace carries the given keyword
func (n *Namespace) HasKeyword(keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	for _, kw := range n.Keywords {
		if kw == keyword {
			return true
		}
	}
	return false
}

// Validate checks entity invariants
func (n *Namespace) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return ErrNamespaceInvalidName
	}
	if len(n.Keywords) == 0 {
		return ErrNamespaceNoKeywords
	}
	return nil
}

// NormalizeKeywords lowercases, trims and deduplicates keywords while
// preserving their order. Empty keywords are dropped.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// OverlappingKeyword returns the first keyword of candidate that is already
// registered by other, or "" when the keyword sets are disjoint. Registration
// of overlapping keywords is rejected so routing never depends on load order.
func OverlappingKeyword(candidate []string, other *Namespace) string {
	for _, kw := range candidate {
		if other.HasKeyword(kw) {
			return kw
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// NamespaceRepository Interface
// ---------------------------------------------------------------------------

// NamespaceRepository is the namespace registry collaborator
type NamespaceRepository interface {
	// ListActive returns all active namespaces in creation order
	ListActive(ctx context.Context) ([]Namespace, error)

	// FindByName retrieves a namespace by its unique name
	FindByName(ctx context.Context, name string) (*Namespace, error)

	// Create persists a new namespace
	Create(ctx context.Context, ns *Namespace) error

	// Update persists changes to an existing namespace
	Update(ctx context.Context, ns *Namespace) error
}
