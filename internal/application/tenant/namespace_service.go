package tenant

import (
	"context"
	"fmt"

	"github.com/engagesync/backend/internal/domain/tenant"
)

// NamespaceService handles namespace registry changes. Every successful
// mutation invalidates the resolver cache.
type NamespaceService struct {
	repo     tenant.NamespaceRepository
	resolver *NamespaceResolver
}

// NewNamespaceService creates a new namespace service
func NewNamespaceService(repo tenant.NamespaceRepository, resolver *NamespaceResolver) *NamespaceService {
	return &NamespaceService{
		repo:     repo,
		resolver: resolver,
	}
}

// CreateInput carries the fields for namespace creation
type CreateInput struct {
	Name     string
	Keywords []string
	TableRef string
}

// Create registers a new active namespace. Keywords overlapping any existing
// active namespace are rejected so campaign routing stays unambiguous.
func (s *NamespaceService) Create(ctx context.Context, input CreateInput) (*tenant.Namespace, error) {
	ns, err := tenant.NewNamespace(input.Name, input.Keywords, input.TableRef, false)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindByName(ctx, ns.Name); err == nil && existing != nil {
		return nil, tenant.ErrNamespaceAlreadyExists
	}

	if err := s.checkOverlap(ctx, ns.Keywords, ns.Name); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, ns); err != nil {
		return nil, err
	}
	s.resolver.Invalidate()
	return ns, nil
}

// UpdateInput carries the mutable namespace fields
type UpdateInput struct {
	Keywords []string
	TableRef string
	Active   *bool
}

// Update modifies an existing namespace, re-checking keyword overlap
func (s *NamespaceService) Update(ctx context.Context, name string, input UpdateInput) (*tenant.Namespace, error) {
	ns, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if len(input.Keywords) > 0 {
		normalized := tenant.NormalizeKeywords(input.Keywords)
		if len(normalized) == 0 {
			return nil, tenant.ErrNamespaceNoKeywords
		}
		if err := s.checkOverlap(ctx, normalized, ns.Name); err != nil {
			return nil, err
		}
		ns.Keywords = normalized
	}
	if input.TableRef != "" {
		ns.TableRef = input.TableRef
	}
	if input.Active != nil {
		ns.Active = *input.Active
	}

	if err := s.repo.Update(ctx, ns); err != nil {
		return nil, err
	}
	s.resolver.Invalidate()
	return ns, nil
}

// List returns all active namespaces, provisioning the default lazily
func (s *NamespaceService) List(ctx context.Context) ([]tenant.Namespace, error) {
	return s.resolver.ActiveNamespaces(ctx)
}

// checkOverlap rejects keywords already registered by another active namespace
func (s *NamespaceService) checkOverlap(ctx context.Context, keywords []string, selfName string) error {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	for i := range active {
		other := &active[i]
		if other.Name == selfName {
			continue
		}
		if kw := tenant.OverlappingKeyword(keywords, other); kw != "" {
			return fmt.Errorf("%w: %q is used by namespace %q", tenant.ErrKeywordOverlap, kw, other.Name)
		}
	}
	return nil
}
