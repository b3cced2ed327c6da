package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/engagesync/backend/internal/domain/tenant"
)

// DefaultCacheTTL is the namespace cache TTL used when none is configured
const DefaultCacheTTL = 5 * time.Minute

// NamespaceResolver maps upstream campaign names to exactly one tenant
// namespace. Upstream platforms never learn about tenancy; routing happens
// here, after fetch.
//
// The active namespace set is cached in memory with a TTL; stale reads within
// the TTL are acceptable and Invalidate forces a reload on namespace changes.
// Resolve never returns nil: when no namespace matches, the default namespace
// wins, and when no default exists one is created lazily.
type NamespaceResolver struct {
	repo   tenant.NamespaceRepository
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.Mutex
	cached    []tenant.Namespace
	expiresAt time.Time

	// defaultMu serializes lazy default-namespace creation so concurrent
	// sync runs converge on a single default
	defaultMu sync.Mutex
}

// NewNamespaceResolver creates a resolver backed by the namespace registry
func NewNamespaceResolver(repo tenant.NamespaceRepository, ttl time.Duration, logger *zap.Logger) *NamespaceResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NamespaceResolver{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
	}
}

// Resolve returns the namespace an upstream campaign name routes to.
// An empty name routes to the default namespace. Otherwise non-default
// namespaces are scanned in creation order and the first case-insensitive
// keyword substring match wins; no match falls back to the default.
// Overlapping keywords are rejected at registration time, so first-match is
// deterministic rather than load-order-dependent.
func (r *NamespaceResolver) Resolve(ctx context.Context, campaignName string) (*tenant.Namespace, error) {
	namespaces, err := r.activeSet(ctx)
	if err != nil {
		return nil, err
	}

	if campaignName != "" {
		for i := range namespaces {
			ns := &namespaces[i]
			if ns.IsDefault {
				continue
			}
			if ns.Matches(campaignName) {
				return ns, nil
			}
		}
	}

	for i := range namespaces {
		if namespaces[i].IsDefault {
			return &namespaces[i], nil
		}
	}

	// No default namespace exists yet; the cached set is stale by definition
	return r.createDefault(ctx)
}

// ActiveNamespaces returns the cached active namespace set, creating the
// default namespace when the set has no default
func (r *NamespaceResolver) ActiveNamespaces(ctx context.Context) ([]tenant.Namespace, error) {
	namespaces, err := r.activeSet(ctx)
	if err != nil {
		return nil, err
	}
	for i := range namespaces {
		if namespaces[i].IsDefault {
			return namespaces, nil
		}
	}
	if _, err := r.createDefault(ctx); err != nil {
		return nil, err
	}
	return r.activeSet(ctx)
}

// Invalidate drops the cached namespace set. Called on namespace create or
// update so routing picks up changes before the TTL expires.
func (r *NamespaceResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	r.expiresAt = time.Time{}
}

// activeSet returns the active namespaces, reloading from the registry when
// the cache expired
func (r *NamespaceResolver) activeSet(ctx context.Context) ([]tenant.Namespace, error) {
	r.mu.Lock()
	if r.cached != nil && time.Now().Before(r.expiresAt) {
		cached := r.cached
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	namespaces, err := r.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolver: listing active namespaces: %w", err)
	}

	r.mu.Lock()
	r.cached = namespaces
	r.expiresAt = time.Now().Add(r.ttl)
	r.mu.Unlock()

	return namespaces, nil
}

// createDefault lazily provisions the default namespace. Creation is
// serialized, and the registry is re-read after the lock is acquired: a run
// that waited here picks up the default a concurrent run just created instead
// of inserting a second one. A creation failure is a configuration error and
// fatal for the calling sync run.
func (r *NamespaceResolver) createDefault(ctx context.Context) (*tenant.Namespace, error) {
	r.defaultMu.Lock()
	defer r.defaultMu.Unlock()

	r.Invalidate()
	if ns, err := r.findDefault(ctx); err != nil {
		return nil, err
	} else if ns != nil {
		return ns, nil
	}

	ns, err := tenant.NewDefaultNamespace()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tenant.ErrDefaultCreateFailed, err)
	}
	if err := r.repo.Create(ctx, ns); err != nil {
		// Another process won the insert; its default is the one to use
		if errors.Is(err, tenant.ErrDefaultConflict) || errors.Is(err, tenant.ErrNamespaceAlreadyExists) {
			r.Invalidate()
			if existing, findErr := r.findDefault(ctx); findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("%w: %v", tenant.ErrDefaultCreateFailed, err)
	}

	r.logger.Info("created default namespace lazily",
		zap.String("namespace", ns.Name),
	)
	r.Invalidate()
	return ns, nil
}

// findDefault returns the active default namespace, or nil when none exists
func (r *NamespaceResolver) findDefault(ctx context.Context) (*tenant.Namespace, error) {
	namespaces, err := r.activeSet(ctx)
	if err != nil {
		return nil, err
	}
	for i := range namespaces {
		if namespaces[i].IsDefault {
			return &namespaces[i], nil
		}
	}
	return nil, nil
}
