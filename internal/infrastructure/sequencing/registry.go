package sequencing

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/engagesync/backend/internal/domain/sync"
)

// Registry holds the configured platform adapters. It is built once at
// process start from the platforms enabled in configuration and implements
// the domain PlatformRegistry port.
type Registry struct {
	adapters map[sync.PlatformCode]sync.SequencingPlatform
}

// NewRegistry creates a registry from the given adapters
func NewRegistry(adapters ...sync.SequencingPlatform) *Registry {
	r := &Registry{adapters: make(map[sync.PlatformCode]sync.SequencingPlatform, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.PlatformCode()] = a
	}
	return r
}

// GetPlatform returns the adapter for the specified code
func (r *Registry) GetPlatform(code sync.PlatformCode) (sync.SequencingPlatform, error) {
	if !code.IsValid() {
		return nil, fmt.Errorf("%w: %s", sync.ErrPlatformUnknown, code)
	}
	adapter, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sync.ErrPlatformNotConfigured, code)
	}
	return adapter, nil
}

// ListPlatforms returns all registered platform adapters in stable order
func (r *Registry) ListPlatforms() []sync.SequencingPlatform {
	out := make([]sync.SequencingPlatform, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PlatformCode() < out[j].PlatformCode()
	})
	return out
}

// mapHTTPStatus translates an upstream HTTP status into the domain error
// taxonomy. 429 carries the rate-limit signal the gateway retries on.
func mapHTTPStatus(platform string, status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s HTTP 429", sync.ErrPlatformRateLimited, platform)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s HTTP %d", sync.ErrPlatformAuthFailed, platform, status)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s HTTP %d", sync.ErrPlatformUnavailable, platform, status)
	case status >= http.StatusBadRequest:
		return fmt.Errorf("%w: %s HTTP %d", sync.ErrPlatformRequestFailed, platform, status)
	default:
		return nil
	}
}
