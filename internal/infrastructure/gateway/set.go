package gateway

import (
	"fmt"

	syncdomain "github.com/engagesync/backend/internal/domain/sync"
)

// Set holds one gateway per configured platform. It is built once at process
// start and passed by reference into the orchestrator; gateways are never
// looked up through globals.
type Set struct {
	gateways map[syncdomain.PlatformCode]*Gateway
}

// NewSet creates an empty gateway set
func NewSet() *Set {
	return &Set{gateways: make(map[syncdomain.PlatformCode]*Gateway)}
}

// Add registers a gateway for its platform, replacing any previous one
func (s *Set) Add(g *Gateway) {
	s.gateways[g.Platform()] = g
}

// Get returns the gateway for a platform
func (s *Set) Get(code syncdomain.PlatformCode) (*Gateway, error) {
	g, ok := s.gateways[code]
	if !ok {
		return nil, fmt.Errorf("%w: no gateway for %s", syncdomain.ErrPlatformNotConfigured, code)
	}
	return g, nil
}

// Stats returns snapshots for every registered gateway
func (s *Set) Stats() []Stats {
	out := make([]Stats, 0, len(s.gateways))
	for _, g := range s.gateways {
		out = append(out, g.Stats())
	}
	return out
}
