package breaker

import (
	"sync"

	"github.com/kocayinsec/network-automation-sender/clock"
)

// Registry lazily creates and hands out one Breaker per origin key
// (scheme://host:port, see model.Origin), adapted from the teacher's
// RateLimiterRegistry keyed-lookup design generalized from a per-request
// key function to origin-only keying.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	cfg      Config
	clk      clock.Clock
}

// NewRegistry creates a Registry that constructs new breakers with cfg.
func NewRegistry(cfg Config, clk clock.Clock) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		cfg:      cfg,
		clk:      clk,
	}
}

// Get returns the Breaker for origin, creating it on first use.
func (r *Registry) Get(origin string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[origin]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[origin]; ok {
		return b
	}
	b = New(r.cfg, r.clk)
	r.breakers[origin] = b
	return b
}

// Snapshot returns a copy of every known origin's stats, for status
// reporting.
func (r *Registry) Snapshot() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Stats, len(r.breakers))
	for origin, b := range r.breakers {
		out[origin] = b.Stats()
	}
	return out
}
