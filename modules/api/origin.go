package api

import (
	"sync"

	"github.com/example/realtime-relay/config"
)

// OriginPolicy decides which browser origins may open a WebSocket. It can be
// replaced at runtime when the config file changes.
type OriginPolicy struct {
	mu       sync.RWMutex
	allowAll bool
	allowed  map[string]struct{}
}

// NewOriginPolicy creates a policy for the given origins. "*" allows any origin.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{}
	p.Set(origins)
	return p
}

// Set replaces the allowed origins. Entries that do not parse are skipped.
func (p *OriginPolicy) Set(origins []string) {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, origin := range origins {
		normalized, err := config.NormalizeOrigin(origin)
		if err != nil || normalized == "" {
			continue
		}
		if normalized == "*" {
			allowAll = true
			continue
		}
		allowed[normalized] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowAll = allowAll
	p.allowed = allowed
}

// Allowed reports whether origin may connect. Requests without an Origin
// header come from non-browser clients and are allowed.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	normalized, err := config.NormalizeOrigin(origin)
	if err != nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.allowAll {
		return true
	}
	_, ok := p.allowed[normalized]
	return ok
}

// AllowAll reports whether the wildcard origin is configured.
func (p *OriginPolicy) AllowAll() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.allowAll
}
