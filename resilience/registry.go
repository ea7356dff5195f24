package resilience

import (
	"sync"

	"github.com/relabs-io/vantage/core"
)

// BreakerRegistry hands out one CircuitBreaker per service name, creating
// it lazily from a template config on first use. Every service gets its
// own independent breaker; there is no per-service config registration,
// so each one is built from whatever the template returns for its name.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	logger   core.Logger
	template func(name string) *CircuitBreakerConfig
}

// NewBreakerRegistry builds a registry. template, if nil, uses
// DefaultConfig() with Name set to the requested service name.
func NewBreakerRegistry(logger core.Logger, template func(name string) *CircuitBreakerConfig) *BreakerRegistry {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if template == nil {
		template = func(name string) *CircuitBreakerConfig {
			cfg := DefaultConfig()
			cfg.Name = name
			cfg.Logger = logger
			return cfg
		}
	}
	return &BreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		logger:   logger,
		template: template,
	}
}

// Get returns the breaker for service, creating it on first call.
func (r *BreakerRegistry) Get(service string) (*CircuitBreaker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[service]; ok {
		return cb, nil
	}

	cb, err := NewCircuitBreaker(r.template(service))
	if err != nil {
		return nil, err
	}
	r.breakers[service] = cb
	return cb, nil
}

// Snapshot returns a point-in-time name->state map across every breaker
// created so far, for dashboards and health checks.
func (r *BreakerRegistry) Snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.GetState()
	}
	return out
}
