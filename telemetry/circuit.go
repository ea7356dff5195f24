package telemetry

import (
	"sync"
	"time"
)

// CircuitConfig configures the emission circuit breaker. A zero
// MaxFailures/RecoveryTime/HalfOpenMax picks the defaults (10 failures,
// 30s recovery, 5 successful probes).
type CircuitConfig struct {
	Enabled      bool
	MaxFailures  int
	RecoveryTime time.Duration
	HalfOpenMax  int
}

// TelemetryCircuitBreaker guards the metric-export path. When the
// backend keeps failing, it opens and Emit drops metrics locally instead
// of queueing against a dead collector; after RecoveryTime it goes
// half-open and admits emissions until HalfOpenMax of them have
// succeeded, which closes it; a failure while half-open reopens it.
//
// A nil *TelemetryCircuitBreaker is valid and always allows — callers
// never need to check whether the breaker is configured.
type TelemetryCircuitBreaker struct {
	config CircuitConfig

	mu          sync.Mutex
	state       string // "closed", "open", "half-open"
	failures    int
	probes      int // successful probes while half-open
	lastFailure time.Time
}

// NewTelemetryCircuitBreaker returns nil when config.Enabled is false.
func NewTelemetryCircuitBreaker(config CircuitConfig) *TelemetryCircuitBreaker {
	if !config.Enabled {
		return nil
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = 10
	}
	if config.RecoveryTime == 0 {
		config.RecoveryTime = 30 * time.Second
	}
	if config.HalfOpenMax == 0 {
		config.HalfOpenMax = 5
	}
	return &TelemetryCircuitBreaker{config: config, state: "closed"}
}

// Allow reports whether an emission may proceed, transitioning open ->
// half-open once the recovery window has elapsed.
func (cb *TelemetryCircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case "open":
		if time.Since(cb.lastFailure) > cb.config.RecoveryTime {
			cb.state = "half-open"
			cb.probes = 0
			GetLogger().Info("telemetry circuit breaker half-open", map[string]interface{}{
				"max_test_requests": cb.config.HalfOpenMax,
			})
			return true
		}
		return false
	case "half-open":
		return cb.probes < cb.config.HalfOpenMax
	default:
		return true
	}
}

// RecordSuccess counts a successful export. Enough successes in
// half-open close the circuit; a success in closed state clears the
// failure streak.
func (cb *TelemetryCircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case "half-open":
		cb.probes++
		if cb.probes >= cb.config.HalfOpenMax {
			cb.state = "closed"
			cb.failures = 0
			GetLogger().Info("telemetry circuit breaker closed, emission resumed", nil)
		}
	case "closed":
		cb.failures = 0
	}
}

// RecordFailure counts a failed export, opening the circuit when the
// consecutive-failure budget is spent. A failure in half-open reopens
// immediately.
func (cb *TelemetryCircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.state == "half-open" || cb.failures >= cb.config.MaxFailures {
		if cb.state != "open" {
			cb.state = "open"
			cb.probes = 0
			GetLogger().Warn("telemetry circuit breaker opened, metrics will be dropped", map[string]interface{}{
				"failures":      cb.failures,
				"recovery_time": cb.config.RecoveryTime.String(),
			})
		}
	}
}

// State returns "closed", "open", "half-open", or "disabled" for a nil
// breaker.
func (cb *TelemetryCircuitBreaker) State() string {
	if cb == nil {
		return "disabled"
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed and clears all counters.
func (cb *TelemetryCircuitBreaker) Reset() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = "closed"
	cb.failures = 0
	cb.probes = 0
	cb.lastFailure = time.Time{}
}
