package telemetry

import "time"

// Health is a point-in-time report on the emission pipeline itself,
// consumed by monitoring's composite health check.
type Health struct {
	Enabled         bool   `json:"enabled"`
	MetricsEmitted  int64  `json:"metrics_emitted"`
	MetricsDropped  int64  `json:"metrics_dropped"`
	Errors          int64  `json:"errors"`
	LastError       string `json:"last_error,omitempty"`
	CircuitState    string `json:"circuit_state"`
	Uptime          string `json:"uptime"`
	CardinalityUsed int    `json:"cardinality_used"`
	CardinalityMax  int    `json:"cardinality_max"`
	Initialized     bool   `json:"initialized"`
}

// GetHealth reports the telemetry system's own health.
func GetHealth() Health {
	r := globalRegistry.Load()
	if r == nil {
		return Health{}
	}

	lastErr := ""
	if v, ok := r.lastError.Load().(string); ok {
		lastErr = v
	}

	h := Health{
		Enabled:        r.config.Enabled,
		MetricsEmitted: r.emitted.Load(),
		MetricsDropped: telemetryDropped.Load(),
		Errors:         telemetryErrors.Load(),
		LastError:      lastErr,
		CircuitState:   r.circuit.State(),
		Uptime:         time.Since(r.startTime).String(),
		Initialized:    true,
	}
	if r.limiter != nil {
		h.CardinalityUsed = r.limiter.CurrentCardinality()
		h.CardinalityMax = r.limiter.MaxCardinality()
	}
	return h
}

// InternalMetrics is the raw counter view of Health, for tests and
// self-monitoring.
type InternalMetrics struct {
	Errors  int64 `json:"errors"`
	Dropped int64 `json:"dropped"`
	Emitted int64 `json:"emitted"`
}

func GetInternalMetrics() InternalMetrics {
	emitted := int64(0)
	if r := globalRegistry.Load(); r != nil {
		emitted = r.emitted.Load()
	}
	return InternalMetrics{
		Errors:  telemetryErrors.Load(),
		Dropped: telemetryDropped.Load(),
		Emitted: emitted,
	}
}

// ResetInternalMetrics zeroes the counters; test helper.
func ResetInternalMetrics() {
	telemetryErrors.Store(0)
	telemetryDropped.Store(0)
	if r := globalRegistry.Load(); r != nil {
		r.emitted.Store(0)
	}
}
