package resilience

import "github.com/relabs-io/vantage/telemetry"

// Metric declarations for the retry plane and circuit breakers. Only
// declarations happen here — emission waits until telemetry.Initialize
// runs, and is a no-op forever if it never does.
func init() {
	telemetry.DeclareMetrics("circuit_breaker", telemetry.ModuleConfig{
		Metrics: []telemetry.MetricDefinition{
			{
				Name:   telemetry.MetricCircuitBreakerSuccess,
				Type:   "counter",
				Help:   "Circuit breaker call outcomes",
				Labels: []string{"name", "component", "state"},
			},
			{
				Name:    "circuit_breaker.duration_ms",
				Type:    "histogram",
				Help:    "Time spent inside breaker-guarded calls",
				Labels:  []string{"name", "status"},
				Unit:    "ms",
				Buckets: []float64{0.1, 1, 10, 100, 1000},
			},
			{
				Name:   telemetry.MetricCircuitBreakerFailure,
				Type:   "counter",
				Help:   "Failures counted toward tripping, by error type",
				Labels: []string{"name", "error_type"},
			},
			{
				Name:   telemetry.MetricCircuitBreakerOpen,
				Type:   "counter",
				Help:   "Breaker state transitions",
				Labels: []string{"name", "component", "from_state", "to_state"},
			},
			{
				Name:   "circuit_breaker.current_state",
				Type:   "gauge",
				Help:   "Breaker position (0=closed, 0.5=half-open, 1=open)",
				Labels: []string{"name"},
			},
			{
				Name:   telemetry.MetricCircuitBreakerRejected,
				Type:   "counter",
				Help:   "Calls refused by an open breaker",
				Labels: []string{"name", "component"},
			},
		},
	})

	telemetry.DeclareMetrics("retry", telemetry.ModuleConfig{
		Metrics: []telemetry.MetricDefinition{
			{
				Name:   "retry.attempts",
				Type:   "counter",
				Help:   "Retry attempts issued",
				Labels: []string{"operation", "attempt_number"},
			},
			{
				Name:   "retry.success",
				Type:   "counter",
				Help:   "Operations that succeeded within their attempt budget",
				Labels: []string{"operation", "final_attempt"},
			},
			{
				Name:   "retry.failures",
				Type:   "counter",
				Help:   "Operations that exhausted every attempt",
				Labels: []string{"operation", "error_type"},
			},
			{
				Name:    "retry.duration_ms",
				Type:    "histogram",
				Help:    "End-to-end duration including backoff sleeps",
				Labels:  []string{"operation", "status"},
				Unit:    "ms",
				Buckets: []float64{1, 10, 100, 1000, 10000},
			},
			{
				Name:    "retry.backoff_ms",
				Type:    "histogram",
				Help:    "Backoff slept between attempts",
				Labels:  []string{"operation", "strategy"},
				Unit:    "ms",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000},
			},
		},
	})
}
