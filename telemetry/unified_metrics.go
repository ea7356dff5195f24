// Package telemetry provides unified metrics infrastructure for Vantage's
// research-orchestration pipeline.
//
// This file defines the unified metrics contract that enables consistent
// observability across Vantage's components (providers, research, proactive,
// vector, notify, learning). Using these unified metrics ensures that
// dashboards and queries work regardless of which component emitted them.
//
// Usage:
//
//	// From the provider client
//	telemetry.RecordComponentRequest(telemetry.ComponentProviders, "research_query", durationMs, "success")
//
//	// From the research engine
//	telemetry.RecordComponentRequest(telemetry.ComponentResearch, "classify", durationMs, "success")
//
// Both emit the same metric (request.duration_ms, request.total) with a
// "component" label that identifies the source, enabling unified dashboard
// queries.
package telemetry

// Component label values for identifying metric sources.
// These are used as the "component" label value in unified metrics.
const (
	// ComponentProviders identifies metrics from the provider client/manager
	ComponentProviders = "providers"

	// ComponentResearch identifies metrics from the research engine
	ComponentResearch = "research"

	// ComponentProactive identifies metrics from the proactive task engine
	// and gap analyzer
	ComponentProactive = "proactive"

	// ComponentVector identifies metrics from the embedding cache and
	// hybrid search
	ComponentVector = "vector"

	// ComponentNotify identifies metrics from the notification plane
	ComponentNotify = "notify"

	// ComponentLearning identifies metrics from the learning feedback loop
	ComponentLearning = "learning"
)

// Unified metric names - use these constants to ensure consistent naming.
// All components should emit metrics using these names with appropriate
// component labels.
// Note: these are distinct from the component-specific metrics in metrics.go.
const (
	// Request metrics - for component-level request handling
	UnifiedRequestDuration = "request.duration_ms"
	UnifiedRequestTotal    = "request.total"
	UnifiedRequestErrors   = "request.errors"

	// AI provider request metrics
	UnifiedAIRequestDuration = "ai.request.duration_ms"
	UnifiedAIRequestTotal    = "ai.request.total"
	UnifiedAITokensUsed      = "ai.tokens.used"
)

// RecordComponentRequest records unified request metrics with proper
// component labeling. Call this at the end of any component-level
// operation (a research classify/execute cycle, a gap analysis pass, a
// proactive state transition, a notification dispatch).
//
// Parameters:
//   - component: Use one of the Component* constants
//   - operation: The type of operation (e.g., "research_query", "classify")
//   - durationMs: Operation duration in milliseconds
//   - status: "success" or "error"
func RecordComponentRequest(component string, operation string, durationMs float64, status string) {
	Histogram(UnifiedRequestDuration, durationMs,
		"component", component,
		"operation", operation,
		"status", status,
	)
	Counter(UnifiedRequestTotal,
		"component", component,
		"operation", operation,
		"status", status,
	)
}

// RecordComponentError records an operation error with error type
// classification.
//
// Parameters:
//   - component: Use one of the Component* constants
//   - operation: The type of operation that failed
//   - errorType: Classification of the error (e.g., "timeout", "validation", "rate_limit")
func RecordComponentError(component string, operation string, errorType string) {
	Counter(UnifiedRequestErrors,
		"component", component,
		"operation", operation,
		"error_type", errorType,
	)
}

// RecordAIRequest records AI provider request metrics.
// This should be called after each AI API call completes.
//
// Parameters:
//   - component: Use one of the Component* constants
//   - provider: AI provider name (e.g., "openai", "anthropic", "bedrock")
//   - durationMs: Request duration in milliseconds
//   - status: "success" or "error"
func RecordAIRequest(component string, provider string, durationMs float64, status string) {
	Histogram(UnifiedAIRequestDuration, durationMs,
		"component", component,
		"provider", provider,
		"status", status,
	)
	Counter(UnifiedAIRequestTotal,
		"component", component,
		"provider", provider,
		"status", status,
	)
}

// RecordAITokens records one token-usage event for tokenType: each call
// emits the value 1, and the number of tokens is not recorded.
//
// Parameters:
//   - component: Use one of the Component* constants
//   - provider: AI provider name
//   - tokenType: "input" or "output"
func RecordAITokens(component string, provider string, tokenType string) {
	Counter(UnifiedAITokensUsed,
		"component", component,
		"provider", provider,
		"type", tokenType,
	)
}

// init declares the unified metrics with appropriate types and buckets.
// This ensures metrics are pre-registered with the correct configuration.
func init() {
	DeclareMetrics("unified", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:    UnifiedRequestDuration,
				Type:    "histogram",
				Help:    "Component operation duration in milliseconds",
				Labels:  []string{"component", "operation", "status"},
				Unit:    "ms",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
			{
				Name:   UnifiedRequestTotal,
				Type:   "counter",
				Help:   "Total component operations processed",
				Labels: []string{"component", "operation", "status"},
			},
			{
				Name:   UnifiedRequestErrors,
				Type:   "counter",
				Help:   "Component operation errors by type",
				Labels: []string{"component", "operation", "error_type"},
			},
			{
				Name:    UnifiedAIRequestDuration,
				Type:    "histogram",
				Help:    "AI provider request duration in milliseconds",
				Labels:  []string{"component", "provider", "status"},
				Unit:    "ms",
				Buckets: []float64{100, 500, 1000, 2000, 5000, 10000},
			},
			{
				Name:   UnifiedAIRequestTotal,
				Type:   "counter",
				Help:   "Total AI provider requests",
				Labels: []string{"component", "provider", "status"},
			},
			{
				Name:   UnifiedAITokensUsed,
				Type:   "counter",
				Help:   "AI tokens used (input/output)",
				Labels: []string{"component", "provider", "type"},
			},
		},
	})
}
