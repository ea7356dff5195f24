package telemetry

// This file contains metric declarations for Vantage's own modules.
// It's in the telemetry package to avoid import cycles.

func init() {
	// Provider client metrics (providers.Manager / providers.Adapter).
	// Per-request success/failure and latency are covered by the unified
	// ai.request.* metrics (see unified_metrics.go, RecordAIRequest) keyed
	// on ComponentProviders; this block adds the provider-specific ones.
	DeclareMetrics("providers", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "providers.selection.fallbacks",
				Type:   "counter",
				Help:   "Manager failovers to the next candidate provider",
				Labels: []string{"from_provider", "strategy"},
			},
			{
				Name:   "providers.rate_limited",
				Type:   "counter",
				Help:   "ResearchQuery calls rejected by a provider's rate limiter",
				Labels: []string{"provider", "dimension"},
			},
		},
	})

	// Research engine metrics (research.Engine)
	DeclareMetrics("research", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "research.requests.total",
				Type:   "counter",
				Help:   "Research requests classified and dispatched",
				Labels: []string{"research_type", "status"},
			},
			{
				Name:    "research.quality_score",
				Type:    "histogram",
				Help:    "Quality score assigned to a completed research result",
				Labels:  []string{"research_type"},
				Buckets: []float64{0.1, 0.25, 0.5, 0.75, 0.9, 1.0},
			},
			{
				Name:    "research.provider_call.duration_ms",
				Type:    "histogram",
				Help:    "Time spent waiting on the provider manager for one research request",
				Labels:  []string{"research_type"},
				Unit:    "ms",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
		},
	})

	// Proactive gap analysis and task engine metrics (proactive, proactive/gap)
	DeclareMetrics("proactive", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "proactive.gaps.detected",
				Type:   "counter",
				Help:   "Documentation gaps detected by the analyzer",
				Labels: []string{"gap_type"},
			},
			{
				Name:   "proactive.tasks.state_changes",
				Type:   "counter",
				Help:   "Task state machine transitions",
				Labels: []string{"from_state", "to_state"},
			},
		},
	})

	// Vector embedding cache and hybrid search metrics (vector)
	DeclareMetrics("vector", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "vector.cache.hits",
				Type:   "counter",
				Help:   "Embedding cache hits",
				Labels: []string{"memory_type"},
			},
			{
				Name:   "vector.cache.misses",
				Type:   "counter",
				Help:   "Embedding cache misses",
				Labels: []string{"memory_type"},
			},
			{
				Name:    "vector.search.duration_ms",
				Type:    "histogram",
				Help:    "Hybrid search latency in milliseconds",
				Labels:  []string{"fusion"},
				Unit:    "ms",
				Buckets: []float64{1, 10, 50, 100, 500},
			},
		},
	})

	// In-process key/value store metrics (core.MemoryStore), which backs
	// the scorer's classification cache.
	DeclareMetrics("memory", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "memory.operations",
				Type:   "counter",
				Help:   "Memory operations",
				Labels: []string{"operation", "memory_type"},
			},
			{
				Name:   "memory.size_bytes",
				Type:   "gauge",
				Help:   "Memory size in bytes",
				Labels: []string{"memory_type"},
			},
			{
				Name:   "memory.evictions",
				Type:   "counter",
				Help:   "Memory evictions",
				Labels: []string{"memory_type", "reason"},
			},
			{
				Name:   "memory.cache.hits",
				Type:   "counter",
				Help:   "Memory cache hits",
				Labels: []string{"memory_type"},
			},
			{
				Name:   "memory.cache.misses",
				Type:   "counter",
				Help:   "Memory cache misses",
				Labels: []string{"memory_type"},
			},
		},
	})
}
