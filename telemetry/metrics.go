package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MetricInstruments lazily creates and caches OpenTelemetry instruments
// by name, so hot-path emission never re-registers an instrument.
type MetricInstruments struct {
	meter metric.Meter

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

func NewMetricInstruments(meterName string) *MetricInstruments {
	return &MetricInstruments{
		meter:          otel.Meter(meterName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// RecordCounter adds value to the named counter, creating it on first
// use.
func (m *MetricInstruments) RecordCounter(ctx context.Context, name string, value int64, opts ...metric.AddOption) error {
	m.mu.RLock()
	counter, ok := m.counters[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if counter, ok = m.counters[name]; !ok {
			var err error
			counter, err = m.meter.Int64Counter(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("create counter %s: %w", name, err)
			}
			m.counters[name] = counter
		}
		m.mu.Unlock()
	}

	counter.Add(ctx, value, opts...)
	return nil
}

// RecordHistogram records one observation on the named histogram.
func (m *MetricInstruments) RecordHistogram(ctx context.Context, name string, value float64, opts ...metric.RecordOption) error {
	m.mu.RLock()
	histogram, ok := m.histograms[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if histogram, ok = m.histograms[name]; !ok {
			var err error
			histogram, err = m.meter.Float64Histogram(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("create histogram %s: %w", name, err)
			}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.Record(ctx, value, opts...)
	return nil
}

// Provider client metric constants (providers.Manager / providers.Adapter)
const (
	MetricProviderSelectionFallbacks = "providers.selection.fallbacks"
	MetricProviderRateLimited        = "providers.rate_limited"
)

// Research engine metric constants (research.Engine)
const (
	MetricResearchRequestsTotal = "research.requests.total"
	MetricResearchQualityScore  = "research.quality_score"
)

// Proactive task engine and gap analyzer metric constants
const (
	MetricProactiveGapsDetected     = "proactive.gaps.detected"
	MetricProactiveTaskStateChanges = "proactive.tasks.state_changes"
)

// Vector embedding cache and hybrid search metric constants
const (
	MetricVectorCacheHits      = "vector.cache.hits"
	MetricVectorCacheMisses    = "vector.cache.misses"
	MetricVectorSearchDuration = "vector.search.duration_ms"
)

// Circuit breaker metrics, shared by every resilience-wrapped component
const (
	MetricCircuitBreakerSuccess  = "circuit_breaker.calls"
	MetricCircuitBreakerFailure  = "circuit_breaker.failures"
	MetricCircuitBreakerOpen     = "circuit_breaker.state_changes"
	MetricCircuitBreakerRejected = "circuit_breaker.rejected"
)
