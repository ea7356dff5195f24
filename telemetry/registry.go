package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-io/vantage/core"
)

var (
	// globalRegistry is written once by Initialize and read lock-free on
	// every Emit.
	globalRegistry atomic.Pointer[Registry]

	// initOnce makes Initialize idempotent; only the first call wins.
	initOnce sync.Once

	// declaredMetrics collects DeclareMetrics calls made from package
	// init() functions before Initialize runs.
	declaredMetrics sync.Map // map[string]ModuleConfig

	telemetryErrors  atomic.Int64
	telemetryDropped atomic.Int64
)

// ModuleConfig is one module's metric declarations.
type ModuleConfig struct {
	Metrics []MetricDefinition
}

// MetricDefinition names a metric and its shape up front so dashboards
// can be built against declarations rather than whatever happened to be
// emitted.
type MetricDefinition struct {
	Name    string
	Type    string // counter, histogram, gauge, updowncounter
	Help    string
	Labels  []string
	Unit    string
	Buckets []float64
}

// Registry wires the emission pipeline together: OTel provider,
// cardinality limiter, circuit breaker, and the package logger.
type Registry struct {
	config   Config
	provider *OTelProvider
	limiter  *CardinalityLimiter
	circuit  *TelemetryCircuitBreaker
	metrics  *MetricInstruments
	logger   *TelemetryLogger

	emitted   atomic.Int64
	startTime time.Time
	lastError atomic.Value // string

	errorLimiter *RateLimiter
}

// DeclareMetrics registers a module's metric definitions. Safe to call
// from init() before Initialize; declarations are replayed when the
// registry comes up.
func DeclareMetrics(module string, config ModuleConfig) {
	declaredMetrics.Store(module, config)
}

// Initialize activates the telemetry system. Call once from main before
// emitting. Emission before (or without) Initialize is a silent no-op,
// so a failed Initialize degrades observability, never availability.
func Initialize(config Config) error {
	var initErr error
	initOnce.Do(func() {
		logger := NewTelemetryLogger(config.ServiceName)

		registry, err := newRegistry(config)
		if err != nil {
			initErr = err
			logger.Error("telemetry initialization failed", map[string]interface{}{
				"error":    err.Error(),
				"endpoint": config.Endpoint,
			})
			return
		}
		registry.logger = logger

		declared := 0
		declaredMetrics.Range(func(key, value interface{}) bool {
			registry.registerModule(value.(ModuleConfig))
			declared++
			return true
		})

		globalRegistry.Store(registry)
		logger.EnableMetrics()

		logger.Info("telemetry initialized", map[string]interface{}{
			"service_name":     config.ServiceName,
			"endpoint":         config.Endpoint,
			"declared_modules": declared,
			"circuit_enabled":  registry.circuit != nil,
		})
	})
	return initErr
}

func newRegistry(config Config) (*Registry, error) {
	startTime := time.Now()

	if config.Endpoint == "" {
		config.Endpoint = "localhost:4318"
	}
	if config.ServiceName == "" {
		config.ServiceName = "vantage"
	}
	if config.CardinalityLimit == 0 {
		config.CardinalityLimit = 10000
	}
	limits := config.CardinalityLimits
	if limits == nil {
		limits = map[string]int{
			"provider":      20,
			"research_type": 10,
			"gap_type":      10,
			"error_type":    50,
		}
	}

	provider, err := NewOTelProvider(config.ServiceName, config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("create OTel provider: %w", err)
	}

	r := &Registry{
		config:       config,
		provider:     provider,
		limiter:      NewCardinalityLimiter(limits),
		circuit:      NewTelemetryCircuitBreaker(config.CircuitBreaker),
		metrics:      provider.metrics,
		startTime:    startTime,
		errorLimiter: NewRateLimiter(1 * time.Second),
	}
	r.lastError.Store("")
	return r, nil
}

// registerModule pre-creates counter and histogram instruments so the
// first real emission does not pay registration cost.
func (r *Registry) registerModule(config ModuleConfig) {
	ctx := context.Background()
	for _, m := range config.Metrics {
		switch m.Type {
		case "counter":
			_ = r.metrics.RecordCounter(ctx, m.Name, 0)
		case "histogram":
			_ = r.metrics.RecordHistogram(ctx, m.Name, 0)
		}
	}
}

func (r *Registry) emit(name string, value float64, labels map[string]string) error {
	if r.circuit != nil && !r.circuit.Allow() {
		telemetryDropped.Add(1)
		return fmt.Errorf("telemetry circuit breaker open")
	}

	if r.limiter != nil {
		for key, val := range labels {
			if limited := r.limiter.CheckAndLimit(name, key, val); limited != val {
				labels[key] = limited
			}
		}
	}

	if r.provider != nil {
		r.provider.RecordMetric(name, value, labels)
		r.emitted.Add(1)
		r.circuit.RecordSuccess()
	}
	return nil
}

// Emit records one metric observation. No-op when uninitialized.
func Emit(name string, value float64, labels ...string) {
	r := globalRegistry.Load()
	if r == nil {
		return
	}

	if err := r.emit(name, value, parseLabels(labels...)); err != nil {
		telemetryErrors.Add(1)
		r.lastError.Store(err.Error())
		if r.logger != nil && r.errorLimiter.Allow() {
			r.logger.Error("failed to emit metric", map[string]interface{}{
				"metric": name,
				"error":  err.Error(),
			})
		}
		r.circuit.RecordFailure()
	}
}

// EmitWithContext emits with the context's baggage merged into the
// label set, correlating the metric with the surrounding trace.
func EmitWithContext(ctx context.Context, name string, value float64, labels ...string) {
	Emit(name, value, appendBaggageToLabels(ctx, labels)...)
}

func parseLabels(labels ...string) map[string]string {
	m := make(map[string]string, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		m[labels[i]] = labels[i+1]
	}
	return m
}

// Shutdown flushes and stops the pipeline. Emission afterwards reverts
// to no-op.
func Shutdown(ctx context.Context) error {
	r := globalRegistry.Load()
	if r == nil {
		return nil
	}

	if r.limiter != nil {
		r.limiter.Stop()
	}

	var err error
	if r.provider != nil {
		err = r.provider.Shutdown(ctx)
	}

	globalRegistry.Store(nil)

	if r.logger != nil {
		r.logger.Info("telemetry shut down", map[string]interface{}{
			"total_emitted": r.emitted.Load(),
			"uptime_ms":     time.Since(r.startTime).Milliseconds(),
		})
	}
	return err
}

// GetRegistry returns the active registry, nil before Initialize or
// after Shutdown.
func GetRegistry() *Registry {
	return globalRegistry.Load()
}

// GetTelemetryProvider exposes the OTel provider as core.Telemetry for
// components that create spans. Nil when uninitialized.
func GetTelemetryProvider() core.Telemetry {
	r := globalRegistry.Load()
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider
}
