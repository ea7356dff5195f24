package telemetry

import (
	"context"

	"github.com/relabs-io/vantage/core"
)

// MetricsBridge implements core.MetricsEmitter (and, by the same narrow
// shape, resilience.ExecutorMetrics) on top of this package's OTel
// instruments. It is handed explicitly to constructors that accept a
// metrics sink — core.ProductionLogger.WithMetrics,
// resilience.Executor.SetMetrics — rather than registered into any
// package-level singleton; construction takes explicit dependencies.
type MetricsBridge struct {
	logger *TelemetryLogger
}

// NewMetricsBridge builds a bridge that forwards to this package's Emit/
// EmitWithContext functions, optionally debug-logging each emission
// through logger.
func NewMetricsBridge(logger *TelemetryLogger) *MetricsBridge {
	return &MetricsBridge{logger: logger}
}

// Counter implements core.MetricsEmitter.
func (f *MetricsBridge) Counter(name string, labels ...string) {
	if f.logger != nil && f.logger.debug {
		f.logger.Debug("metric emission", map[string]interface{}{
			"metric_name": name,
			"type":        "counter",
			"label_count": len(labels) / 2,
		})
	}
	Emit(name, 1.0, labels...)
}

// Gauge implements core.MetricsEmitter.
func (f *MetricsBridge) Gauge(name string, value float64, labels ...string) {
	if f.logger != nil && f.logger.debug {
		f.logger.Debug("metric emission", map[string]interface{}{
			"metric_name": name,
			"type":        "gauge",
			"value":       value,
			"label_count": len(labels) / 2,
		})
	}
	Emit(name, value, labels...)
}

// Histogram implements core.MetricsEmitter.
func (f *MetricsBridge) Histogram(name string, value float64, labels ...string) {
	if f.logger != nil && f.logger.debug {
		f.logger.Debug("metric emission", map[string]interface{}{
			"metric_name": name,
			"type":        "histogram",
			"value":       value,
			"label_count": len(labels) / 2,
		})
	}
	Emit(name, value, labels...)
}

// EmitWithContext forwards a baggage-aware emission, useful for callers
// that want request/trace correlation on the metric without going
// through the plain core.MetricsEmitter interface.
func (f *MetricsBridge) EmitWithContext(ctx context.Context, name string, value float64, labels ...string) {
	baggage := GetBaggage(ctx)

	if f.logger != nil && f.logger.debug {
		requestID := ""
		if baggage != nil {
			requestID = baggage["request_id"]
		}
		f.logger.Debug("context-aware metric emission", map[string]interface{}{
			"metric_name": name,
			"value":       value,
			"has_baggage": len(baggage) > 0,
			"request_id":  requestID,
			"label_count": len(labels) / 2,
		})
	}

	EmitWithContext(ctx, name, value, labels...)
}

// GetBaggage exposes this package's baggage extraction for callers that
// hold a MetricsBridge rather than importing telemetry directly.
func (f *MetricsBridge) GetBaggage(ctx context.Context) map[string]string {
	return GetBaggage(ctx)
}

var _ core.MetricsEmitter = (*MetricsBridge)(nil)
