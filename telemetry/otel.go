package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelProvider implements core.Telemetry over OpenTelemetry, exporting
// both traces and metrics via OTLP/HTTP with batched/periodic export.
type OTelProvider struct {
	tracer         trace.Tracer
	traceProvider  *sdktrace.TracerProvider
	metricProvider *sdkmetric.MeterProvider
	metrics        *MetricInstruments

	shutdownOnce sync.Once
	mu           sync.RWMutex
	shutdown     bool
}

// NewOTelProvider builds the full export pipeline against an OTLP/HTTP
// collector (typically port 4318; the gRPC port 4317 is rewritten for
// convenience). The global tracer/meter providers and the W3C
// TraceContext propagator are installed as a side effect.
func NewOTelProvider(serviceName string, endpoint string) (*OTelProvider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}
	if endpoint == "" {
		endpoint = "localhost:4318"
	}
	endpoint = strings.Replace(endpoint, ":4317", ":4318", 1)

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String("1.0.0"),
	)

	ctx := context.Background()

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter for %s: %w", endpoint, err)
	}

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return nil, fmt.Errorf("create metric exporter for %s: %w", endpoint, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			metricExporter,
			sdkmetric.WithInterval(30*time.Second),
		)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &OTelProvider{
		tracer:         tp.Tracer("vantage-telemetry"),
		traceProvider:  tp,
		metricProvider: mp,
		metrics:        NewMetricInstruments("vantage-telemetry"),
	}, nil
}

// StartSpan implements core.Telemetry. After Shutdown, spans are no-ops.
func (o *OTelProvider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	o.mu.RLock()
	down := o.shutdown
	o.mu.RUnlock()
	if down || o.tracer == nil {
		return ctx, &core.NoOpSpan{}
	}

	ctx, span := o.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric implements core.Telemetry. The instrument type is chosen
// from the metric name: names with a count/total/errors/success/calls/
// hits/misses prefix or suffix record as counters; everything else,
// durations included, records as a histogram.
func (o *OTelProvider) RecordMetric(name string, value float64, labels map[string]string) {
	o.mu.RLock()
	down := o.shutdown
	o.mu.RUnlock()
	if down || o.metrics == nil {
		return
	}

	ctx := context.Background()
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}

	switch {
	case nameSuggests(name, "count", "total", "errors", "success", "calls", "hits", "misses"):
		_ = o.metrics.RecordCounter(ctx, name, int64(value), metric.WithAttributes(attrs...))
	default:
		_ = o.metrics.RecordHistogram(ctx, name, value, metric.WithAttributes(attrs...))
	}
}

// nameSuggests matches a naming-convention hint as a prefix or suffix.
func nameSuggests(name string, hints ...string) bool {
	for _, hint := range hints {
		if strings.HasPrefix(name, hint) || strings.HasSuffix(name, hint) {
			return true
		}
	}
	return false
}

// Shutdown flushes exporters and stops the providers. Idempotent.
func (o *OTelProvider) Shutdown(ctx context.Context) error {
	var shutdownErr error
	o.shutdownOnce.Do(func() {
		o.mu.Lock()
		o.shutdown = true
		o.mu.Unlock()

		var errs []error
		if err := o.traceProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
		if err := o.metricProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric provider shutdown: %w", err))
		}
		if len(errs) > 0 {
			shutdownErr = fmt.Errorf("telemetry shutdown: %v", errs)
		}
	})
	return shutdownErr
}

// otelSpan adapts an OpenTelemetry span to core.Span.
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}
