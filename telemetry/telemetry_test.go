package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"
)

// Emission before Initialize must be a silent no-op: library code calls
// Counter/Histogram unconditionally and must never observe an error or
// panic from an unconfigured pipeline.
func TestEmitBeforeInitializeIsNoOp(t *testing.T) {
	Counter("uninitialized.counter", "k", "v")
	Histogram("uninitialized.histogram", 1.5)
	Gauge("uninitialized.gauge", 3)
	Duration("uninitialized.duration_ms", time.Now())

	if got := GetInternalMetrics(); got.Errors != 0 {
		t.Errorf("uninitialized emission recorded %d errors, want 0", got.Errors)
	}
}

func TestEmitBeforeInitializeConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Emit("concurrent.metric", float64(j), "worker", "a")
			}
		}()
	}
	wg.Wait()
}

func TestParseLabels(t *testing.T) {
	m := parseLabels("a", "1", "b", "2")
	if m["a"] != "1" || m["b"] != "2" {
		t.Errorf("parseLabels = %v", m)
	}

	// An odd trailing key has no value and is dropped.
	m = parseLabels("a", "1", "dangling")
	if _, ok := m["dangling"]; ok {
		t.Error("dangling key should be dropped")
	}
	if len(parseLabels()) != 0 {
		t.Error("no labels should give empty map")
	}
}

func TestGetHealthUninitialized(t *testing.T) {
	h := GetHealth()
	if h.Initialized {
		t.Error("health should report uninitialized before Initialize")
	}
	if h.Enabled {
		t.Error("health should report disabled before Initialize")
	}
}

func TestGetRegistryNilBeforeInitialize(t *testing.T) {
	if GetRegistry() != nil {
		t.Error("GetRegistry should be nil before Initialize")
	}
	if GetTelemetryProvider() != nil {
		t.Error("GetTelemetryProvider should be nil before Initialize")
	}
}

func TestShutdownWithoutInitialize(t *testing.T) {
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown before Initialize should be nil, got %v", err)
	}
}

func TestDeclareMetricsBeforeInitialize(t *testing.T) {
	// Must not panic or require the registry; declarations are replayed
	// later by Initialize.
	DeclareMetrics("test-module", ModuleConfig{
		Metrics: []MetricDefinition{
			{Name: "test.counter", Type: "counter"},
			{Name: "test.histogram", Type: "histogram", Buckets: []float64{1, 10}},
		},
	})
	if _, ok := declaredMetrics.Load("test-module"); !ok {
		t.Error("declaration was not stored")
	}
}

func TestUseProfileFallsBackToDevelopment(t *testing.T) {
	cfg := UseProfile(Profile("nonsense"))
	if cfg.Endpoint != Profiles[ProfileDevelopment].Endpoint {
		t.Errorf("unknown profile should fall back to development, got %+v", cfg)
	}
}

func TestProductionProfileLimitsProviderLabel(t *testing.T) {
	cfg := UseProfile(ProfileProduction)
	if cfg.CardinalityLimits["provider"] == 0 {
		t.Error("production profile must bound the provider label")
	}
	if !cfg.CircuitBreaker.Enabled {
		t.Error("production profile must enable the emission circuit breaker")
	}
}
