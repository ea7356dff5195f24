package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	if err := m.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	exists, _ := m.Exists(ctx, "k")
	if !exists {
		t.Error("Exists = false after Set")
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := m.Get(ctx, "k"); got != "" {
		t.Errorf("Get after Delete = %q", got)
	}
}

func TestMemoryStoreMissingKeyIsEmptyNotError(t *testing.T) {
	m := NewMemoryStore()
	got, err := m.Get(context.Background(), "absent")
	if err != nil || got != "" {
		t.Errorf("missing key = %q, %v; want empty and nil", got, err)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	m.Set(ctx, "short", "v", 10*time.Millisecond)
	if got, _ := m.Get(ctx, "short"); got != "v" {
		t.Fatal("entry should be live before TTL")
	}

	time.Sleep(20 * time.Millisecond)
	if got, _ := m.Get(ctx, "short"); got != "" {
		t.Errorf("expired entry returned %q", got)
	}
	if exists, _ := m.Exists(ctx, "short"); exists {
		t.Error("Exists = true for expired entry")
	}
}

func TestMemoryStoreSweepRemovesExpired(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < sweepEvery-1; i++ {
		m.Set(ctx, "expired", "v", time.Nanosecond)
	}
	time.Sleep(time.Millisecond)
	// The write that crosses the sweep threshold clears the dead entry.
	m.Set(ctx, "live", "v", 0)

	if m.Len() != 1 {
		t.Errorf("Len after sweep = %d, want 1", m.Len())
	}
}

type recordingEmitter struct {
	counters map[string]int
}

func (r *recordingEmitter) Counter(name string, labels ...string) {
	if r.counters == nil {
		r.counters = map[string]int{}
	}
	r.counters[name]++
}
func (r *recordingEmitter) Gauge(name string, value float64, labels ...string)     {}
func (r *recordingEmitter) Histogram(name string, value float64, labels ...string) {}

func TestMemoryStoreEmitsHitMissMetrics(t *testing.T) {
	m := NewMemoryStore()
	emitter := &recordingEmitter{}
	m.SetMetrics(emitter)
	ctx := context.Background()

	m.Get(ctx, "absent")
	m.Set(ctx, "k", "v", 0)
	m.Get(ctx, "k")

	if emitter.counters["memory.cache.misses"] != 1 {
		t.Errorf("misses = %d", emitter.counters["memory.cache.misses"])
	}
	if emitter.counters["memory.cache.hits"] != 1 {
		t.Errorf("hits = %d", emitter.counters["memory.cache.hits"])
	}
}
