package monitoring

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/relabs-io/vantage/telemetry"
)

// HealthChecker composes named component probes (storage, adaptation,
// pattern recognition, ...) into one overall status — the worst of every
// component's status.
type HealthChecker struct {
	mu     sync.Mutex
	probes map[string]Probe
	now    func() time.Time
}

// NewHealthChecker builds an empty HealthChecker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{probes: make(map[string]Probe), now: time.Now}
}

// Register adds a named probe, replacing any existing probe of that name.
func (h *HealthChecker) Register(name string, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = probe
}

// Check runs every registered probe and composes the overall status.
func (h *HealthChecker) Check(ctx context.Context) OverallHealth {
	h.mu.Lock()
	names := make([]string, 0, len(h.probes))
	probes := make(map[string]Probe, len(h.probes))
	for name, probe := range h.probes {
		names = append(names, name)
		probes[name] = probe
	}
	h.mu.Unlock()
	sort.Strings(names)

	now := h.now()
	overall := StatusUnknown
	components := make([]ComponentHealth, 0, len(names))
	for _, name := range names {
		status, detail := probes[name](ctx)
		components = append(components, ComponentHealth{Name: name, Status: status, Detail: detail, CheckedAt: now})
		overall = worst(overall, status)
	}
	if len(components) == 0 {
		overall = StatusUnknown
	}

	return OverallHealth{Status: overall, Components: components, CheckedAt: now}
}

// TelemetryProbe reports the health of the metrics emission pipeline itself
// (OTel export circuit state, drop/error counters) as a monitoring.Probe, so
// a dead or tripped telemetry backend shows up as a component in
// HealthChecker.Check instead of silently swallowing every metric.
func TelemetryProbe(ctx context.Context) (Status, string) {
	h := telemetry.GetHealth()
	if !h.Enabled || !h.Initialized {
		return StatusUnknown, "telemetry not initialized"
	}
	if h.CircuitState == "open" {
		return StatusCritical, fmt.Sprintf("emission circuit open after %d errors", h.Errors)
	}
	if h.Errors > 0 && h.MetricsEmitted == 0 {
		return StatusCritical, "emitting metrics is failing, nothing has been recorded"
	}
	if errorRate := float64(h.Errors) / float64(h.MetricsEmitted+1); errorRate > 0.1 {
		return StatusWarning, fmt.Sprintf("%.1f%% of metric emissions are failing", errorRate*100)
	}
	return StatusHealthy, fmt.Sprintf("%d metrics emitted, circuit %s", h.MetricsEmitted, h.CircuitState)
}
