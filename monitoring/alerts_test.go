package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertManagerTriggersOnThresholdBreach(t *testing.T) {
	a := NewAlertManager(Thresholds{MaxErrorRate: 0.1}, 0)

	active := a.Evaluate(map[string]float64{"error.rate": 0.5})
	require.Len(t, active, 1)
	assert.Equal(t, "error.rate", active[0].Metric)
	assert.Equal(t, SeverityCritical, active[0].Severity)
}

func TestAlertManagerClearsOnRecovery(t *testing.T) {
	a := NewAlertManager(Thresholds{MaxErrorRate: 0.1}, 0)
	a.Evaluate(map[string]float64{"error.rate": 0.5})
	require.Len(t, a.Active(), 1)

	a.Evaluate(map[string]float64{"error.rate": 0.01})
	assert.Empty(t, a.Active())
}

func TestAlertManagerDoesNotDuplicateWhileActive(t *testing.T) {
	a := NewAlertManager(Thresholds{MaxErrorRate: 0.1}, 0)
	a.Evaluate(map[string]float64{"error.rate": 0.5})
	first := a.Active()[0].TriggeredAt

	a.Evaluate(map[string]float64{"error.rate": 0.6})
	second := a.Active()[0].TriggeredAt
	assert.Equal(t, first, second)
}

func TestAlertManagerRespectsMaxActiveBound(t *testing.T) {
	a := NewAlertManager(Thresholds{MaxErrorRate: 0.1, MaxMemoryMB: 100}, 1)
	a.Evaluate(map[string]float64{"error.rate": 0.5, "memory.mb": 500})
	assert.Len(t, a.Active(), 1)
}

func TestAlertManagerResolveRemovesAlert(t *testing.T) {
	a := NewAlertManager(Thresholds{MaxErrorRate: 0.1}, 0)
	a.Evaluate(map[string]float64{"error.rate": 0.5})
	a.Resolve("error.rate")
	assert.Empty(t, a.Active())
}

func TestAlertManagerIgnoresMissingMetrics(t *testing.T) {
	a := NewAlertManager(DefaultThresholds(), 0)
	active := a.Evaluate(map[string]float64{})
	assert.Empty(t, active)
}
