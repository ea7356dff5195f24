package monitoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardAggregatorComposesSnapshot(t *testing.T) {
	collector := NewMetricsCollector(DefaultCollectorConfig(), nil)
	collector.Register("errors", func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"error.rate": 0.5}, nil
	})

	health := NewHealthChecker()
	health.Register("storage", func(ctx context.Context) (Status, string) { return StatusHealthy, "ok" })

	alerts := NewAlertManager(Thresholds{MaxErrorRate: 0.1}, 0)

	agg := NewDashboardAggregator(collector, health, alerts, []string{"error.rate"})
	snap := agg.Snapshot(context.Background())

	assert.Equal(t, 0.5, snap.Metrics["error.rate"])
	assert.Equal(t, StatusHealthy, snap.Health.Status)
	require.Len(t, snap.ActiveAlerts, 1)
	assert.Equal(t, "error.rate", snap.ActiveAlerts[0].Metric)
	require.Contains(t, snap.Series, "error.rate")
	assert.Len(t, snap.Series["error.rate"], 1)
}

func TestDashboardAggregatorWorksWithNilHealthAndAlerts(t *testing.T) {
	collector := NewMetricsCollector(DefaultCollectorConfig(), nil)
	collector.Register("noop", func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"noop": 1}, nil
	})

	agg := NewDashboardAggregator(collector, nil, nil, nil)
	snap := agg.Snapshot(context.Background())

	assert.Equal(t, StatusUnknown, snap.Health.Status)
	assert.Empty(t, snap.ActiveAlerts)
	assert.Empty(t, snap.Series)
}
