package monitoring

import (
	"context"
	"time"
)

// DashboardSnapshot is a point-in-time view composed from the collector,
// health checker, and alert manager: the shape a dashboard UI or status
// endpoint renders directly.
type DashboardSnapshot struct {
	GeneratedAt  time.Time
	Metrics      map[string]float64
	Health       OverallHealth
	ActiveAlerts []Alert
	Series       map[string][]Sample
}

// DashboardAggregator composes a MetricsCollector, HealthChecker, and
// AlertManager into one snapshot call. It owns none of their lifecycles —
// callers Start/Stop the collector separately.
type DashboardAggregator struct {
	collector  *MetricsCollector
	health     *HealthChecker
	alerts     *AlertManager
	seriesKeys []string
	now        func() time.Time
}

// NewDashboardAggregator builds an aggregator. seriesKeys selects which
// metric series are embedded in each snapshot; an empty slice omits series
// entirely (useful when the caller only wants the latest values).
func NewDashboardAggregator(collector *MetricsCollector, health *HealthChecker, alerts *AlertManager, seriesKeys []string) *DashboardAggregator {
	return &DashboardAggregator{
		collector:  collector,
		health:     health,
		alerts:     alerts,
		seriesKeys: seriesKeys,
		now:        time.Now,
	}
}

// Snapshot collects fresh metrics, evaluates alert thresholds against them,
// runs every health probe, and returns the composed result.
func (d *DashboardAggregator) Snapshot(ctx context.Context) DashboardSnapshot {
	metrics := d.collector.CollectOnce(ctx)
	var activeAlerts []Alert
	if d.alerts != nil {
		activeAlerts = d.alerts.Evaluate(metrics)
	}
	var overall OverallHealth
	if d.health != nil {
		overall = d.health.Check(ctx)
	}

	series := make(map[string][]Sample, len(d.seriesKeys))
	for _, key := range d.seriesKeys {
		series[key] = d.collector.Series(key)
	}

	return DashboardSnapshot{
		GeneratedAt:  d.now(),
		Metrics:      metrics,
		Health:       overall,
		ActiveAlerts: activeAlerts,
		Series:       series,
	}
}
