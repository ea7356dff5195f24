package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
)

// Collector reports a named metric at the time of collection. Real
// collectors close over a provider manager, a state manager, or a cache
// and report its current-state-population count, latency average, hit
// rate, or success rate; the collector function itself is oblivious to
// the metric's source.
type Collector func(ctx context.Context) (map[string]float64, error)

// Sample is one point-in-time metric reading.
type Sample struct {
	Value     float64
	Timestamp time.Time
}

// CollectorConfig tunes polling interval and retained series length.
type CollectorConfig struct {
	Interval        time.Duration
	MaxSeriesPoints int
}

// DefaultCollectorConfig polls every 30s and retains the last 120 points
// (an hour of history at that interval).
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{Interval: 30 * time.Second, MaxSeriesPoints: 120}
}

// MetricsCollector runs a set of named Collectors on a timer and retains a
// bounded time series per metric.
type MetricsCollector struct {
	cfg    CollectorConfig
	logger core.Logger
	now    func() time.Time

	mu         sync.Mutex
	collectors map[string]Collector
	series     map[string][]Sample

	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewMetricsCollector builds a collector. A nil logger is replaced with a
// no-op.
func NewMetricsCollector(cfg CollectorConfig, logger core.Logger) *MetricsCollector {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cfg.MaxSeriesPoints <= 0 {
		cfg.MaxSeriesPoints = 120
	}
	return &MetricsCollector{
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		collectors: make(map[string]Collector),
		series:     make(map[string][]Sample),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Register adds a named collector. Registering under an existing name
// replaces it.
func (c *MetricsCollector) Register(name string, collector Collector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collectors[name] = collector
}

// CollectOnce runs every registered collector immediately and folds the
// results into the retained series, returning the latest snapshot.
func (c *MetricsCollector) CollectOnce(ctx context.Context) map[string]float64 {
	c.mu.Lock()
	names := make([]string, 0, len(c.collectors))
	for name := range c.collectors {
		names = append(names, name)
	}
	collectors := make(map[string]Collector, len(c.collectors))
	for k, v := range c.collectors {
		collectors[k] = v
	}
	c.mu.Unlock()
	sort.Strings(names)

	latest := make(map[string]float64)
	now := c.now()
	for _, name := range names {
		values, err := collectors[name](ctx)
		if err != nil {
			c.logger.Warn("metrics collector failed", map[string]interface{}{"collector": name, "error": err.Error()})
			continue
		}
		for key, value := range values {
			latest[key] = value
			c.appendSample(key, Sample{Value: value, Timestamp: now})
		}
	}
	return latest
}

func (c *MetricsCollector) appendSample(key string, sample Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	series := append(c.series[key], sample)
	if len(series) > c.cfg.MaxSeriesPoints {
		series = series[len(series)-c.cfg.MaxSeriesPoints:]
	}
	c.series[key] = series
}

// Series returns a copy of the retained history for a metric key.
func (c *MetricsCollector) Series(key string) []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sample(nil), c.series[key]...)
}

// Latest returns the most recent snapshot across every metric key that has
// been collected at least once.
func (c *MetricsCollector) Latest() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	latest := make(map[string]float64, len(c.series))
	for key, points := range c.series {
		if len(points) == 0 {
			continue
		}
		latest[key] = points[len(points)-1].Value
	}
	return latest
}

// Start begins the periodic collection timer. Stop halts it.
func (c *MetricsCollector) Start(ctx context.Context) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go func() {
		defer close(c.doneCh)
		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.CollectOnce(ctx)
			}
		}
	}()
}

// Stop halts the collection timer and waits for the goroutine to exit.
// Safe to call even if Start was never invoked.
func (c *MetricsCollector) Stop() {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return
	}
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.doneCh
}
