package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorCollectOnceFoldsIntoSeries(t *testing.T) {
	c := NewMetricsCollector(DefaultCollectorConfig(), nil)
	c.Register("queue", func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"queue.depth": 3}, nil
	})

	latest := c.CollectOnce(context.Background())
	assert.Equal(t, 3.0, latest["queue.depth"])
	assert.Equal(t, 3.0, c.Latest()["queue.depth"])
	require.Len(t, c.Series("queue.depth"), 1)
}

func TestMetricsCollectorSkipsFailingCollectorsButKeepsOthers(t *testing.T) {
	c := NewMetricsCollector(DefaultCollectorConfig(), nil)
	c.Register("broken", func(ctx context.Context) (map[string]float64, error) {
		return nil, errors.New("boom")
	})
	c.Register("ok", func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"ok.value": 1}, nil
	})

	latest := c.CollectOnce(context.Background())
	assert.Equal(t, 1.0, latest["ok.value"])
	_, present := latest["broken.value"]
	assert.False(t, present)
}

func TestMetricsCollectorSeriesTrimsToMaxPoints(t *testing.T) {
	cfg := CollectorConfig{Interval: time.Millisecond, MaxSeriesPoints: 2}
	c := NewMetricsCollector(cfg, nil)
	c.Register("x", func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"x": 1}, nil
	})

	for i := 0; i < 5; i++ {
		c.CollectOnce(context.Background())
	}
	assert.Len(t, c.Series("x"), 2)
}

func TestMetricsCollectorStopWithoutStartDoesNotHang(t *testing.T) {
	c := NewMetricsCollector(DefaultCollectorConfig(), nil)
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop hung with no Start call")
	}
}

func TestMetricsCollectorStartAndStop(t *testing.T) {
	cfg := CollectorConfig{Interval: 5 * time.Millisecond, MaxSeriesPoints: 10}
	c := NewMetricsCollector(cfg, nil)
	var calls int
	c.Register("ticks", func(ctx context.Context) (map[string]float64, error) {
		calls++
		return map[string]float64{"ticks": float64(calls)}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	c.Stop()

	assert.GreaterOrEqual(t, calls, 1)
}
