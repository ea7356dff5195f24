package notify

import (
	"context"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/ratelimit"
)

// ChannelConfig tunes a single registered channel's backpressure
// behaviour: a per-minute event-rate limit and optional batching before
// flush.
type ChannelConfig struct {
	EventsPerMinute int
	BatchSize       int
	BatchTimeout    time.Duration
}

type registeredChannel struct {
	channel Channel
	limiter *ratelimit.TokenBucket // nil => unlimited
	cfg     ChannelConfig

	mu      sync.Mutex
	pending []Event
	timer   *time.Timer
}

// Dispatcher fans an Event out to every registered channel, applying
// each channel's rate limit and batch configuration independently.
type Dispatcher struct {
	mu       sync.Mutex
	channels map[string]*registeredChannel
	logger   core.Logger
}

// NewDispatcher builds an empty Dispatcher. logger may be nil.
func NewDispatcher(logger core.Logger) *Dispatcher {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Dispatcher{channels: make(map[string]*registeredChannel), logger: logger}
}

// Register adds a channel with the given rate-limit/batch configuration.
// A zero EventsPerMinute means unlimited; a zero BatchSize means send
// immediately (no batching).
func (d *Dispatcher) Register(ch Channel, cfg ChannelConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rc := &registeredChannel{channel: ch, cfg: cfg}
	if cfg.EventsPerMinute > 0 {
		rc.limiter = ratelimit.NewTokenBucket(float64(cfg.EventsPerMinute), float64(cfg.EventsPerMinute)/60.0)
	}
	d.channels[ch.Name()] = rc
}

// Dispatch fans event out to every registered channel. Per-channel
// failures are logged but do not block delivery to other channels.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	d.mu.Lock()
	channels := make([]*registeredChannel, 0, len(d.channels))
	for _, rc := range d.channels {
		channels = append(channels, rc)
	}
	d.mu.Unlock()

	for _, rc := range channels {
		d.deliver(ctx, rc, event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, rc *registeredChannel, event Event) {
	if rc.limiter != nil && !rc.limiter.TryConsume(1) {
		d.logger.Warn("notification dropped: channel rate limit exceeded", map[string]interface{}{
			"channel": rc.channel.Name(),
			"source":  event.Source,
		})
		return
	}

	if rc.cfg.BatchSize <= 1 {
		d.send(ctx, rc, event)
		return
	}

	rc.mu.Lock()
	rc.pending = append(rc.pending, event)
	full := len(rc.pending) >= rc.cfg.BatchSize
	if rc.timer == nil && rc.cfg.BatchTimeout > 0 {
		rc.timer = time.AfterFunc(rc.cfg.BatchTimeout, func() { d.flush(rc) })
	}
	rc.mu.Unlock()

	if full {
		d.flush(rc)
	}
}

func (d *Dispatcher) flush(rc *registeredChannel) {
	rc.mu.Lock()
	batch := rc.pending
	rc.pending = nil
	if rc.timer != nil {
		rc.timer.Stop()
		rc.timer = nil
	}
	rc.mu.Unlock()

	ctx := context.Background()
	for _, e := range batch {
		d.send(ctx, rc, e)
	}
}

func (d *Dispatcher) send(ctx context.Context, rc *registeredChannel, event Event) {
	if err := rc.channel.Send(ctx, event); err != nil {
		d.logger.Error("notification channel send failed", map[string]interface{}{
			"channel": rc.channel.Name(),
			"error":   err.Error(),
		})
	}
}

// Flush forces delivery of any batched-but-unsent events across all
// channels, for graceful shutdown.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	channels := make([]*registeredChannel, 0, len(d.channels))
	for _, rc := range d.channels {
		channels = append(channels, rc)
	}
	d.mu.Unlock()

	for _, rc := range channels {
		d.flush(rc)
	}
}
