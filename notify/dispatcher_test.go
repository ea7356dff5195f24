package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	name string
	mu   sync.Mutex
	got  []Event
}

func (r *recordingChannel) Name() string { return r.name }

func (r *recordingChannel) Send(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, event)
	return nil
}

func (r *recordingChannel) events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.got))
	copy(out, r.got)
	return out
}

func TestDispatcherFansOutToAllChannels(t *testing.T) {
	d := NewDispatcher(nil)
	a := &recordingChannel{name: "a"}
	b := &recordingChannel{name: "b"}
	d.Register(a, ChannelConfig{})
	d.Register(b, ChannelConfig{})

	d.Dispatch(context.Background(), Event{Source: "test", Message: "hello"})

	require.Len(t, a.events(), 1)
	require.Len(t, b.events(), 1)
	assert.Equal(t, "hello", a.events()[0].Message)
}

func TestDispatcherRateLimitsPerChannel(t *testing.T) {
	d := NewDispatcher(nil)
	ch := &recordingChannel{name: "limited"}
	d.Register(ch, ChannelConfig{EventsPerMinute: 1})

	d.Dispatch(context.Background(), Event{Message: "first"})
	d.Dispatch(context.Background(), Event{Message: "second"})

	assert.Len(t, ch.events(), 1, "second event should be dropped by the rate limit")
}

func TestDispatcherBatchesUntilSizeReached(t *testing.T) {
	d := NewDispatcher(nil)
	ch := &recordingChannel{name: "batched"}
	d.Register(ch, ChannelConfig{BatchSize: 3, BatchTimeout: time.Hour})

	d.Dispatch(context.Background(), Event{Message: "1"})
	d.Dispatch(context.Background(), Event{Message: "2"})
	assert.Empty(t, ch.events(), "batch should not flush before reaching batch size")

	d.Dispatch(context.Background(), Event{Message: "3"})
	assert.Len(t, ch.events(), 3)
}

func TestDispatcherFlushSendsPendingBatch(t *testing.T) {
	d := NewDispatcher(nil)
	ch := &recordingChannel{name: "batched"}
	d.Register(ch, ChannelConfig{BatchSize: 10, BatchTimeout: time.Hour})

	d.Dispatch(context.Background(), Event{Message: "only one"})
	assert.Empty(t, ch.events())

	d.Flush()
	assert.Len(t, ch.events(), 1)
}
