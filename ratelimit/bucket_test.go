package ratelimit

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketTryConsumeWithinCapacity(t *testing.T) {
	b := NewTokenBucket(10, 1)
	require.True(t, b.TryConsume(5))
	require.True(t, b.TryConsume(5))
	assert.False(t, b.TryConsume(1), "bucket should be empty")
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	start := time.Now()
	b := NewTokenBucket(10, 10) // 10 tokens/sec
	b.now = func() time.Time { return start }
	require.True(t, b.TryConsume(10))
	require.False(t, b.TryConsume(1))

	b.now = func() time.Time { return start.Add(500 * time.Millisecond) }
	assert.True(t, b.TryConsume(5), "half a second at 10/sec should refill 5 tokens")
}

func TestTokenBucketNeverExceedsCapacity(t *testing.T) {
	start := time.Now()
	b := NewTokenBucket(5, 100)
	b.now = func() time.Time { return start }
	b.TryConsume(0) // force refillLocked at t0

	b.now = func() time.Time { return start.Add(10 * time.Second) }
	assert.Equal(t, 5.0, b.Available(), "refill must clamp to capacity")
}

func TestTokenBucketWaitForProjectsWaitWithoutReserving(t *testing.T) {
	b := NewTokenBucket(2, 2) // 2 tokens/sec
	require.True(t, b.TryConsume(2))
	wait := b.WaitFor(1)
	assert.Greater(t, wait, time.Duration(0))
	// WaitFor must not have reserved anything.
	assert.False(t, b.TryConsume(1))
}

func TestProviderLimiterAcquisitionOrder(t *testing.T) {
	// Three requests/min: the second call below is denied on concurrency
	// but still spends its request token (debits are never refunded), so
	// the third call needs a third token.
	l := NewProviderLimiter("test-provider", ProviderLimiterConfig{
		RequestsPerMinute:     3,
		InputTokensPerMinute:  1000,
		OutputTokensPerMinute: 1000,
		MaxConcurrent:         1,
	})

	g1, err := l.Acquire(10, 5)
	require.NoError(t, err)
	require.NotNil(t, g1)

	// Second request should fail on concurrency (permit already held).
	_, err = l.Acquire(10, 5)
	require.Error(t, err)
	assert.Equal(t, DimensionConcurrency, errDimension(t, err))

	g1.Release()
	g2, err := l.Acquire(10, 5)
	require.NoError(t, err)
	require.NotNil(t, g2)
	g2.Release()
}

func TestProviderLimiterRequestDimensionSaturatesFirst(t *testing.T) {
	l := NewProviderLimiter("test-provider", ProviderLimiterConfig{RequestsPerMinute: 1})
	g, err := l.Acquire(1, 1)
	require.NoError(t, err)
	g.Release()

	_, err = l.Acquire(1, 1)
	require.Error(t, err)
	assert.Equal(t, DimensionRequests, errDimension(t, err))
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	l := NewProviderLimiter("test-provider", ProviderLimiterConfig{MaxConcurrent: 1})
	g, err := l.Acquire(1, 1)
	require.NoError(t, err)
	g.Release()
	g.Release() // must not panic or double-decrement
	assert.Equal(t, 0, l.InFlight())
}

// errDimension extracts which dimension a RateLimitExceeded error names,
// since the dimension is encoded in the message rather than a typed field.
func errDimension(t *testing.T, err error) Dimension {
	t.Helper()
	msg := err.Error()
	for _, d := range []Dimension{DimensionRequests, DimensionInputTokens, DimensionOutputTokens, DimensionConcurrency} {
		if strings.Contains(msg, string(d)) {
			return d
		}
	}
	return ""
}
