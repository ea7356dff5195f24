package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-io/vantage/core"
)

// setupTestRedis starts an in-process miniredis instance and wraps it
// in a core.RedisClient.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *core.RedisClient) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL:  "redis://" + mr.Addr(),
		DB:        1,
		Namespace: "vantage-test",
	})
	require.NoError(t, err)

	return mr, client
}

func TestRedisTokenBucketAllowsUpToCapacityThenDenies(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	b := NewRedisTokenBucket(client, "bucket-key", 3, time.Minute)

	assert.True(t, b.TryConsume(1))
	assert.True(t, b.TryConsume(1))
	assert.True(t, b.TryConsume(1))
	assert.False(t, b.TryConsume(1), "fourth request exceeds the window capacity")
}

func TestRedisTokenBucketWaitForReportsRemainingWindowTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	b := NewRedisTokenBucket(client, "bucket-key", 1, time.Minute)
	require.True(t, b.TryConsume(1))

	wait := b.WaitFor(1)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, time.Minute)
}

func TestRedisTokenBucketResetsAfterWindowExpires(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	b := NewRedisTokenBucket(client, "bucket-key", 1, time.Second)
	require.True(t, b.TryConsume(1))
	assert.False(t, b.TryConsume(1))

	mr.FastForward(2 * time.Second)
	assert.True(t, b.TryConsume(1), "a fresh window should allow consumption again")
}

func TestNewDistributedProviderLimiterSharesRequestsDimensionAcrossInstances(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	cfg := ProviderLimiterConfig{RequestsPerMinute: 2}
	limiterA := NewDistributedProviderLimiter("openai", cfg, client)
	limiterB := NewDistributedProviderLimiter("openai", cfg, client)

	g1, err := limiterA.Acquire(0, 0)
	require.NoError(t, err)
	g1.Release()

	g2, err := limiterB.Acquire(0, 0)
	require.NoError(t, err)
	g2.Release()

	_, err = limiterA.Acquire(0, 0)
	assert.Error(t, err, "the two instances share the same Redis-backed requests counter")
}

func TestNewDistributedProviderLimiterFallsBackToLocalBucketWithoutRedis(t *testing.T) {
	cfg := ProviderLimiterConfig{RequestsPerMinute: 1}
	l := NewDistributedProviderLimiter("openai", cfg, nil)

	g, err := l.Acquire(0, 0)
	require.NoError(t, err)
	g.Release()

	_, err = l.Acquire(0, 0)
	assert.Error(t, err)
}
