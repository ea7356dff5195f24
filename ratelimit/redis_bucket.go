package ratelimit

import (
	"context"
	"time"

	"github.com/relabs-io/vantage/core"
)

// bucket is the shape ProviderLimiter needs from a consumable-capacity
// primitive. *TokenBucket satisfies it for the single-process case;
// *RedisTokenBucket satisfies it for the distributed case, so a
// ProviderLimiter can mix local and distributed dimensions without
// knowing which backend it holds.
type bucket interface {
	TryConsume(n float64) bool
	WaitFor(n float64) time.Duration
}

// RedisTokenBucket is a fixed-window counter backed by core.RedisClient:
// capacity tokens per window, refilled wholesale when the window's TTL
// expires. This trades the local TokenBucket's smooth lazy refill for a
// coarser window in exchange for a count shared across every process
// hitting the same Redis key, using a plain INCR+EXPIRE window.
//
// A Redis error fails closed (denies the request): a rate limiter that
// fails open under a Redis outage would stop limiting entirely, which is
// worse than rejecting traffic until Redis recovers.
type RedisTokenBucket struct {
	client   *core.RedisClient
	key      string
	capacity float64
	window   time.Duration
	timeout  time.Duration
}

// NewRedisTokenBucket builds a distributed bucket. key should be unique
// per component+dimension (e.g. "provider:openai:requests"); the
// client's own namespace further scopes it.
func NewRedisTokenBucket(client *core.RedisClient, key string, capacityPerWindow float64, window time.Duration) *RedisTokenBucket {
	return &RedisTokenBucket{
		client:   client,
		key:      key,
		capacity: capacityPerWindow,
		window:   window,
		timeout:  2 * time.Second,
	}
}

// TryConsume debits n from the current window's counter, rolling back
// the debit (and denying) if it would push the count over capacity.
// Consumed-but-denied tokens on other dimensions are never refunded,
// matching the in-memory bucket's semantics.
func (b *RedisTokenBucket) TryConsume(n float64) bool {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	count, err := b.client.IncrBy(ctx, b.key, int64(n))
	if err != nil {
		return false
	}
	if count == int64(n) {
		// First writer in a fresh window: arm its expiry.
		_ = b.client.Expire(ctx, b.key, b.window)
	}
	if float64(count) > b.capacity {
		_, _ = b.client.IncrBy(ctx, b.key, -int64(n))
		return false
	}
	return true
}

// WaitFor reports the time remaining until the current window rolls
// over, which is the distributed bucket's only honest estimate of when
// capacity will free up (it does not know other processes' pending
// debits).
func (b *RedisTokenBucket) WaitFor(n float64) time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	ttl, err := b.client.TTL(ctx, b.key)
	if err != nil || ttl <= 0 {
		return 0
	}
	return ttl
}
