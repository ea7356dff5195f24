// Redis access for the components that opt into shared, cross-process
// state — currently the distributed rate limiter, with the scorer's
// classification cache able to swap in via RedisMemory. Each concern
// gets its own logical database and a "vantage:<area>:*" key namespace
// so several components can share one Redis instance without
// collisions.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Logical database allocation. Redis defaults to 16 DBs; 7-15 stay free
// for extensions.
const (
	RedisDBTaskState           = 0
	RedisDBRateLimiting        = 1
	RedisDBClassificationCache = 2
	RedisDBVectorMeta          = 3
	RedisDBCircuitBreaker      = 4
	RedisDBProviderStats       = 5
	RedisDBDeadLetter          = 6

	RedisDBReservedStart = 7
	RedisDBReservedEnd   = 15
)

// IsReservedDB reports whether db falls in the extension range.
func IsReservedDB(db int) bool {
	return db >= RedisDBReservedStart && db <= RedisDBReservedEnd
}

// RedisDBName returns the allocation label for a DB number.
func RedisDBName(db int) string {
	names := map[int]string{
		RedisDBTaskState:           "task state",
		RedisDBRateLimiting:        "rate limiting",
		RedisDBClassificationCache: "classification cache",
		RedisDBVectorMeta:          "vector metadata",
		RedisDBCircuitBreaker:      "circuit breaker",
		RedisDBProviderStats:       "provider stats",
		RedisDBDeadLetter:          "dead letter queue",
	}
	if name, ok := names[db]; ok {
		return name
	}
	if IsReservedDB(db) {
		return fmt.Sprintf("reserved db %d", db)
	}
	return fmt.Sprintf("db %d", db)
}

// RedisClient wraps go-redis with DB isolation and key namespacing.
type RedisClient struct {
	client    *redis.Client
	dbID      int
	namespace string
	logger    Logger
}

// RedisClientOptions configures connection, DB isolation, and
// namespacing.
type RedisClientOptions struct {
	RedisURL  string
	DB        int // 0-15
	Namespace string
	Logger    Logger
}

// NewRedisClient parses the URL, pins the isolation DB, and verifies
// connectivity with a bounded ping before returning.
func NewRedisClient(opts RedisClientOptions) (*RedisClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}
	if IsReservedDB(opts.DB) {
		logger.Warn("Using reserved Redis DB", map[string]interface{}{
			"db":   opts.DB,
			"hint": "DBs 7-15 are reserved for extensions",
		})
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}
	if opts.DB >= 0 && opts.DB <= 15 {
		redisOpt.DB = opts.DB
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis DB %d: %w", opts.DB, ErrConnectionFailed)
	}

	logger.Info("Redis client connected", map[string]interface{}{
		"db":        opts.DB,
		"db_name":   RedisDBName(opts.DB),
		"namespace": opts.Namespace,
	})

	return &RedisClient{
		client:    client,
		dbID:      opts.DB,
		namespace: opts.Namespace,
		logger:    logger,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) GetDB() int {
	return r.dbID
}

func (r *RedisClient) GetNamespace() string {
	return r.namespace
}

func (r *RedisClient) formatKey(key string) string {
	if r.namespace != "" {
		return r.namespace + ":" + key
	}
	return key
}

// Counter operations, used by the fixed-window rate limiter.

func (r *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, r.formatKey(key)).Result()
}

func (r *RedisClient) IncrBy(ctx context.Context, key string, value int64) (int64, error) {
	return r.client.IncrBy(ctx, r.formatKey(key), value).Result()
}

func (r *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, r.formatKey(key), ttl).Err()
}

// Plain key/value operations.

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, r.formatKey(key)).Result()
}

func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, r.formatKey(key), value, ttl).Err()
}

func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	formatted := make([]string, len(keys))
	for i, key := range keys {
		formatted[i] = r.formatKey(key)
	}
	return r.client.Del(ctx, formatted...).Err()
}

func (r *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, r.formatKey(key)).Result()
}

// Sorted-set operations, for sliding-window counters.

func (r *RedisClient) ZAdd(ctx context.Context, key string, members ...*redis.Z) error {
	return r.client.ZAdd(ctx, r.formatKey(key), members...).Err()
}

func (r *RedisClient) ZRemRangeByScore(ctx context.Context, key string, min, max string) error {
	return r.client.ZRemRangeByScore(ctx, r.formatKey(key), min, max).Err()
}

func (r *RedisClient) ZCard(ctx context.Context, key string) (int64, error) {
	return r.client.ZCard(ctx, r.formatKey(key)).Result()
}

func (r *RedisClient) ZCount(ctx context.Context, key string, min, max string) (int64, error) {
	return r.client.ZCount(ctx, r.formatKey(key), min, max).Result()
}

// Pipeline exposes batched execution for callers that need atomic
// multi-command sequences.
func (r *RedisClient) Pipeline() redis.Pipeliner {
	return r.client.Pipeline()
}

// HealthCheck verifies connectivity.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// RedisMemory adapts RedisClient to the Memory interface, so a
// component built against Memory (such as the scorer's classification
// cache) can move from in-process to shared Redis state by swapping its
// constructor argument.
type RedisMemory struct {
	client *RedisClient
}

func NewRedisMemory(client *RedisClient) *RedisMemory {
	return &RedisMemory{client: client}
}

// Get maps a missing key to ("", nil), matching MemoryStore semantics.
func (m *RedisMemory) Get(ctx context.Context, key string) (string, error) {
	value, err := m.client.Get(ctx, key)
	if err == redis.Nil {
		return "", nil
	}
	return value, err
}

func (m *RedisMemory) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return m.client.Set(ctx, key, value, ttl)
}

func (m *RedisMemory) Delete(ctx context.Context, key string) error {
	return m.client.Del(ctx, key)
}

func (m *RedisMemory) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.Get(ctx, key)
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ Memory = (*RedisMemory)(nil)
