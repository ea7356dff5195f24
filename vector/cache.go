package vector

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/telemetry"
)

// KeyStrategy selects how generate_embedding derives a cache key from the
// input text.
type KeyStrategy string

const (
	KeyHash     KeyStrategy = "hash"
	KeyVerbatim KeyStrategy = "verbatim"
)

// EmbeddingService is the remote embedding delegate the cache falls back
// to on a miss.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type cacheEntry struct {
	key       string
	embedding []float64
	expiresAt time.Time
	element   *list.Element
}

// CacheConfig tunes an EmbeddingCache.
type CacheConfig struct {
	MaxEntries   int
	TTL          time.Duration
	KeyStrategy  KeyStrategy
	Dimension    int // 0 disables the dimensionality invariant check
	BatchSize    int
}

// DefaultCacheConfig returns conservative defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxEntries: 10_000, TTL: time.Hour, KeyStrategy: KeyHash, BatchSize: 16}
}

// EmbeddingCache maps a text fingerprint to its embedding with LRU
// eviction and TTL, built on core.MemoryStore's TTL-map pattern
// generalized with a container/list LRU order.
type EmbeddingCache struct {
	mu       sync.Mutex
	cfg      CacheConfig
	service  EmbeddingService
	order    *list.List // front = most recently used
	entries  map[string]*cacheEntry
	logger   core.Logger

	hits           uint64
	misses         uint64
	totalGenerated uint64
}

// NewEmbeddingCache builds a cache delegating misses to service.
func NewEmbeddingCache(service EmbeddingService, cfg CacheConfig, logger core.Logger) *EmbeddingCache {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	return &EmbeddingCache{
		cfg:     cfg,
		service: service,
		order:   list.New(),
		entries: make(map[string]*cacheEntry),
		logger:  logger,
	}
}

func (c *EmbeddingCache) keyFor(text string) string {
	if c.cfg.KeyStrategy == KeyVerbatim {
		return text
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// GenerateEmbedding returns the cached embedding for text, or delegates to
// the embedding service on a miss and stores the result. A result
// whose dimension doesn't match the configured Dimension is returned to
// the caller but never cached ("on dimension mismatch the cache
// invalidates silently").
func (c *EmbeddingCache) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	key := c.keyFor(text)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if c.cfg.TTL <= 0 || time.Now().Before(entry.expiresAt) {
			c.order.MoveToFront(entry.element)
			c.hits++
			embedding := entry.embedding
			c.mu.Unlock()
			telemetry.Counter("vector.cache.hits", "memory_type", "embedding_cache")
			return embedding, nil
		}
		c.removeLocked(entry)
	}
	c.misses++
	c.mu.Unlock()
	telemetry.Counter("vector.cache.misses", "memory_type", "embedding_cache")

	embedding, err := c.service.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.totalGenerated++
	c.mu.Unlock()

	if c.cfg.Dimension > 0 && len(embedding) != c.cfg.Dimension {
		c.logger.Warn("embedding dimension mismatch, not caching", map[string]interface{}{
			"expected": c.cfg.Dimension, "actual": len(embedding),
		})
		return embedding, nil
	}

	c.store(key, embedding)
	return embedding, nil
}

func (c *EmbeddingCache) store(key string, embedding []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.removeLocked(existing)
	}

	element := c.order.PushFront(key)
	entry := &cacheEntry{key: key, embedding: embedding, element: element}
	if c.cfg.TTL > 0 {
		entry.expiresAt = time.Now().Add(c.cfg.TTL)
	}
	c.entries[key] = entry

	for c.cfg.MaxEntries > 0 && len(c.entries) > c.cfg.MaxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(c.entries[oldest.Value.(string)])
	}
}

func (c *EmbeddingCache) removeLocked(entry *cacheEntry) {
	if entry == nil {
		return
	}
	c.order.Remove(entry.element)
	delete(c.entries, entry.key)
}

// GenerateEmbeddings processes a batch of texts. Cache misses are walked
// in chunks of cfg.BatchSize, but the embedding service is called once
// per text, since EmbeddingService has no batch call. Results preserve
// the input order.
func (c *EmbeddingCache) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	results := make([][]float64, len(texts))
	var missIndexes []int

	for i, text := range texts {
		key := c.keyFor(text)
		c.mu.Lock()
		entry, ok := c.entries[key]
		if ok && (c.cfg.TTL <= 0 || time.Now().Before(entry.expiresAt)) {
			c.order.MoveToFront(entry.element)
			c.hits++
			results[i] = entry.embedding
			c.mu.Unlock()
			continue
		}
		c.misses++
		c.mu.Unlock()
		missIndexes = append(missIndexes, i)
	}

	for start := 0; start < len(missIndexes); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(missIndexes) {
			end = len(missIndexes)
		}
		for _, idx := range missIndexes[start:end] {
			embedding, err := c.service.Embed(ctx, texts[idx])
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			c.totalGenerated++
			c.mu.Unlock()

			results[idx] = embedding
			if c.cfg.Dimension == 0 || len(embedding) == c.cfg.Dimension {
				c.store(c.keyFor(texts[idx]), embedding)
			}
		}
	}

	return results, nil
}

// Stats is the "cache_size, total_generated, hit rate (derived)"
// snapshot.
type Stats struct {
	CacheSize      int
	TotalGenerated uint64
	Hits           uint64
	Misses         uint64
}

// HitRate derives hits / (hits + misses), 0 with no lookups yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a point-in-time snapshot.
func (c *EmbeddingCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		CacheSize:      len(c.entries),
		TotalGenerated: c.totalGenerated,
		Hits:           c.hits,
		Misses:         c.misses,
	}
}
