package core

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Memory implementation: a TTL map behind
// a read-write lock. It backs the classification cache and any component
// that wants Memory semantics without a Redis deployment. Expired
// entries are dropped lazily on read and swept opportunistically on
// write, so an idle store never needs a background goroutine.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	writes  int

	logger  Logger
	metrics MetricsEmitter
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// sweepEvery is the write count between opportunistic expiry sweeps.
const sweepEvery = 256

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		logger:  &NoOpLogger{},
	}
}

// SetMetrics wires an explicit MetricsEmitter; there is no global
// registry to inherit one from.
func (m *MemoryStore) SetMetrics(metrics MetricsEmitter) {
	m.metrics = metrics
}

// SetLogger replaces the store's logger, tagging component-aware
// loggers.
func (m *MemoryStore) SetLogger(logger Logger) {
	if logger == nil {
		m.logger = &NoOpLogger{}
		return
	}
	if cal, ok := logger.(ComponentAwareLogger); ok {
		m.logger = cal.WithComponent("vantage/core")
	} else {
		m.logger = logger
	}
}

// Get returns the stored value, or "" for a missing or expired key.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || entry.expired(time.Now()) {
		m.count("memory.cache.misses")
		return "", nil
	}
	m.count("memory.cache.hits")
	return entry.value, nil
}

// Set stores value under key. A zero ttl means no expiry.
func (m *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.writes++
	if m.writes%sweepEvery == 0 {
		m.sweepLocked(time.Now())
	}
	m.mu.Unlock()

	m.count("memory.operations", "operation", "set")
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.entries[key]
	delete(m.entries, key)
	m.mu.Unlock()

	if existed {
		m.count("memory.evictions", "reason", "explicit_delete")
	}
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	return ok && !entry.expired(time.Now()), nil
}

// Len reports the number of stored entries, expired ones included until
// the next sweep.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// sweepLocked removes expired entries; m.mu must be held for writing.
func (m *MemoryStore) sweepLocked(now time.Time) {
	removed := 0
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug("memory store sweep", map[string]interface{}{
			"removed": removed,
			"kept":    len(m.entries),
		})
		m.count("memory.evictions", "reason", "expired")
	}
}

func (m *MemoryStore) count(name string, labels ...string) {
	if m.metrics != nil {
		m.metrics.Counter(name, append(labels, "memory_type", "in_memory")...)
	}
}

var _ Memory = (*MemoryStore)(nil)
