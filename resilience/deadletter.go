package resilience

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DeadLetterEntry records an operation that exhausted every recovery
// option.
type DeadLetterEntry struct {
	ID              string
	Operation       string
	Service         string
	Err             error
	Attempts        int
	FirstFailure    time.Time
	FinalFailure    time.Time
	RecoveryAttempts []string
	Escalated       bool
}

// DeadLetterQueue is a bounded FIFO: pushing past Capacity drops the
// oldest entry, so only the most-recent capacity entries remain.
type DeadLetterQueue struct {
	mu       sync.Mutex
	entries  []DeadLetterEntry
	capacity int
}

// NewDeadLetterQueue builds a queue bounded to capacity entries.
func NewDeadLetterQueue(capacity int) *DeadLetterQueue {
	if capacity <= 0 {
		capacity = 1000
	}
	return &DeadLetterQueue{capacity: capacity}
}

// Push appends an entry, evicting the oldest if the queue is at capacity.
func (q *DeadLetterQueue) Push(operation, service string, err error, attempts int, firstFailure time.Time, recoveryAttempts []string) DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := DeadLetterEntry{
		ID:               uuid.NewString(),
		Operation:        operation,
		Service:          service,
		Err:              err,
		Attempts:         attempts,
		FirstFailure:     firstFailure,
		FinalFailure:     time.Now(),
		RecoveryAttempts: recoveryAttempts,
	}

	if len(q.entries) >= q.capacity {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
	return entry
}

// Len returns the current number of queued entries.
func (q *DeadLetterQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns a copy of the current entries, oldest first.
func (q *DeadLetterQueue) Snapshot() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetterEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Escalate marks the entry with id as escalated (e.g. after a human or
// notification channel has seen it). Returns false if id is not present.
func (q *DeadLetterQueue) Escalate(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries[i].Escalated = true
			return true
		}
	}
	return false
}
