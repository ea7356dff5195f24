package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestDeadLetterQueueBounded(t *testing.T) {
	q := NewDeadLetterQueue(3)

	for i := 0; i < 5; i++ {
		q.Push("op", "svc", errors.New("fail"), 1, time.Now(), nil)
	}

	if got := q.Len(); got != 3 {
		t.Fatalf("expected queue capped at 3 entries, got %d", got)
	}
}

func TestDeadLetterQueueKeepsMostRecent(t *testing.T) {
	q := NewDeadLetterQueue(2)

	first := q.Push("op-1", "svc", errors.New("fail-1"), 1, time.Now(), nil)
	_ = first
	q.Push("op-2", "svc", errors.New("fail-2"), 1, time.Now(), nil)
	q.Push("op-3", "svc", errors.New("fail-3"), 1, time.Now(), nil)

	entries := q.Snapshot()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Operation != "op-2" || entries[1].Operation != "op-3" {
		t.Errorf("expected the two most recent entries to survive, got %+v", entries)
	}
}

func TestDeadLetterQueueEscalate(t *testing.T) {
	q := NewDeadLetterQueue(10)
	entry := q.Push("op", "svc", errors.New("fail"), 2, time.Now(), []string{"attempt 1 failed"})

	if q.Escalate("does-not-exist") {
		t.Error("expected escalating an unknown id to fail")
	}
	if !q.Escalate(entry.ID) {
		t.Fatal("expected escalating a known id to succeed")
	}

	snapshot := q.Snapshot()
	if !snapshot[0].Escalated {
		t.Error("expected entry to be marked escalated")
	}
}

func TestDeadLetterQueueDefaultCapacity(t *testing.T) {
	q := NewDeadLetterQueue(0)
	if q.capacity != 1000 {
		t.Errorf("expected default capacity of 1000, got %d", q.capacity)
	}
}
