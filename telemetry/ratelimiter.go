package telemetry

import (
	"sync"
	"time"
)

// RateLimiter allows one event per interval. It exists to keep this
// package's own error logging from flooding while a collector outage
// lasts.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Allow reports whether enough time has passed since the last allowed
// event, recording this event if so.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	return true
}
