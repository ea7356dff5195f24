package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/relabs-io/vantage/core"
)

// ExecutorMetrics is the narrow metrics surface execute_with_retry reports
// to ("total_errors, per-kind counters, recovery success rate,
// average recovery time, breaker trips, DLQ size").
type ExecutorMetrics interface {
	Counter(name string, labels ...string)
	Gauge(name string, value float64, labels ...string)
	Histogram(name string, value float64, labels ...string)
}

// Executor ties a breaker registry, a retry policy, and a dead-letter
// queue into a single execute-with-retry contract. Unlike the
// generic Retry helper, Executor stops as soon as an error is classified
// non-retryable rather than spending the rest of the attempt budget, and
// treats breaker-refused admission as its own terminal outcome.
type Executor struct {
	breakers *BreakerRegistry
	retry    *RetryConfig
	dlq      *DeadLetterQueue
	logger   core.Logger
	metrics  ExecutorMetrics
}

// NewExecutor wires a breaker registry, retry policy, and dead-letter
// queue together. Any of retry/dlq/logger may be nil to take defaults.
func NewExecutor(breakers *BreakerRegistry, retry *RetryConfig, dlq *DeadLetterQueue, logger core.Logger) *Executor {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	if dlq == nil {
		dlq = NewDeadLetterQueue(1000)
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Executor{breakers: breakers, retry: retry, dlq: dlq, logger: logger}
}

// SetMetrics attaches a metrics sink. Safe to call with nil to disable.
func (e *Executor) SetMetrics(m ExecutorMetrics) {
	e.metrics = m
}

func (e *Executor) count(name string, labels ...string) {
	if e.metrics != nil {
		e.metrics.Counter(name, labels...)
	}
}

func (e *Executor) observe(name string, value float64, labels ...string) {
	if e.metrics != nil {
		e.metrics.Histogram(name, value, labels...)
	}
}

// DeadLetterQueue exposes the executor's queue for inspection/draining.
func (e *Executor) DeadLetterQueue() *DeadLetterQueue {
	return e.dlq
}

// Run executes op under the named service's breaker:
//
//  1. admission via breaker
//  2. run op with a per-attempt timeout
//  3. classify outcome, record to breaker, update metrics
//  4. on retryable error, sleep delay(attempt) and continue
//  5. on non-retryable error or exhaustion, enqueue dead-letter entry
func (e *Executor) Run(ctx context.Context, name, service string, perAttemptTimeout time.Duration, op func(ctx context.Context) error) error {
	cb, err := e.breakers.Get(service)
	if err != nil {
		return err
	}

	var (
		lastErr          error
		firstFailure     time.Time
		recoveryAttempts []string
		attempts         int
	)

	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		attempts = attempt

		if !cb.CanExecute() {
			e.count("vantage_resilience_breaker_trips_total", "service", service)
			lastErr = core.ErrCircuitBreakerOpen
			break
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if perAttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, perAttemptTimeout)
		}

		start := time.Now()
		opErr := op(attemptCtx)
		elapsed := time.Since(start)
		if cancel != nil {
			cancel()
		}

		if opErr == nil {
			cb.RecordSuccess()
			if attempt > 1 {
				e.count("vantage_resilience_recovery_success_total", "operation", name, "service", service)
				e.observe("vantage_resilience_recovery_duration_seconds", elapsed.Seconds(), "operation", name)
			}
			return nil
		}

		cb.RecordFailure()
		kind := core.KindOf(opErr)
		e.count("vantage_resilience_errors_total", "operation", name, "service", service, "kind", string(kind))

		lastErr = opErr
		if firstFailure.IsZero() {
			firstFailure = start
		}
		recoveryAttempts = append(recoveryAttempts, opErr.Error())

		if !core.Retryable(opErr) {
			break
		}
		if attempt == e.retry.MaxAttempts {
			break
		}

		delay := delayForAttempt(e.retry, attempt)
		if hint, ok := core.RetryHint(opErr); ok && hint > delay {
			delay = hint
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	finalErr := fmt.Errorf("operation %q exhausted recovery after %d attempt(s): %w", name, attempts, lastErr)
	entry := e.dlq.Push(name, service, finalErr, attempts, firstFailure, recoveryAttempts)
	e.count("vantage_resilience_dlq_size", "service", service)
	e.logger.ErrorWithContext(ctx, "operation moved to dead-letter queue", map[string]interface{}{
		"operation": name,
		"service":   service,
		"dlq_id":    entry.ID,
		"attempts":  attempts,
		"error":     lastErr.Error(),
	})

	return finalErr
}
