package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/relabs-io/vantage/core"
)

// RetryConfig configures retry behavior. delay(attempt) = min(initial *
// multiplier^(attempt-1), max_delay); the first attempt waits
// InitialDelay. JitterFactor, when JitterEnabled, adds uniform noise on
// [0, JitterFactor*delay].
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
	JitterFactor  float64
}

// DefaultRetryConfig provides sensible defaults
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		JitterFactor:  0.25,
	}
}

// delayForAttempt implements the exponential backoff formula.
// attempt is 1-indexed to match RetryConfig.MaxAttempts; attempt 1 returns
// InitialDelay.
func delayForAttempt(config *RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt-1)))
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if config.JitterEnabled && config.JitterFactor > 0 {
		jitter := time.Duration(rand.Float64() * config.JitterFactor * float64(delay))
		delay += jitter
	}
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// Retry executes fn up to config.MaxAttempts times, sleeping
// delayForAttempt between tries. It honours ctx cancellation both between
// attempts and during the sleep.
func Retry(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == config.MaxAttempts {
			break
		}

		// RateLimit/ResourceExhaustion errors override the computed delay
		// with the server-supplied hint when it is larger.
		delay := delayForAttempt(config, attempt)
		if hint, ok := core.RetryHint(lastErr); ok && hint > delay {
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

	return fmt.Errorf("max retry attempts (%d) exceeded for %v: %w", config.MaxAttempts, lastErr, core.ErrMaxRetriesExceeded)
}

// RetryWithCircuitBreaker combines retry logic with circuit breaker
func RetryWithCircuitBreaker(ctx context.Context, config *RetryConfig, cb *CircuitBreaker, fn func() error) error {
	return Retry(ctx, config, func() error {
		if !cb.CanExecute() {
			return core.ErrCircuitBreakerOpen
		}

		err := fn()
		if err != nil {
			cb.RecordFailure()
			return err
		}

		cb.RecordSuccess()
		return nil
	})
}

// RetryExecutor wraps Retry with an attached logger and optional telemetry
// flag, so CreateRetryExecutor (factory.go) can hand callers a configured,
// reusable retrier instead of a bare function.
type RetryExecutor struct {
	config           *RetryConfig
	logger           core.Logger
	telemetryEnabled bool
}

// NewRetryExecutor builds a RetryExecutor. A nil config uses DefaultRetryConfig.
func NewRetryExecutor(config *RetryConfig) *RetryExecutor {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryExecutor{
		config: config,
		logger: &core.NoOpLogger{},
	}
}

// SetLogger configures the executor's logger, wrapping with a component
// tag when possible.
func (r *RetryExecutor) SetLogger(logger core.Logger) {
	if logger == nil {
		r.logger = &core.NoOpLogger{}
		return
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		r.logger = cal.WithComponent("vantage/resilience")
		return
	}
	r.logger = logger
}

// Execute runs fn under the executor's retry policy.
func (r *RetryExecutor) Execute(ctx context.Context, op string, fn func() error) error {
	err := Retry(ctx, r.config, fn)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.ErrorWithContext(ctx, "operation exhausted retries", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
	}
	return err
}
