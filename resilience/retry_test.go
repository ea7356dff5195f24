package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relabs-io/vantage/core"
)

func noJitter(maxAttempts int, initial, max time.Duration, factor float64) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   maxAttempts,
		InitialDelay:  initial,
		MaxDelay:      max,
		BackoffFactor: factor,
	}
}

func TestDelayForAttemptExponential(t *testing.T) {
	cfg := noJitter(5, 100*time.Millisecond, 10*time.Second, 2.0)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, c := range cases {
		if got := delayForAttempt(cfg, c.attempt); got != c.want {
			t.Errorf("delayForAttempt(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestDelayForAttemptCapsAtMaxDelay(t *testing.T) {
	cfg := noJitter(10, 100*time.Millisecond, 500*time.Millisecond, 2.0)
	if got := delayForAttempt(cfg, 8); got != 500*time.Millisecond {
		t.Errorf("delay beyond cap = %v, want 500ms", got)
	}
}

func TestDelayForAttemptJitterBounded(t *testing.T) {
	cfg := &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		JitterFactor:  0.25,
	}
	base := 200 * time.Millisecond // attempt 2
	for i := 0; i < 50; i++ {
		got := delayForAttempt(cfg, 2)
		if got < base || got > base+time.Duration(0.25*float64(base)) {
			t.Fatalf("jittered delay %v outside [%v, %v]", got, base, base+base/4)
		}
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	cfg := noJitter(3, time.Millisecond, 10*time.Millisecond, 2.0)

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustionWrapsSentinel(t *testing.T) {
	cfg := noJitter(2, time.Millisecond, 10*time.Millisecond, 2.0)
	err := Retry(context.Background(), cfg, func() error {
		return errors.New("always failing")
	})
	if !errors.Is(err, core.ErrMaxRetriesExceeded) {
		t.Errorf("exhausted retry should wrap ErrMaxRetriesExceeded, got %v", err)
	}
}

func TestRetryHonoursContextCancellation(t *testing.T) {
	cfg := noJitter(10, 50*time.Millisecond, time.Second, 2.0)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, cfg, func() error {
		calls++
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls > 2 {
		t.Errorf("cancellation should stop the loop quickly, got %d calls", calls)
	}
}

func TestRetryRateLimitHintOverridesComputedDelay(t *testing.T) {
	cfg := noJitter(2, time.Millisecond, time.Second, 2.0)

	hintErr := core.New("op", "test", core.KindRateLimit, "slow down", nil)
	hintErr.RetryAfter = 60 * time.Millisecond

	start := time.Now()
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls == 1 {
			return hintErr
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("server hint ignored: slept only %v", elapsed)
	}
}

func TestRetryWithCircuitBreakerRecordsOutcomes(t *testing.T) {
	cb := NewCircuitBreakerLegacy(10, time.Second)
	cfg := noJitter(3, time.Millisecond, 10*time.Millisecond, 2.0)

	calls := 0
	err := RetryWithCircuitBreaker(context.Background(), cfg, cb, func() error {
		calls++
		if calls == 1 {
			return errors.New("first fails")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryWithCircuitBreaker = %v", err)
	}

	metrics := cb.GetMetrics()
	if metrics["failure"].(uint64) != 1 || metrics["success"].(uint64) != 1 {
		t.Errorf("breaker window = %v failures / %v successes", metrics["failure"], metrics["success"])
	}
}

func TestRetryExecutorUsesConfig(t *testing.T) {
	exec := NewRetryExecutor(noJitter(2, time.Millisecond, 10*time.Millisecond, 2.0))
	calls := 0
	err := exec.Execute(context.Background(), "test-op", func() error {
		calls++
		return errors.New("nope")
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
