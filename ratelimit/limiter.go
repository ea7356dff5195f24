package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/telemetry"
)

// Dimension names the constraint a RateLimitExceeded error was raised for.
type Dimension string

const (
	DimensionRequests     Dimension = "requests_per_minute"
	DimensionInputTokens  Dimension = "input_tokens_per_minute"
	DimensionOutputTokens Dimension = "output_tokens_per_minute"
	DimensionConcurrency  Dimension = "max_concurrent"
)

// NewRateLimitExceeded builds a retryable core.VantageError carrying
// the saturated dimension and the suggested wait. Already-consumed
// tokens on other dimensions are never refunded.
func NewRateLimitExceeded(component string, dim Dimension, wait time.Duration) *core.VantageError {
	telemetry.Counter("providers.rate_limited", "provider", component, "dimension", string(dim))
	err := core.New("ratelimit.ProviderLimiter.Acquire", component, core.KindRateLimit,
		fmt.Sprintf("%s limit saturated", dim), nil)
	err.RetryAfter = wait
	return err
}

// Guard is returned by ProviderLimiter.Acquire on success. Dropping it
// (calling Release) releases the concurrency permit; token-bucket debits
// are never refunded.
type Guard struct {
	release func()
	once    sync.Once
}

// Release returns the concurrency permit. Safe to call more than once.
func (g *Guard) Release() {
	if g == nil {
		return
	}
	g.once.Do(func() {
		if g.release != nil {
			g.release()
		}
	})
}

// ProviderLimiterConfig names the four independent constraints a
// provider's rate-limit settings declare.
type ProviderLimiterConfig struct {
	RequestsPerMinute    int
	InputTokensPerMinute int
	OutputTokensPerMinute int
	MaxConcurrent        int
}

// ProviderLimiter composes a requests/min bucket, an input-tokens/min
// bucket, an output-tokens/min bucket, and a concurrency semaphore.
// Acquisition order is fixed: request -> input tokens -> output tokens
// -> concurrency permit.
type ProviderLimiter struct {
	component string

	requests     bucket
	inputTokens  bucket
	outputTokens bucket

	concurrency chan struct{}
}

// NewProviderLimiter builds a limiter from the four configured
// constraints. A zero value for any rate disables that dimension's
// check (treated as unbounded); MaxConcurrent <= 0 disables the
// concurrency semaphore. Each dimension is backed by a single-process
// TokenBucket; use NewDistributedProviderLimiter to share the requests
// dimension across processes via Redis.
func NewProviderLimiter(component string, cfg ProviderLimiterConfig) *ProviderLimiter {
	l := &ProviderLimiter{component: component}

	if cfg.RequestsPerMinute > 0 {
		l.requests = NewTokenBucket(float64(cfg.RequestsPerMinute), float64(cfg.RequestsPerMinute)/60.0)
	}
	if cfg.InputTokensPerMinute > 0 {
		l.inputTokens = NewTokenBucket(float64(cfg.InputTokensPerMinute), float64(cfg.InputTokensPerMinute)/60.0)
	}
	if cfg.OutputTokensPerMinute > 0 {
		l.outputTokens = NewTokenBucket(float64(cfg.OutputTokensPerMinute), float64(cfg.OutputTokensPerMinute)/60.0)
	}
	if cfg.MaxConcurrent > 0 {
		l.concurrency = make(chan struct{}, cfg.MaxConcurrent)
	}

	return l
}

// NewDistributedProviderLimiter builds a limiter whose requests/minute
// dimension is shared across every process pointed at the same Redis
// client and component name, via a RedisTokenBucket fixed window.
// Token-count dimensions and the concurrency permit stay process-local:
// the concurrency semaphore in particular only has meaning per process
// (it bounds this process's in-flight goroutines), and cross-process
// input/output token sharing is left to callers that need it badly
// enough to accept the extra Redis round trip per call.
func NewDistributedProviderLimiter(component string, cfg ProviderLimiterConfig, redis *core.RedisClient) *ProviderLimiter {
	l := NewProviderLimiter(component, cfg)
	if redis == nil || cfg.RequestsPerMinute <= 0 {
		return l
	}
	l.requests = NewRedisTokenBucket(redis, "ratelimit:"+component+":requests", float64(cfg.RequestsPerMinute), time.Minute)
	return l
}

// Acquire attempts to debit one request, estimatedInputTokens input
// tokens, and estimatedOutputTokens output tokens, then claims a
// concurrency permit. Any failure returns a RateLimitExceeded error
// naming the first saturated dimension; partially consumed buckets
// before the failing dimension are not refunded.
func (l *ProviderLimiter) Acquire(estimatedInputTokens, estimatedOutputTokens int) (*Guard, error) {
	if l.requests != nil && !l.requests.TryConsume(1) {
		return nil, NewRateLimitExceeded(l.component, DimensionRequests, l.requests.WaitFor(1))
	}
	if l.inputTokens != nil && !l.inputTokens.TryConsume(float64(estimatedInputTokens)) {
		return nil, NewRateLimitExceeded(l.component, DimensionInputTokens, l.inputTokens.WaitFor(float64(estimatedInputTokens)))
	}
	if l.outputTokens != nil && !l.outputTokens.TryConsume(float64(estimatedOutputTokens)) {
		return nil, NewRateLimitExceeded(l.component, DimensionOutputTokens, l.outputTokens.WaitFor(float64(estimatedOutputTokens)))
	}

	if l.concurrency != nil {
		select {
		case l.concurrency <- struct{}{}:
		default:
			return nil, NewRateLimitExceeded(l.component, DimensionConcurrency, 0)
		}
		return &Guard{release: func() {
			select {
			case <-l.concurrency:
			default:
			}
		}}, nil
	}

	return &Guard{release: func() {}}, nil
}

// InFlight reports the number of concurrency permits currently held, for
// diagnostics/tests.
func (l *ProviderLimiter) InFlight() int {
	if l.concurrency == nil {
		return 0
	}
	return len(l.concurrency)
}
