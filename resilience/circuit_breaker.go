package resilience

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-io/vantage/core"
)

// CircuitState is the breaker's position: closed (passing), open
// (rejecting), or half-open (probing).
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MetricsCollector receives breaker events for monitoring.
type MetricsCollector interface {
	RecordSuccess(name string)
	RecordFailure(name string, errorType string)
	RecordStateChange(name string, from, to string)
	RecordRejection(name string)
}

type noopMetrics struct{}

func (n *noopMetrics) RecordSuccess(name string)                      {}
func (n *noopMetrics) RecordFailure(name string, errorType string)    {}
func (n *noopMetrics) RecordStateChange(name string, from, to string) {}
func (n *noopMetrics) RecordRejection(name string)                    {}

// ErrorClassifier decides which errors count toward tripping the
// breaker. Returning false means the error is the caller's problem, not
// the service's.
type ErrorClassifier func(error) bool

// DefaultErrorClassifier counts infrastructure failures only. Bad input,
// missing resources, invalid state transitions, and client cancellation
// say nothing about the downstream service's health.
func DefaultErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if core.IsConfigurationError(err) || core.IsNotFound(err) || core.IsStateError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, core.ErrContextCanceled) {
		return false
	}
	return true
}

// ProviderErrorClassifier is DefaultErrorClassifier tuned for outbound
// AI provider calls: a rate-limit response is the provider telling us to
// slow down, not failing, so it doesn't count the way a connection error
// or 5xx does.
func ProviderErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if core.KindOf(err) == core.KindRateLimit {
		return false
	}
	return DefaultErrorClassifier(err)
}

// CircuitBreakerConfig tunes one breaker. Two trip modes coexist:
// FailureThreshold (consecutive-failure count, simplest to reason about
// in tests and per-provider settings) and ErrorThreshold+VolumeThreshold
// (error rate over the sliding window, better under sustained load).
// When FailureThreshold is zero only the rate mode applies.
type CircuitBreakerConfig struct {
	Name string

	FailureThreshold int
	RecoveryTimeout  time.Duration

	ErrorThreshold   float64       // error rate in [0,1] that opens the breaker
	VolumeThreshold  int           // minimum window requests before rate is trusted
	SleepWindow      time.Duration // open duration before probing
	HalfOpenRequests int           // probe budget while half-open
	SuccessThreshold float64       // probe success rate needed to close

	WindowSize  time.Duration
	BucketCount int

	ErrorClassifier ErrorClassifier
	Logger          core.Logger
	Metrics         MetricsCollector
}

// DefaultConfig returns production-ready settings: open at a 50% error
// rate over at least 10 requests, probe after 30s.
func DefaultConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             "default",
		ErrorThreshold:   0.5,
		VolumeThreshold:  10,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 5,
		SuccessThreshold: 0.6,
		WindowSize:       60 * time.Second,
		BucketCount:      10,
		ErrorClassifier:  DefaultErrorClassifier,
		Logger:           &core.NoOpLogger{},
		Metrics:          &noopMetrics{},
	}
}

// Validate rejects configurations whose thresholds are outside their
// meaningful ranges.
func (c *CircuitBreakerConfig) Validate() error {
	if c == nil {
		return errors.New("configuration cannot be nil")
	}
	if c.Name == "" {
		return errors.New("circuit breaker name is required")
	}
	if c.ErrorThreshold < 0 || c.ErrorThreshold > 1 {
		return fmt.Errorf("error threshold must be between 0 and 1, got %f", c.ErrorThreshold)
	}
	if c.SuccessThreshold < 0 || c.SuccessThreshold > 1 {
		return fmt.Errorf("success threshold must be between 0 and 1, got %f", c.SuccessThreshold)
	}
	if c.VolumeThreshold < 0 {
		return fmt.Errorf("volume threshold must be non-negative, got %d", c.VolumeThreshold)
	}
	if c.SleepWindow < 0 {
		return fmt.Errorf("sleep window must be non-negative, got %v", c.SleepWindow)
	}
	if c.WindowSize < 0 {
		return fmt.Errorf("window size must be non-negative, got %v", c.WindowSize)
	}
	return nil
}

// CircuitBreaker guards calls to one downstream service. State reads are
// atomic so the hot admission path takes no lock; the mutex serialises
// transitions only.
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	state          atomic.Value // CircuitState
	stateChangedAt atomic.Value // time.Time

	window *slidingWindow

	// Half-open probe accounting.
	halfOpenTotal     atomic.Int32 // probes admitted this half-open period
	halfOpenInFlight  atomic.Int32
	halfOpenSuccesses atomic.Int32
	halfOpenFailures  atomic.Int32

	forceOpen   atomic.Bool
	forceClosed atomic.Bool

	consecutiveFailures atomic.Int32

	listeners []func(name string, from, to CircuitState)

	executionsInFlight atomic.Int32
	totalExecutions    atomic.Uint64
	rejectedExecutions atomic.Uint64

	mu sync.Mutex
}

// NewCircuitBreaker validates config (nil picks DefaultConfig) and
// builds the breaker in the closed state.
func NewCircuitBreaker(config *CircuitBreakerConfig) (*CircuitBreaker, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}

	if config.WindowSize == 0 {
		config.WindowSize = 60 * time.Second
	}
	if config.BucketCount <= 0 {
		config.BucketCount = 10
	}
	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultErrorClassifier
	}
	if config.Logger == nil {
		config.Logger = &core.NoOpLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = &noopMetrics{}
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 0.6
	}
	if config.HalfOpenRequests == 0 {
		config.HalfOpenRequests = 5
	}
	if config.SleepWindow == 0 && config.RecoveryTimeout > 0 {
		config.SleepWindow = config.RecoveryTimeout
	}

	cb := &CircuitBreaker{
		config: config,
		window: newSlidingWindow(config.WindowSize, config.BucketCount),
	}
	cb.state.Store(StateClosed)
	cb.stateChangedAt.Store(time.Now())
	return cb, nil
}

// NewCircuitBreakerWithConfig is NewCircuitBreaker that swallows the
// error; invalid config yields a nil breaker.
func NewCircuitBreakerWithConfig(config *CircuitBreakerConfig) *CircuitBreaker {
	cb, _ := NewCircuitBreaker(config)
	return cb
}

// NewCircuitBreakerLegacy builds a simple consecutive-failure breaker:
// open after failureThreshold failures in a row, one probe after
// recoveryTimeout.
func NewCircuitBreakerLegacy(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	cb, _ := NewCircuitBreaker(&CircuitBreakerConfig{
		Name:             "legacy",
		FailureThreshold: failureThreshold,
		SleepWindow:      recoveryTimeout,
		ErrorThreshold:   0.5,
		VolumeThreshold:  0, // rate mode off: only the failure streak trips
		HalfOpenRequests: 1,
		SuccessThreshold: 0.5,
	})
	return cb
}

// SetLogger replaces the breaker's logger, tagging component-aware
// loggers with this package's component name.
func (cb *CircuitBreaker) SetLogger(logger core.Logger) {
	if logger == nil {
		cb.config.Logger = &core.NoOpLogger{}
		return
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		cb.config.Logger = cal.WithComponent("resilience")
	} else {
		cb.config.Logger = logger
	}
}

// Execute runs fn under the breaker with no additional timeout.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	return cb.ExecuteWithTimeout(ctx, 0, fn)
}

// ExecuteWithTimeout runs fn under the breaker, bounded by timeout when
// non-zero. fn runs in its own goroutine so a hung call cannot wedge the
// caller past its deadline; a call that outlives its context still has
// its eventual outcome recorded.
func (cb *CircuitBreaker) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	probe, allowed := cb.admit()
	if !allowed {
		cb.rejectedExecutions.Add(1)
		cb.config.Metrics.RecordRejection(cb.config.Name)
		return fmt.Errorf("circuit breaker '%s' is open: %w", cb.config.Name, core.ErrCircuitBreakerOpen)
	}

	cb.executionsInFlight.Add(1)
	defer cb.executionsInFlight.Add(-1)
	cb.totalExecutions.Add(1)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				cb.config.Logger.Error("Circuit breaker caught panic", map[string]interface{}{
					"name":  cb.config.Name,
					"panic": fmt.Sprintf("%v", r),
				})
				switch v := r.(type) {
				case error:
					done <- fmt.Errorf("panic in circuit breaker: %w\nStack:\n%s", v, stack)
				default:
					done <- fmt.Errorf("panic in circuit breaker: %v\nStack:\n%s", v, stack)
				}
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		cb.complete(probe, err)
		return err
	case <-ctx.Done():
		// The call is still running. Record its outcome whenever it
		// finishes so the window stays truthful.
		go func() {
			<-done
			cb.complete(probe, ctx.Err())
		}()
		return ctx.Err()
	}
}

// admit decides whether a call may proceed. The bool result is the
// decision; probe reports whether this call occupies a half-open slot.
func (cb *CircuitBreaker) admit() (probe bool, allowed bool) {
	if cb.forceClosed.Load() {
		return false, true
	}
	if cb.forceOpen.Load() {
		return false, false
	}

	switch cb.state.Load().(CircuitState) {
	case StateClosed:
		return false, true

	case StateOpen:
		changedAt := cb.stateChangedAt.Load().(time.Time)
		if time.Since(changedAt) <= cb.config.SleepWindow {
			return false, false
		}
		cb.mu.Lock()
		if cb.state.Load().(CircuitState) == StateOpen {
			cb.transitionLocked(StateHalfOpen)
		}
		cb.mu.Unlock()
		return cb.admit()

	case StateHalfOpen:
		// Reserve a probe slot atomically.
		for {
			current := cb.halfOpenTotal.Load()
			if int(current) >= cb.config.HalfOpenRequests {
				return false, false
			}
			if cb.halfOpenTotal.CompareAndSwap(current, current+1) {
				cb.halfOpenInFlight.Add(1)
				return true, true
			}
		}

	default:
		return false, false
	}
}

// complete records a call's outcome and re-evaluates state.
func (cb *CircuitBreaker) complete(probe bool, err error) {
	if cb.forceClosed.Load() || cb.forceOpen.Load() {
		return
	}

	if probe {
		cb.halfOpenInFlight.Add(-1)
	}

	if err == nil {
		cb.window.recordSuccess()
		cb.consecutiveFailures.Store(0)
		cb.config.Metrics.RecordSuccess(cb.config.Name)
		if probe {
			cb.halfOpenSuccesses.Add(1)
		}
	} else if cb.config.ErrorClassifier(err) {
		cb.window.recordFailure()
		cb.consecutiveFailures.Add(1)
		cb.config.Metrics.RecordFailure(cb.config.Name, errorTypeOf(err))
		if probe {
			cb.halfOpenFailures.Add(1)
		}
	}

	cb.evaluate()
}

func errorTypeOf(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "DeadlineExceeded"
	}
	if errors.Is(err, context.Canceled) {
		return "Canceled"
	}
	var ve *core.VantageError
	if errors.As(err, &ve) {
		return string(ve.Kind)
	}
	return fmt.Sprintf("%T", err)
}

// evaluate applies the trip and recovery rules after each outcome.
func (cb *CircuitBreaker) evaluate() {
	switch cb.state.Load().(CircuitState) {
	case StateClosed:
		if cb.config.FailureThreshold > 0 &&
			int(cb.consecutiveFailures.Load()) >= cb.config.FailureThreshold {
			cb.mu.Lock()
			cb.transitionLocked(StateOpen)
			cb.mu.Unlock()
			return
		}
		total := cb.window.total()
		if cb.config.VolumeThreshold > 0 && total >= uint64(cb.config.VolumeThreshold) &&
			cb.window.errorRate() >= cb.config.ErrorThreshold {
			cb.mu.Lock()
			cb.transitionLocked(StateOpen)
			cb.mu.Unlock()
		}

	case StateHalfOpen:
		successes := cb.halfOpenSuccesses.Load()
		failures := cb.halfOpenFailures.Load()
		decided := successes + failures
		if int(decided) < cb.config.HalfOpenRequests {
			return
		}

		successRate := float64(successes) / float64(decided)
		cb.mu.Lock()
		if cb.state.Load().(CircuitState) != StateHalfOpen {
			cb.mu.Unlock()
			return
		}
		if successRate >= cb.config.SuccessThreshold {
			cb.transitionLocked(StateClosed)
			cb.consecutiveFailures.Store(0)
		} else {
			cb.transitionLocked(StateOpen)
			// Back off harder each failed recovery, capped at 5 minutes.
			cb.config.SleepWindow = time.Duration(float64(cb.config.SleepWindow) * 1.5)
			if cb.config.SleepWindow > 5*time.Minute {
				cb.config.SleepWindow = 5 * time.Minute
			}
		}
		cb.mu.Unlock()
	}
}

// transitionLocked changes state; cb.mu must be held.
func (cb *CircuitBreaker) transitionLocked(newState CircuitState) {
	oldState := cb.state.Load().(CircuitState)
	if oldState == newState {
		return
	}

	cb.state.Store(newState)
	cb.stateChangedAt.Store(time.Now())

	if newState == StateHalfOpen {
		cb.halfOpenTotal.Store(0)
		cb.halfOpenInFlight.Store(0)
		cb.halfOpenSuccesses.Store(0)
		cb.halfOpenFailures.Store(0)
	}

	cb.config.Logger.Info("Circuit breaker state changed", map[string]interface{}{
		"name":       cb.config.Name,
		"from":       oldState.String(),
		"to":         newState.String(),
		"error_rate": cb.window.errorRate(),
	})
	cb.config.Metrics.RecordStateChange(cb.config.Name, oldState.String(), newState.String())

	for _, listener := range cb.listeners {
		go listener(cb.config.Name, oldState, newState)
	}
}

// AddStateChangeListener registers a callback invoked (on its own
// goroutine) after every state transition.
func (cb *CircuitBreaker) AddStateChangeListener(listener func(name string, from, to CircuitState)) {
	cb.mu.Lock()
	cb.listeners = append(cb.listeners, listener)
	cb.mu.Unlock()
}

// GetState returns the state as "closed", "open", or "half-open".
func (cb *CircuitBreaker) GetState() string {
	return cb.state.Load().(CircuitState).String()
}

// GetMetrics returns a point-in-time snapshot for dashboards.
func (cb *CircuitBreaker) GetMetrics() map[string]interface{} {
	success, failure := cb.window.counts()
	metrics := map[string]interface{}{
		"name":                 cb.config.Name,
		"state":                cb.GetState(),
		"success":              success,
		"failure":              failure,
		"total":                success + failure,
		"error_rate":           cb.window.errorRate(),
		"force_open":           cb.forceOpen.Load(),
		"force_closed":         cb.forceClosed.Load(),
		"executions_in_flight": cb.executionsInFlight.Load(),
		"total_executions":     cb.totalExecutions.Load(),
		"rejected_executions":  cb.rejectedExecutions.Load(),
	}
	if cb.state.Load().(CircuitState) == StateHalfOpen {
		metrics["half_open_in_flight"] = cb.halfOpenInFlight.Load()
		metrics["half_open_successes"] = cb.halfOpenSuccesses.Load()
		metrics["half_open_failures"] = cb.halfOpenFailures.Load()
	}
	return metrics
}

// Reset forces the breaker closed and clears its window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.Store(StateClosed)
	cb.stateChangedAt.Store(time.Now())
	cb.consecutiveFailures.Store(0)
	cb.halfOpenTotal.Store(0)
	cb.halfOpenInFlight.Store(0)
	cb.halfOpenSuccesses.Store(0)
	cb.halfOpenFailures.Store(0)
	cb.window = newSlidingWindow(cb.config.WindowSize, cb.config.BucketCount)

	cb.config.Logger.Info("Circuit breaker reset", map[string]interface{}{
		"name": cb.config.Name,
	})
}

// ForceOpen pins the breaker open until ClearForce.
func (cb *CircuitBreaker) ForceOpen() {
	cb.forceOpen.Store(true)
	cb.forceClosed.Store(false)
	cb.mu.Lock()
	if cb.state.Load().(CircuitState) != StateOpen {
		cb.transitionLocked(StateOpen)
	}
	cb.mu.Unlock()
}

// ForceClosed pins the breaker closed until ClearForce.
func (cb *CircuitBreaker) ForceClosed() {
	cb.forceClosed.Store(true)
	cb.forceOpen.Store(false)
	cb.mu.Lock()
	if cb.state.Load().(CircuitState) != StateClosed {
		cb.transitionLocked(StateClosed)
	}
	cb.mu.Unlock()
}

// ClearForce removes a manual pin.
func (cb *CircuitBreaker) ClearForce() {
	cb.forceOpen.Store(false)
	cb.forceClosed.Store(false)
}

// CanExecute reports whether a call would currently be admitted, without
// reserving a half-open slot.
func (cb *CircuitBreaker) CanExecute() bool {
	if cb.forceClosed.Load() {
		return true
	}
	if cb.forceOpen.Load() {
		return false
	}
	switch cb.state.Load().(CircuitState) {
	case StateClosed:
		return true
	case StateOpen:
		changedAt := cb.stateChangedAt.Load().(time.Time)
		if time.Since(changedAt) > cb.config.SleepWindow {
			cb.mu.Lock()
			if cb.state.Load().(CircuitState) == StateOpen {
				cb.transitionLocked(StateHalfOpen)
			}
			cb.mu.Unlock()
			return true
		}
		return false
	default:
		return int(cb.halfOpenTotal.Load()) < cb.config.HalfOpenRequests
	}
}

// RecordSuccess feeds an externally-observed success into the window,
// for callers that do their own execution.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.window.recordSuccess()
	cb.consecutiveFailures.Store(0)
	cb.evaluate()
}

// RecordFailure feeds an externally-observed failure into the window.
func (cb *CircuitBreaker) RecordFailure() {
	cb.window.recordFailure()
	cb.consecutiveFailures.Add(1)
	cb.evaluate()
}

// slidingWindow counts successes and failures over a rolling period,
// bucketed so old traffic ages out smoothly. Monotonic elapsed time
// drives rotation, so a wall-clock jump cannot corrupt the counts.
type slidingWindow struct {
	mu           sync.Mutex
	buckets      []windowBucket
	windowSize   time.Duration
	bucketSize   time.Duration
	currentIdx   int
	lastRotation time.Time
}

type windowBucket struct {
	timestamp time.Time
	success   uint64
	failure   uint64
}

func newSlidingWindow(windowSize time.Duration, bucketCount int) *slidingWindow {
	if bucketCount <= 0 {
		bucketCount = 10
	}
	now := time.Now()
	buckets := make([]windowBucket, bucketCount)
	for i := range buckets {
		buckets[i].timestamp = now
	}
	return &slidingWindow{
		buckets:      buckets,
		windowSize:   windowSize,
		bucketSize:   windowSize / time.Duration(bucketCount),
		lastRotation: now,
	}
}

// rotate advances past stale buckets; callers hold sw.mu.
func (sw *slidingWindow) rotate() {
	now := time.Now()
	elapsed := now.Sub(sw.lastRotation)
	if elapsed < sw.bucketSize {
		return
	}

	steps := int(elapsed / sw.bucketSize)
	if steps > len(sw.buckets) {
		steps = len(sw.buckets)
	}
	for i := 0; i < steps; i++ {
		sw.currentIdx = (sw.currentIdx + 1) % len(sw.buckets)
		sw.buckets[sw.currentIdx] = windowBucket{timestamp: now}
	}
	sw.lastRotation = now
}

func (sw *slidingWindow) recordSuccess() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.rotate()
	sw.buckets[sw.currentIdx].success++
}

func (sw *slidingWindow) recordFailure() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.rotate()
	sw.buckets[sw.currentIdx].failure++
}

func (sw *slidingWindow) counts() (success, failure uint64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	cutoff := time.Now().Add(-sw.windowSize)
	for i := range sw.buckets {
		if sw.buckets[i].timestamp.After(cutoff) {
			success += sw.buckets[i].success
			failure += sw.buckets[i].failure
		}
	}
	return success, failure
}

func (sw *slidingWindow) errorRate() float64 {
	success, failure := sw.counts()
	total := success + failure
	if total == 0 {
		return 0
	}
	return float64(failure) / float64(total)
}

func (sw *slidingWindow) total() uint64 {
	success, failure := sw.counts()
	return success + failure
}
