package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/ratelimit"
	"github.com/relabs-io/vantage/resilience"
	"github.com/relabs-io/vantage/telemetry"
)

// rollingWindow keeps a bounded history of float samples and reports
// their mean, grounding "rolling average latency (bounded window)" and
// rolling quality signal read by Balanced selection.
type rollingWindow struct {
	mu      sync.Mutex
	samples []float64
	max     int
}

func newRollingWindow(max int) *rollingWindow {
	if max <= 0 {
		max = 100
	}
	return &rollingWindow{max: max}
}

func (w *rollingWindow) add(v float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = append(w.samples, v)
	if len(w.samples) > w.max {
		w.samples = w.samples[len(w.samples)-w.max:]
	}
}

func (w *rollingWindow) mean() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range w.samples {
		sum += s
	}
	return sum / float64(len(w.samples))
}

// Adapter implements the Client contract over any core.AIClient
// generation backend (the concrete providers/providers/{openai,...}
// clients), adding rate limiting, cost estimation, health mapping, and
// stats tracking around the bare GenerateResponse call.
//
// Adapter owns its Stats under its own lock (writes happen only
// inside the owning provider"); Manager reads a point-in-time copy via
// UsageStats.
type Adapter struct {
	name     string
	backend  core.AIClient
	pricing  PricingTable
	settings Settings
	limiter  *ratelimit.ProviderLimiter
	breaker  *resilience.CircuitBreaker        // optional; nil means no breaking, see WithCircuitBreaker
	probe    func(ctx context.Context) error // used by HealthCheck; defaults to a cheap GenerateResponse

	mu         sync.Mutex
	total      uint64
	successful uint64
	failed     uint64
	latency    *rollingWindow
	quality    *rollingWindow
}

// NewAdapter wraps backend (a concrete core.AIClient) as a providers.Client
// named name, pricing queries per pricing, and enforcing settings.RateLimit.
func NewAdapter(name string, backend core.AIClient, pricing PricingTable, settings Settings) *Adapter {
	return &Adapter{
		name:     name,
		backend:  backend,
		pricing:  pricing,
		settings: settings,
		limiter: ratelimit.NewProviderLimiter(name, ratelimit.ProviderLimiterConfig{
			RequestsPerMinute:     settings.RateLimit.RequestsPerMinute,
			InputTokensPerMinute:  settings.RateLimit.InputTokensPerMinute,
			OutputTokensPerMinute: settings.RateLimit.OutputTokensPerMinute,
			MaxConcurrent:         settings.RateLimit.MaxConcurrent,
		}),
		latency: newRollingWindow(200),
		quality: newRollingWindow(200),
	}
}

var _ Client = (*Adapter)(nil)

// WithCircuitBreaker attaches a per-provider resilience.CircuitBreaker to
// the adapter, named "provider:<name>" so its metrics and logs identify
// which backend tripped. Once attached, ResearchQuery routes the backend
// call through the breaker, and BreakerOpen reports the breaker's current
// state for Manager.SetBreakerPredicate (selection excludes
// providers whose breaker is Open").
func (a *Adapter) WithCircuitBreaker(deps resilience.ResilienceDependencies) (*Adapter, error) {
	breaker, err := resilience.CreateProviderCircuitBreaker(a.name, deps)
	if err != nil {
		return a, fmt.Errorf("providers: creating circuit breaker for %q: %w", a.name, err)
	}
	a.breaker = breaker
	return a, nil
}

// BreakerOpen reports whether this adapter's circuit breaker (if any) is
// currently open. A nil breaker (WithCircuitBreaker never called) is
// always reported closed.
func (a *Adapter) BreakerOpen() bool {
	if a.breaker == nil {
		return false
	}
	return a.breaker.GetState() == resilience.StateOpen.String()
}

// ResearchQuery validates the query, acquires limiter permits sized
// by estimated tokens, call the backend under a per-request timeout,
// record stats, and map any error onto the core taxonomy.
func (a *Adapter) ResearchQuery(ctx context.Context, query string) (string, error) {
	if isBlank(query) {
		return "", core.New("providers.Client.ResearchQuery", a.name, core.KindValidation, "query must not be empty or whitespace", nil)
	}

	inputTokens, outputTokens := EstimateTokens(query)
	guard, err := a.limiter.Acquire(inputTokens, outputTokens)
	if err != nil {
		return "", err
	}
	defer guard.Release()

	reqCtx := ctx
	var cancel context.CancelFunc
	if a.settings.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, a.settings.Timeout)
		defer cancel()
	}

	start := time.Now()
	var content string
	var genErr error
	if a.breaker != nil {
		genErr = a.breaker.Execute(reqCtx, func() error {
			resp, err := a.backend.GenerateResponse(reqCtx, query, &core.AIOptions{Model: a.settings.Model})
			if err != nil {
				return err
			}
			content = resp.Content
			return nil
		})
		if genErr != nil && a.BreakerOpen() {
			genErr = core.New("providers.Client.ResearchQuery", a.name, core.KindCircuitBreakerOpen, "provider circuit breaker is open", genErr)
		}
	} else {
		resp, err := a.backend.GenerateResponse(reqCtx, query, &core.AIOptions{Model: a.settings.Model})
		genErr = err
		if err == nil {
			content = resp.Content
		}
	}
	elapsed := time.Since(start)

	if genErr != nil {
		a.recordFailure()
		telemetry.RecordAIRequest(telemetry.ComponentProviders, a.name, float64(elapsed.Milliseconds()), "error")
		if core.IsCircuitBreakerOpen(genErr) {
			return "", genErr
		}
		return "", MapGenerationError(a.name, genErr)
	}

	telemetry.RecordAIRequest(telemetry.ComponentProviders, a.name, float64(elapsed.Milliseconds()), "success")
	a.recordSuccess(elapsed, 1.0)
	return content, nil
}

func (a *Adapter) recordSuccess(elapsed time.Duration, quality float64) {
	a.mu.Lock()
	a.total++
	a.successful++
	a.mu.Unlock()
	a.latency.add(float64(elapsed.Milliseconds()))
	a.quality.add(quality)
}

func (a *Adapter) recordFailure() {
	a.mu.Lock()
	a.total++
	a.failed++
	a.mu.Unlock()
}

// Metadata reports the adapter's static capabilities.
func (a *Adapter) Metadata() Metadata {
	models := make([]string, 0, len(a.pricing))
	maxContext := 0
	for model, row := range a.pricing {
		models = append(models, model)
		if row.ContextLength > maxContext {
			maxContext = row.ContextLength
		}
	}
	return Metadata{
		Name:             a.name,
		Version:          "1",
		CapabilityTags:   []string{"research", "rate_limited"},
		SupportedModels:  models,
		MaxContextLength: maxContext,
		RateLimitSummary: fmt.Sprintf("%d req/min, %d concurrent", a.settings.RateLimit.RequestsPerMinute, a.settings.RateLimit.MaxConcurrent),
	}
}

// HealthCheck issues a minimal probe and maps the
// outcome onto Healthy/Degraded/Unhealthy.
func (a *Adapter) HealthCheck(ctx context.Context) Health {
	probe := a.probe
	if probe == nil {
		probe = func(ctx context.Context) error {
			_, err := a.backend.GenerateResponse(ctx, "ping", &core.AIOptions{Model: a.settings.Model, MaxTokens: 1})
			return err
		}
	}

	err := probe(ctx)
	if err == nil {
		return Health{Status: core.HealthHealthy}
	}

	kind := core.KindOf(MapGenerationError(a.name, err))
	switch kind {
	case core.KindRateLimit, core.KindResourceExhaustion:
		return Health{Status: core.HealthDegraded, Reason: err.Error()}
	case core.KindPermanent, core.KindNetwork, core.KindExternalService, core.KindTimeout:
		return Health{Status: core.HealthUnhealthy, Reason: err.Error()}
	default:
		return Health{Status: core.HealthUnhealthy, Reason: err.Error()}
	}
}

// EstimateCost is deterministic and performs no remote I/O.
func (a *Adapter) EstimateCost(query string) CostEstimate {
	return a.pricing.EstimateCostForModel(a.settings.Model, query)
}

// UsageStats returns a point-in-time snapshot safe to read
// without blocking ResearchQuery callers.
func (a *Adapter) UsageStats() Stats {
	a.mu.Lock()
	total, successful, failed := a.total, a.successful, a.failed
	a.mu.Unlock()
	return Stats{
		Total:        total,
		Successful:   successful,
		Failed:       failed,
		AvgLatencyMs: a.latency.mean(),
		AvgQuality:   a.quality.mean(),
	}
}

func (a *Adapter) SupportsModel(name string) bool {
	_, ok := a.pricing[name]
	return ok
}

func (a *Adapter) DefaultModel() string {
	return a.settings.Model
}
