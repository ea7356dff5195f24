package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/resilience"
)

type stubBackend struct {
	response *core.AIResponse
	err      error
	delay    time.Duration
}

func (s *stubBackend) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func testPricing() PricingTable {
	return PricingTable{
		"gpt-test": {Model: "gpt-test", InputCostPerToken: 0.00001, OutputCostPerToken: 0.00002, ContextLength: 8192},
	}
}

func TestAdapterResearchQueryRejectsBlankQuery(t *testing.T) {
	a := NewAdapter("stub", &stubBackend{response: &core.AIResponse{Content: "ok"}}, testPricing(), DefaultSettings())

	_, err := a.ResearchQuery(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func TestAdapterResearchQuerySucceedsAndRecordsStats(t *testing.T) {
	a := NewAdapter("stub", &stubBackend{response: &core.AIResponse{Content: "the answer"}}, testPricing(), DefaultSettings())

	out, err := a.ResearchQuery(context.Background(), "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)

	stats := a.UsageStats()
	assert.Equal(t, uint64(1), stats.Total)
	assert.Equal(t, uint64(1), stats.Successful)
	assert.Equal(t, 1.0, stats.SuccessRate())
}

func TestAdapterResearchQueryMapsBackendError(t *testing.T) {
	a := NewAdapter("stub", &stubBackend{err: errors.New("received 429 too many requests")}, testPricing(), DefaultSettings())

	_, err := a.ResearchQuery(context.Background(), "a real query")
	require.Error(t, err)
	assert.Equal(t, core.KindRateLimit, core.KindOf(err))

	stats := a.UsageStats()
	assert.Equal(t, uint64(1), stats.Failed)
}

func TestAdapterHealthCheckMapsStatuses(t *testing.T) {
	healthy := NewAdapter("stub", &stubBackend{response: &core.AIResponse{Content: "pong"}}, testPricing(), DefaultSettings())
	assert.Equal(t, core.HealthHealthy, healthy.HealthCheck(context.Background()).Status)

	degraded := NewAdapter("stub", &stubBackend{err: errors.New("quota exceeded")}, testPricing(), DefaultSettings())
	assert.Equal(t, core.HealthDegraded, degraded.HealthCheck(context.Background()).Status)

	unhealthy := NewAdapter("stub", &stubBackend{err: errors.New("connection refused")}, testPricing(), DefaultSettings())
	assert.Equal(t, core.HealthUnhealthy, unhealthy.HealthCheck(context.Background()).Status)
}

func TestAdapterEstimateCostUsesPricingTable(t *testing.T) {
	settings := DefaultSettings()
	settings.Model = "gpt-test"
	a := NewAdapter("stub", &stubBackend{response: &core.AIResponse{Content: "ok"}}, testPricing(), settings)

	cost := a.EstimateCost("0123456789012345") // 16 chars -> 4 input tokens
	assert.Equal(t, 4, cost.InputTokens)
	assert.Greater(t, cost.TotalCostUSD, 0.0)
}

func TestAdapterSupportsModel(t *testing.T) {
	a := NewAdapter("stub", &stubBackend{}, testPricing(), DefaultSettings())
	assert.True(t, a.SupportsModel("gpt-test"))
	assert.False(t, a.SupportsModel("unknown-model"))
}

func TestAdapterWithCircuitBreakerRejectsCallsOnceOpen(t *testing.T) {
	a := NewAdapter("stub", &stubBackend{response: &core.AIResponse{Content: "ok"}}, testPricing(), DefaultSettings())
	a, err := a.WithCircuitBreaker(resilience.ResilienceDependencies{})
	require.NoError(t, err)
	require.False(t, a.BreakerOpen())

	out, err := a.ResearchQuery(context.Background(), "warm the breaker")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	a.breaker.ForceOpen()
	require.True(t, a.BreakerOpen())

	_, err = a.ResearchQuery(context.Background(), "should be rejected")
	require.Error(t, err)
	assert.Equal(t, core.KindCircuitBreakerOpen, core.KindOf(err))
	assert.True(t, core.IsCircuitBreakerOpen(err))
}
