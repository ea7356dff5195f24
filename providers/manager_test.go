package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/resilience"
)

type fakeClient struct {
	name    string
	stats   Stats
	cost    CostEstimate
	health  Health
	results []string
	errs    []error
	calls   int
}

func (f *fakeClient) ResearchQuery(ctx context.Context, query string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return "ok", nil
}

func (f *fakeClient) Metadata() Metadata                    { return Metadata{Name: f.name} }
func (f *fakeClient) HealthCheck(ctx context.Context) Health { return f.health }
func (f *fakeClient) EstimateCost(query string) CostEstimate { return f.cost }
func (f *fakeClient) UsageStats() Stats                      { return f.stats }
func (f *fakeClient) SupportsModel(name string) bool         { return true }
func (f *fakeClient) DefaultModel() string                   { return "default" }

func TestManagerRoundRobinCyclesThroughProviders(t *testing.T) {
	m := NewManager(ManagerConfig{Strategy: StrategyRoundRobin}, nil)
	m.Register("a", &fakeClient{name: "a"})
	m.Register("b", &fakeClient{name: "b"})

	first, err := m.Select(StrategyRoundRobin, "", "", nil)
	require.NoError(t, err)
	second, err := m.Select(StrategyRoundRobin, "", "", nil)
	require.NoError(t, err)
	third, err := m.Select(StrategyRoundRobin, "", "", nil)
	require.NoError(t, err)

	assert.Equal(t, first, third)
	assert.NotEqual(t, first, second)
}

func TestManagerLowestLatencyPicksFastest(t *testing.T) {
	m := NewManager(ManagerConfig{}, nil)
	m.Register("slow", &fakeClient{name: "slow", stats: Stats{AvgLatencyMs: 500}})
	m.Register("fast", &fakeClient{name: "fast", stats: Stats{AvgLatencyMs: 50}})

	name, err := m.Select(StrategyLowestLatency, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "fast", name)
}

func TestManagerHighestSuccessRatePicksMostReliable(t *testing.T) {
	m := NewManager(ManagerConfig{}, nil)
	m.Register("flaky", &fakeClient{name: "flaky", stats: Stats{Total: 10, Successful: 5}})
	m.Register("solid", &fakeClient{name: "solid", stats: Stats{Total: 10, Successful: 9}})

	name, err := m.Select(StrategyHighestSuccessRate, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "solid", name)
}

func TestManagerCostOptimizedPicksCheapest(t *testing.T) {
	m := NewManager(ManagerConfig{}, nil)
	m.Register("pricey", &fakeClient{name: "pricey", cost: CostEstimate{TotalCostUSD: 1.0}})
	m.Register("cheap", &fakeClient{name: "cheap", cost: CostEstimate{TotalCostUSD: 0.01}})

	name, err := m.Select(StrategyCostOptimized, "", "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "cheap", name)
}

func TestManagerResearchTypeOptimizedConsultsTable(t *testing.T) {
	m := NewManager(ManagerConfig{
		ResearchTypeQuality: map[ResearchType]map[string]float64{
			ResearchDecision: {"a": 0.2, "b": 0.9},
		},
	}, nil)
	m.Register("a", &fakeClient{name: "a"})
	m.Register("b", &fakeClient{name: "b"})

	name, err := m.Select(StrategyResearchTypeOptimized, ResearchDecision, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "b", name)
}

func TestManagerSelectExcludesUnhealthyProviders(t *testing.T) {
	m := NewManager(ManagerConfig{Strategy: StrategyRoundRobin}, nil)
	m.Register("good", &fakeClient{name: "good", health: Health{Status: "healthy"}})
	m.Register("bad", &fakeClient{name: "bad", health: Health{Status: "unhealthy"}})

	m.HealthCheckAll(context.Background())

	for i := 0; i < 5; i++ {
		name, err := m.Select(StrategyRoundRobin, "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "good", name)
	}
}

func TestManagerRegisterAdapterExcludesProviderOnceItsBreakerTrips(t *testing.T) {
	m := NewManager(ManagerConfig{Strategy: StrategyRoundRobin}, nil)

	tripped := NewAdapter("tripped", &stubBackend{response: &core.AIResponse{Content: "ok"}}, testPricing(), DefaultSettings())
	tripped, err := tripped.WithCircuitBreaker(resilience.ResilienceDependencies{})
	require.NoError(t, err)
	m.RegisterAdapter(tripped)

	steady := NewAdapter("steady", &stubBackend{response: &core.AIResponse{Content: "ok"}}, testPricing(), DefaultSettings())
	m.RegisterAdapter(steady)

	for i := 0; i < 4; i++ {
		name, err := m.Select(StrategyRoundRobin, "", "", nil)
		require.NoError(t, err)
		assert.Contains(t, []string{"tripped", "steady"}, name)
	}

	tripped.breaker.ForceOpen()

	for i := 0; i < 4; i++ {
		name, err := m.Select(StrategyRoundRobin, "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "steady", name, "the tripped provider's breaker should exclude it from selection")
	}
}

func TestManagerExecuteResearchFailsOverToNextProvider(t *testing.T) {
	m := NewManager(ManagerConfig{Strategy: StrategyRoundRobin, EnableFailover: true, MaxFailoverAttempts: 2}, nil)
	m.Register("broken", &fakeClient{name: "broken", errs: []error{assertErr("boom")}})
	m.Register("working", &fakeClient{name: "working", results: []string{"answer"}})

	result, used, err := m.ExecuteResearch(context.Background(), "", "query")
	require.NoError(t, err)
	assert.Equal(t, "answer", result)
	assert.Equal(t, "working", used)
}

func TestManagerGetPerformanceStatsAggregatesAllProviders(t *testing.T) {
	m := NewManager(ManagerConfig{}, nil)
	m.Register("a", &fakeClient{name: "a", stats: Stats{Total: 3}})
	m.Register("b", &fakeClient{name: "b", stats: Stats{Total: 7}})

	stats := m.GetPerformanceStats()
	assert.Equal(t, uint64(3), stats["a"].Total)
	assert.Equal(t, uint64(7), stats["b"].Total)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
