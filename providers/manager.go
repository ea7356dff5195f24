package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/telemetry"
)

// ResearchType is declared here (rather than in package research) so
// both providers.Manager's ResearchTypeOptimized strategy and
// research.ClassifiedRequest can share one type without an import
// cycle; research re-exports it as research.ResearchType.
type ResearchType string

const (
	ResearchDecision        ResearchType = "decision"
	ResearchImplementation  ResearchType = "implementation"
	ResearchTroubleshooting ResearchType = "troubleshooting"
	ResearchLearning        ResearchType = "learning"
	ResearchValidation      ResearchType = "validation"
)

// SelectionStrategy names one of the provider selection rules.
type SelectionStrategy string

const (
	StrategyRoundRobin            SelectionStrategy = "round_robin"
	StrategyLowestLatency         SelectionStrategy = "lowest_latency"
	StrategyHighestSuccessRate    SelectionStrategy = "highest_success_rate"
	StrategyCostOptimized         SelectionStrategy = "cost_optimized"
	StrategyBalanced              SelectionStrategy = "balanced"
	StrategyResearchTypeOptimized SelectionStrategy = "research_type_optimized"
)

// BalancedWeights configures the Balanced strategy's weighted score:
// w_latency*norm(latency) + w_quality*quality + w_cost*norm(cost).
type BalancedWeights struct {
	Latency float64
	Quality float64
	Cost    float64
}

// DefaultBalancedWeights favours quality slightly over latency and cost.
func DefaultBalancedWeights() BalancedWeights {
	return BalancedWeights{Latency: 0.3, Quality: 0.4, Cost: 0.3}
}

// ManagerConfig tunes a Manager's behaviour.
type ManagerConfig struct {
	Strategy             SelectionStrategy
	EnableFailover       bool
	MaxFailoverAttempts  int
	BalancedWeights      BalancedWeights
	// ResearchTypeQuality maps research-type -> provider name -> a
	// quality score in [0,1], consulted by ResearchTypeOptimized.
	ResearchTypeQuality map[ResearchType]map[string]float64
	HealthCheckTimeout  time.Duration
}

// DefaultManagerConfig returns conservative defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Strategy:            StrategyBalanced,
		EnableFailover:      true,
		MaxFailoverAttempts: 2,
		BalancedWeights:     DefaultBalancedWeights(),
		HealthCheckTimeout:  5 * time.Second,
	}
}

type providerEntry struct {
	name   string
	client Client

	mu          sync.Mutex
	lastHealth  Health
	checkedOnce bool
	rrCounter   uint64
}

// Manager holds a name -> provider map plus aggregated statistics, and
// implements selection, failover, and fan-out health checking.
// Manager owns its providers; providers never hold a back-reference to
// Manager, so stats flow upward by snapshot copy only.
type Manager struct {
	mu        sync.Mutex
	providers map[string]*providerEntry
	order     []string // insertion order, for deterministic round robin
	rrIndex   uint64
	breakers  map[string]func() bool // optional: name -> "is breaker open" predicate

	cfg    ManagerConfig
	logger core.Logger
}

// NewManager builds an empty Manager.
func NewManager(cfg ManagerConfig, logger core.Logger) *Manager {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Manager{
		providers: make(map[string]*providerEntry),
		breakers:  make(map[string]func() bool),
		cfg:       cfg,
		logger:    logger,
	}
}

// Register adds or replaces a named provider.
func (m *Manager) Register(name string, client Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.providers[name]; !exists {
		m.order = append(m.order, name)
	}
	m.providers[name] = &providerEntry{name: name, client: client}
}

// RegisterAdapter registers client and, when client carries a
// resilience.CircuitBreaker (attached via Adapter.WithCircuitBreaker),
// wires its open/closed state into selection exclusion automatically, so
// callers don't need a separate SetBreakerPredicate call for the common
// case of an Adapter-backed provider.
func (m *Manager) RegisterAdapter(client *Adapter) {
	m.Register(client.name, client)
	m.SetBreakerPredicate(client.name, client.BreakerOpen)
}

// SetBreakerPredicate wires an "is this provider's circuit breaker open"
// check used by selection to exclude tripped providers ("Selection
// excludes providers whose breaker is Open").
func (m *Manager) SetBreakerPredicate(name string, isOpen func() bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakers[name] = isOpen
}

func (m *Manager) isExcluded(name string) bool {
	if pred, ok := m.breakers[name]; ok && pred != nil && pred() {
		return true
	}
	entry := m.providers[name]
	if entry == nil {
		return true
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.checkedOnce && entry.lastHealth.Status == core.HealthUnhealthy
}

// candidates returns the selectable provider names (not breaker-open,
// not last-known-unhealthy), excluding any name in skip.
func (m *Manager) candidates(skip map[string]bool) []string {
	var out []string
	for _, name := range m.order {
		if skip[name] {
			continue
		}
		if m.isExcluded(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Select picks one provider name per the configured strategy, excluding
// any name in skip. researchType is used only by ResearchTypeOptimized,
// and query only by CostOptimized and Balanced (also the fallback for an
// unknown strategy); pass "" when unused.
func (m *Manager) Select(strategy SelectionStrategy, researchType ResearchType, query string, skip map[string]bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.candidates(skip)
	if len(candidates) == 0 {
		return "", fmt.Errorf("no available provider (all excluded by breaker state or health)")
	}

	switch strategy {
	case StrategyRoundRobin:
		idx := m.rrIndex % uint64(len(candidates))
		m.rrIndex++
		return candidates[idx], nil

	case StrategyLowestLatency:
		sort.Slice(candidates, func(i, j int) bool {
			si := m.providers[candidates[i]].client.UsageStats()
			sj := m.providers[candidates[j]].client.UsageStats()
			if si.AvgLatencyMs != sj.AvgLatencyMs {
				return si.AvgLatencyMs < sj.AvgLatencyMs
			}
			return si.SuccessRate() > sj.SuccessRate()
		})
		return candidates[0], nil

	case StrategyHighestSuccessRate:
		sort.Slice(candidates, func(i, j int) bool {
			si := m.providers[candidates[i]].client.UsageStats()
			sj := m.providers[candidates[j]].client.UsageStats()
			if si.SuccessRate() != sj.SuccessRate() {
				return si.SuccessRate() > sj.SuccessRate()
			}
			return si.AvgLatencyMs < sj.AvgLatencyMs
		})
		return candidates[0], nil

	case StrategyCostOptimized:
		sort.Slice(candidates, func(i, j int) bool {
			ci := m.providers[candidates[i]].client.EstimateCost(query)
			cj := m.providers[candidates[j]].client.EstimateCost(query)
			return ci.TotalCostUSD < cj.TotalCostUSD
		})
		return candidates[0], nil

	case StrategyBalanced:
		return m.selectBalanced(candidates, query), nil

	case StrategyResearchTypeOptimized:
		return m.selectResearchTypeOptimized(candidates, researchType), nil

	default:
		return m.selectBalanced(candidates, query), nil
	}
}

func (m *Manager) selectBalanced(candidates []string, query string) string {
	w := m.cfg.BalancedWeights

	var maxLatency, maxCost float64
	type snap struct {
		name    string
		latency float64
		quality float64
		cost    float64
	}
	snaps := make([]snap, 0, len(candidates))
	for _, name := range candidates {
		stats := m.providers[name].client.UsageStats()
		cost := m.providers[name].client.EstimateCost(query).TotalCostUSD
		snaps = append(snaps, snap{name: name, latency: stats.AvgLatencyMs, quality: stats.AvgQuality, cost: cost})
		if stats.AvgLatencyMs > maxLatency {
			maxLatency = stats.AvgLatencyMs
		}
		if cost > maxCost {
			maxCost = cost
		}
	}

	best := snaps[0].name
	bestScore := -1.0
	for _, s := range snaps {
		normLatency := 0.0
		if maxLatency > 0 {
			normLatency = 1 - (s.latency / maxLatency) // lower latency -> higher score
		}
		normCost := 0.0
		if maxCost > 0 {
			normCost = 1 - (s.cost / maxCost) // lower cost -> higher score
		}
		score := w.Latency*normLatency + w.Quality*s.quality + w.Cost*normCost
		if score > bestScore {
			bestScore = score
			best = s.name
		}
	}
	return best
}

func (m *Manager) selectResearchTypeOptimized(candidates []string, rt ResearchType) string {
	table := m.cfg.ResearchTypeQuality[rt]
	best := candidates[0]
	bestQuality := -1.0
	for _, name := range candidates {
		q := 0.0
		if table != nil {
			q = table[name]
		}
		if q > bestQuality {
			bestQuality = q
			best = name
		}
	}
	return best
}

// ExecuteResearch selects a provider, issues
// ResearchQuery, and on a retryable failure (with EnableFailover) tries
// the next best candidate up to MaxFailoverAttempts. Non-retryable
// errors and CircuitBreakerOpen short-circuit to the next candidate too,
// since failover is explicitly allowed to try another
// provider" even for those.
func (m *Manager) ExecuteResearch(ctx context.Context, researchType ResearchType, query string) (string, string, error) {
	tried := make(map[string]bool)
	var lastErr error

	attempts := 1
	if m.cfg.EnableFailover {
		attempts = m.cfg.MaxFailoverAttempts
		if attempts < 1 {
			attempts = 1
		}
	}

	for i := 0; i < attempts; i++ {
		name, err := m.Select(m.cfg.Strategy, researchType, query, tried)
		if err != nil {
			if lastErr != nil {
				return "", "", fmt.Errorf("all providers failed: %w (last: %v)", err, lastErr)
			}
			return "", "", err
		}

		client := m.providers[name].client
		result, qerr := client.ResearchQuery(ctx, query)
		if qerr == nil {
			return result, name, nil
		}

		lastErr = qerr
		tried[name] = true

		if !m.cfg.EnableFailover {
			return "", "", qerr
		}
		telemetry.Counter("providers.selection.fallbacks", "from_provider", name, "strategy", string(m.cfg.Strategy))
		if !core.Retryable(qerr) && !core.IsCircuitBreakerOpen(qerr) {
			// still allowed to try another provider, loop continues
			continue
		}
	}

	return "", "", fmt.Errorf("all providers failed after %d attempt(s): %w", attempts, lastErr)
}

// GetPerformanceStats reads every provider's usage snapshot without
// blocking callers.
func (m *Manager) GetPerformanceStats() map[string]Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Stats, len(m.providers))
	for name, entry := range m.providers {
		out[name] = entry.client.UsageStats()
	}
	return out
}

// HealthCheckAll fans out a health probe to every provider concurrently
// with a per-provider timeout, returning name -> Health.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]Health {
	m.mu.Lock()
	entries := make([]*providerEntry, 0, len(m.providers))
	for _, e := range m.providers {
		entries = append(entries, e)
	}
	timeout := m.cfg.HealthCheckTimeout
	m.mu.Unlock()

	results := make(map[string]Health, len(entries))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, entry := range entries {
		wg.Add(1)
		go func(e *providerEntry) {
			defer wg.Done()
			checkCtx := ctx
			var cancel context.CancelFunc
			if timeout > 0 {
				checkCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			health := e.client.HealthCheck(checkCtx)

			e.mu.Lock()
			e.lastHealth = health
			e.checkedOnce = true
			e.mu.Unlock()

			mu.Lock()
			results[e.name] = health
			mu.Unlock()
		}(entry)
	}

	wg.Wait()
	return results
}

// ProviderNames returns the registered provider names in registration
// order, for diagnostics/tests.
func (m *Manager) ProviderNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
