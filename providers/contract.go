package providers

import (
	"context"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-io/vantage/core"
)

// Client is the uniform contract every research
// provider satisfies: a research query, cost estimation, health, and
// usage-stats surface on top of the narrower core.AIClient generation
// contract already implemented by providers/providers/{openai,anthropic,
// gemini,bedrock,mock}.
type Client interface {
	// ResearchQuery validates the query (non-empty, non-whitespace),
	// acquires rate-limiter permits sized by estimated tokens, issues
	// the remote call, and maps provider errors onto the core taxonomy.
	ResearchQuery(ctx context.Context, query string) (string, error)

	Metadata() Metadata
	HealthCheck(ctx context.Context) Health
	EstimateCost(query string) CostEstimate
	UsageStats() Stats

	// SupportsModel and DefaultModel let callers pin or discover the
	// model a provider will run.
	SupportsModel(name string) bool
	DefaultModel() string
}

// Metadata describes a provider's static capabilities.
type Metadata struct {
	Name               string
	Version            string
	CapabilityTags     []string // must include "research" and "rate_limited"
	SupportedModels    []string
	MaxContextLength   int
	RateLimitSummary   string
	CustomAttributes   map[string]string
}

// Health is the outcome of a HealthCheck probe.
type Health struct {
	Status core.HealthStatus
	Reason string
}

// CostEstimate is the deterministic, no-I/O output of estimate_cost
// token counts are crude but stable, derived purely from text
// length.
type CostEstimate struct {
	InputTokens  int
	OutputTokens int
	InputCostUSD float64
	OutputCostUSD float64
	TotalCostUSD float64
}

// ModelPricing is one row of a provider's model -> (cost, context)
// pricing table.
type ModelPricing struct {
	Model                string
	InputCostPerToken    float64
	OutputCostPerToken   float64
	ContextLength        int
	MaxOutputTokens      int
}

// PricingTable maps model name to its pricing row.
type PricingTable map[string]ModelPricing

// EstimateTokens is a crude, stable token estimator:
// input_tokens ~= max(1, len/4); output_tokens ~= input/2.
func EstimateTokens(text string) (input, output int) {
	input = len(text) / 4
	if input < 1 {
		input = 1
	}
	output = input / 2
	if output < 1 {
		output = 1
	}
	return input, output
}

// EstimateCostForModel applies the crude token estimator against a
// pricing table row, with no remote I/O.
func (t PricingTable) EstimateCostForModel(model, query string) CostEstimate {
	input, output := EstimateTokens(query)
	row, ok := t[model]
	if !ok {
		return CostEstimate{InputTokens: input, OutputTokens: output}
	}
	inCost := float64(input) * row.InputCostPerToken
	outCost := float64(output) * row.OutputCostPerToken
	return CostEstimate{
		InputTokens:   input,
		OutputTokens:  output,
		InputCostUSD:  inCost,
		OutputCostUSD: outCost,
		TotalCostUSD:  inCost + outCost,
	}
}

// pricingYAMLRow is one entry of a YAML-encoded pricing sheet as loaded
// by LoadPricingTableYAML.
type pricingYAMLRow struct {
	Model              string  `yaml:"model"`
	InputCostPerToken  float64 `yaml:"input_cost_per_token"`
	OutputCostPerToken float64 `yaml:"output_cost_per_token"`
	ContextLength      int     `yaml:"context_length"`
	MaxOutputTokens    int     `yaml:"max_output_tokens"`
}

// LoadPricingTableYAML parses a YAML document mapping model name to its
// pricing row into a PricingTable. This is a fixture/offline-snapshot
// loader for tests and pricing-sheet updates, not a runtime configuration
// path: every live provider is still constructed with an explicit
// PricingTable value at construction,
// and the Non-goal excluding on-disk configuration formats is about how
// a provider itself is configured, not how its pricing table is sourced.
func LoadPricingTableYAML(data []byte) (PricingTable, error) {
	var raw map[string]pricingYAMLRow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, core.New("providers.LoadPricingTableYAML", "providers", core.KindValidation, "invalid pricing table yaml", err)
	}

	table := make(PricingTable, len(raw))
	for name, row := range raw {
		model := row.Model
		if model == "" {
			model = name
		}
		table[name] = ModelPricing{
			Model:              model,
			InputCostPerToken:  row.InputCostPerToken,
			OutputCostPerToken: row.OutputCostPerToken,
			ContextLength:      row.ContextLength,
			MaxOutputTokens:    row.MaxOutputTokens,
		}
	}
	return table, nil
}

// Settings carries a provider's construction inputs: opaque credential, model,
// optional endpoint override, timeout, and the rate-limit/retry
// sub-configs.
type Settings struct {
	APIKey      string
	Model       string
	Endpoint    string
	Timeout     time.Duration
	RateLimit   RateLimitSettings
	Retry       RetrySettings
}

// RateLimitSettings mirrors ratelimit.ProviderLimiterConfig at the
// Settings layer so construction stays config-driven.
type RateLimitSettings struct {
	RequestsPerMinute     int
	InputTokensPerMinute  int
	OutputTokensPerMinute int
	MaxConcurrent         int
}

// RetrySettings mirrors resilience.RetryConfig at the Settings layer.
type RetrySettings struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterEnabled bool
}

// DefaultSettings returns conservative defaults for all Settings fields.
func DefaultSettings() Settings {
	return Settings{
		Timeout: 30 * time.Second,
		RateLimit: RateLimitSettings{
			RequestsPerMinute:     60,
			InputTokensPerMinute:  100_000,
			OutputTokensPerMinute: 50_000,
			MaxConcurrent:         10,
		},
		Retry: RetrySettings{
			MaxAttempts:   3,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			Multiplier:    2.0,
			JitterEnabled: true,
		},
	}
}

// Stats tracks per-provider performance: monotonic counters, a
// rolling average latency, rolling quality, and derived success rate.
// Updated only under the owning provider's lock; read-only elsewhere.
type Stats struct {
	Total           uint64
	Successful      uint64
	Failed          uint64
	AvgLatencyMs    float64
	AvgQuality      float64
}

// SuccessRate derives from Total/Successful; 1.0 with no samples yet so
// a never-used provider is not penalised as unreliable.
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 1.0
	}
	return float64(s.Successful) / float64(s.Total)
}

// isBlank reports whether query is empty or whitespace-only (the
// validation: "non-empty, non-whitespace").
func isBlank(query string) bool {
	return strings.TrimSpace(query) == ""
}
