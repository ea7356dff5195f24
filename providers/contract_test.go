package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-io/vantage/core"
)

func TestEstimateTokensIsDeterministicAndBounded(t *testing.T) {
	input, output := EstimateTokens("")
	assert.Equal(t, 1, input)
	assert.Equal(t, 1, output)

	input, output = EstimateTokens("0123456789012345") // 16 chars
	assert.Equal(t, 4, input)
	assert.Equal(t, 2, output)
}

func TestPricingTableEstimateCostForModelUnknownModelIsZeroCost(t *testing.T) {
	table := PricingTable{}
	cost := table.EstimateCostForModel("nope", "hello world")
	assert.Equal(t, 0.0, cost.TotalCostUSD)
	assert.Greater(t, cost.InputTokens, 0)
}

func TestStatsSuccessRateDefaultsToOneWithNoSamples(t *testing.T) {
	var s Stats
	assert.Equal(t, 1.0, s.SuccessRate())
}

func TestLoadPricingTableYAMLParsesFixtureSheet(t *testing.T) {
	data := []byte(`
gpt-4o:
  input_cost_per_token: 0.000005
  output_cost_per_token: 0.000015
  context_length: 128000
  max_output_tokens: 4096
claude-3-5-sonnet:
  model: claude-3-5-sonnet-20241022
  input_cost_per_token: 0.000003
  output_cost_per_token: 0.000015
  context_length: 200000
  max_output_tokens: 8192
`)

	table, err := LoadPricingTableYAML(data)
	require.NoError(t, err)
	require.Len(t, table, 2)

	gpt4o := table["gpt-4o"]
	assert.Equal(t, "gpt-4o", gpt4o.Model) // falls back to the map key
	assert.Equal(t, 128000, gpt4o.ContextLength)

	sonnet := table["claude-3-5-sonnet"]
	assert.Equal(t, "claude-3-5-sonnet-20241022", sonnet.Model) // explicit override honoured

	cost := table.EstimateCostForModel("gpt-4o", "0123456789012345")
	assert.Greater(t, cost.TotalCostUSD, 0.0)
}

func TestLoadPricingTableYAMLRejectsMalformedDocument(t *testing.T) {
	_, err := LoadPricingTableYAML([]byte("not: [valid: yaml: at all"))
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}
