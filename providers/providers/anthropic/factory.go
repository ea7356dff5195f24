package anthropic

import (
	"os"

	"github.com/relabs-io/vantage/core"
	ai "github.com/relabs-io/vantage/providers"
)

func init() {
	ai.MustRegister(&Factory{})
}

// Factory builds Anthropic clients from AIConfig plus the
// ANTHROPIC_API_KEY / ANTHROPIC_BASE_URL environment.
type Factory struct{}

func (f *Factory) Name() string { return "anthropic" }

func (f *Factory) Description() string {
	return "Anthropic Claude models via the native Messages API"
}

func (f *Factory) Priority() int { return 80 }

func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("ANTHROPIC_BASE_URL")
	}

	client := NewClient(apiKey, baseURL, config.Logger)

	if config.Timeout > 0 {
		client.HTTPClient.Timeout = config.Timeout
	}
	if config.MaxRetries > 0 {
		client.MaxRetries = config.MaxRetries
	}
	if config.Model != "" {
		client.DefaultModel = config.Model
	}
	if config.Temperature > 0 {
		client.DefaultTemperature = config.Temperature
	}
	if config.MaxTokens > 0 {
		client.DefaultMaxTokens = config.MaxTokens
	}
	if config.Telemetry != nil {
		client.Telemetry = config.Telemetry
	}

	return client
}

func (f *Factory) DetectEnvironment() (priority int, available bool) {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return f.Priority(), true
	}
	return 0, false
}
