package gemini

import (
	"os"

	"github.com/relabs-io/vantage/core"
	ai "github.com/relabs-io/vantage/providers"
)

func init() {
	ai.MustRegister(&Factory{})
}

// Factory builds Gemini clients from AIConfig plus the GEMINI_API_KEY /
// GOOGLE_API_KEY environment.
type Factory struct{}

func (f *Factory) Name() string { return "gemini" }

func (f *Factory) Description() string {
	return "Google Gemini models via the native GenerateContent API"
}

func (f *Factory) Priority() int { return 70 }

func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("GEMINI_BASE_URL")
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
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		return f.Priority(), true
	}
	return 0, false
}
