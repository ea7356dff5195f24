package providers

import (
	"os"
	"strings"
	"time"

	"github.com/relabs-io/vantage/core"
)

// Provider names a research backend type.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderBedrock   Provider = "bedrock"
	ProviderAuto      Provider = "auto" // pick by environment detection
)

// AIConfig collects everything a provider factory needs to construct a
// backend client. Zero values mean "use the provider's default".
type AIConfig struct {
	Provider string

	// ProviderAlias selects an OpenAI-compatible sibling service, e.g.
	// "openai.deepseek" or "openai.groq". The base provider comes from
	// the segment before the dot.
	ProviderAlias string

	APIKey  string
	BaseURL string

	Timeout    time.Duration
	MaxRetries int

	Model       string
	Temperature float32
	MaxTokens   int

	Logger    core.Logger
	Telemetry core.Telemetry

	Headers map[string]string
	Extra   map[string]interface{}
}

// AIOption configures client construction.
type AIOption func(*AIConfig)

func WithProvider(provider string) AIOption {
	return func(c *AIConfig) { c.Provider = provider }
}

func WithAPIKey(key string) AIOption {
	return func(c *AIConfig) { c.APIKey = key }
}

func WithBaseURL(url string) AIOption {
	return func(c *AIConfig) { c.BaseURL = url }
}

func WithTimeout(timeout time.Duration) AIOption {
	return func(c *AIConfig) { c.Timeout = timeout }
}

func WithMaxRetries(retries int) AIOption {
	return func(c *AIConfig) { c.MaxRetries = retries }
}

func WithModel(model string) AIOption {
	return func(c *AIConfig) { c.Model = model }
}

func WithTemperature(temp float32) AIOption {
	return func(c *AIConfig) { c.Temperature = temp }
}

func WithMaxTokens(tokens int) AIOption {
	return func(c *AIConfig) { c.MaxTokens = tokens }
}

func WithLogger(logger core.Logger) AIOption {
	return func(c *AIConfig) { c.Logger = logger }
}

func WithTelemetry(telemetry core.Telemetry) AIOption {
	return func(c *AIConfig) { c.Telemetry = telemetry }
}

func WithHeaders(headers map[string]string) AIOption {
	return func(c *AIConfig) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		for k, v := range headers {
			c.Headers[k] = v
		}
	}
}

func WithExtra(key string, value interface{}) AIOption {
	return func(c *AIConfig) {
		if c.Extra == nil {
			c.Extra = make(map[string]interface{})
		}
		c.Extra[key] = value
	}
}

// WithRegion sets the AWS region for the Bedrock provider.
func WithRegion(region string) AIOption {
	return WithExtra("region", region)
}

// WithAWSCredentials sets explicit AWS credentials for the Bedrock
// provider instead of the default credential chain.
func WithAWSCredentials(accessKey, secretKey, sessionToken string) AIOption {
	return func(c *AIConfig) {
		if c.Extra == nil {
			c.Extra = make(map[string]interface{})
		}
		c.Extra["aws_access_key_id"] = accessKey
		c.Extra["aws_secret_access_key"] = secretKey
		if sessionToken != "" {
			c.Extra["aws_session_token"] = sessionToken
		}
	}
}

// aliasDefaults maps an OpenAI-compatible subprovider to its credential
// environment variables and default endpoint.
var aliasDefaults = map[string]struct {
	keyEnv     string
	urlEnv     string
	defaultURL string
}{
	"deepseek": {"DEEPSEEK_API_KEY", "DEEPSEEK_BASE_URL", "https://api.deepseek.com"},
	"groq":     {"GROQ_API_KEY", "GROQ_BASE_URL", "https://api.groq.com/openai/v1"},
	"xai":      {"XAI_API_KEY", "XAI_BASE_URL", "https://api.x.ai/v1"},
	"together": {"TOGETHER_API_KEY", "TOGETHER_BASE_URL", "https://api.together.xyz/v1"},
	"qwen":     {"QWEN_API_KEY", "QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"},
	"ollama":   {"", "OLLAMA_BASE_URL", "http://localhost:11434/v1"},
}

// WithProviderAlias selects an OpenAI-compatible service by alias, e.g.
// "openai.deepseek". The base provider is taken from the alias, and when
// the caller hasn't set credentials explicitly, the subprovider's
// environment variables and default endpoint are filled in.
func WithProviderAlias(alias string) AIOption {
	return func(c *AIConfig) {
		c.ProviderAlias = alias

		parts := strings.SplitN(alias, ".", 2)
		c.Provider = parts[0]

		if len(parts) < 2 || c.APIKey != "" || c.BaseURL != "" {
			return
		}
		if d, ok := aliasDefaults[parts[1]]; ok {
			if d.keyEnv != "" {
				c.APIKey = os.Getenv(d.keyEnv)
			}
			c.BaseURL = firstNonEmpty(os.Getenv(d.urlEnv), d.defaultURL)
		}
	}
}

// firstNonEmpty returns the first non-empty string, the precedence
// helper used across credential resolution.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
