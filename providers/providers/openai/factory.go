package openai

import (
	"net/http"
	"os"
	"time"

	"github.com/relabs-io/vantage/core"
	ai "github.com/relabs-io/vantage/providers"
)

// Factory builds OpenAI-compatible clients. One factory serves the whole
// compatible family; the alias in AIConfig picks the concrete service.
type Factory struct{}

// service describes one OpenAI-compatible endpoint: where its
// credentials live and how eagerly auto-detection should pick it.
type service struct {
	keyEnv     string
	urlEnv     string
	defaultURL string
	priority   int
}

// services is ordered by detection priority via the priority field.
// Ollama has no key; it is detected by probing the local endpoint.
var services = map[string]service{
	"openai":   {"OPENAI_API_KEY", "OPENAI_BASE_URL", "https://api.openai.com/v1", 100},
	"groq":     {"GROQ_API_KEY", "GROQ_BASE_URL", "https://api.groq.com/openai/v1", 95},
	"deepseek": {"DEEPSEEK_API_KEY", "DEEPSEEK_BASE_URL", "https://api.deepseek.com", 90},
	"xai":      {"XAI_API_KEY", "XAI_BASE_URL", "https://api.x.ai/v1", 85},
	"qwen":     {"QWEN_API_KEY", "QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/compatible-mode/v1", 80},
	"together": {"TOGETHER_API_KEY", "TOGETHER_BASE_URL", "https://api.together.xyz/v1", 75},
	"ollama":   {"", "OLLAMA_BASE_URL", "http://localhost:11434/v1", 50},
}

func (f *Factory) Name() string { return "openai" }

func (f *Factory) Description() string {
	return "Universal OpenAI-compatible provider (OpenAI, Groq, DeepSeek, xAI, Qwen, Together, local models)"
}

func (f *Factory) Priority() int { return 100 }

// Create builds a client with credentials resolved through the
// precedence chain: explicit config, service env vars, defaults.
func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	apiKey, baseURL := f.resolveCredentials(config)

	logger := config.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	if config.Model != "" {
		config.Model = ResolveModel(config.ProviderAlias, config.Model)
	}

	logger.Info("OpenAI provider initialized", map[string]interface{}{
		"operation":      "ai_provider_init",
		"provider":       "openai",
		"provider_alias": config.ProviderAlias,
		"base_url":       baseURL,
		"has_api_key":    apiKey != "",
		"model":          config.Model,
	})

	client := NewClient(apiKey, baseURL, config.ProviderAlias, logger)

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
	if len(config.Headers) > 0 {
		client.HTTPClient.Transport = &headerTransport{
			headers: config.Headers,
			base:    client.HTTPClient.Transport,
		}
	}

	return client
}

// resolveCredentials picks credentials for the configured alias, or
// auto-detects the best available service when no alias is set. It only
// reads the environment, never mutates it.
func (f *Factory) resolveCredentials(config *ai.AIConfig) (apiKey, baseURL string) {
	if sub, ok := subproviderOf(config.ProviderAlias); ok {
		svc := services[sub]
		key := config.APIKey
		if key == "" && svc.keyEnv != "" {
			key = os.Getenv(svc.keyEnv)
		}
		return key, firstNonEmpty(config.BaseURL, os.Getenv(svc.urlEnv), svc.defaultURL)
	}

	// No alias: walk services in priority order and use the first with
	// credentials present.
	for _, name := range detectionOrder() {
		svc := services[name]
		if svc.keyEnv != "" && os.Getenv(svc.keyEnv) != "" {
			return firstNonEmpty(config.APIKey, os.Getenv(svc.keyEnv)),
				firstNonEmpty(config.BaseURL, os.Getenv(svc.urlEnv), svc.defaultURL)
		}
		if svc.keyEnv == "" && isLocalServiceAvailable(svc.defaultURL+"/models") {
			return config.APIKey,
				firstNonEmpty(config.BaseURL, os.Getenv(svc.urlEnv), svc.defaultURL)
		}
	}

	// Nothing detected: fall back to plain OpenAI so an explicit APIKey
	// in config still works.
	svc := services["openai"]
	return firstNonEmpty(config.APIKey, os.Getenv(svc.keyEnv)),
		firstNonEmpty(config.BaseURL, os.Getenv(svc.urlEnv), svc.defaultURL)
}

// DetectEnvironment reports the priority of the best available
// compatible service, reading but never mutating the environment.
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	for _, name := range detectionOrder() {
		svc := services[name]
		if svc.keyEnv != "" && os.Getenv(svc.keyEnv) != "" {
			return svc.priority, true
		}
		if svc.keyEnv == "" && isLocalServiceAvailable(svc.defaultURL+"/models") {
			return svc.priority, true
		}
	}
	return 0, false
}

// subproviderOf extracts "deepseek" from "openai.deepseek". A bare
// "openai" alias (or none) returns false so auto-detection applies.
func subproviderOf(alias string) (string, bool) {
	const prefix = "openai."
	if len(alias) > len(prefix) && alias[:len(prefix)] == prefix {
		if _, known := services[alias[len(prefix):]]; known {
			return alias[len(prefix):], true
		}
	}
	return "", false
}

// detectionOrder returns service names sorted by descending priority.
func detectionOrder() []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if services[names[j]].priority > services[names[i]].priority {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	return names
}

func isLocalServiceAvailable(url string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// headerTransport injects fixed headers into every request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

func init() {
	ai.MustRegister(&Factory{})
}
