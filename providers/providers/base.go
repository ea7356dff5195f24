// Package providers holds the shared plumbing for the concrete research
// provider backends (openai, anthropic, gemini, bedrock, mock). Each
// vendor package except mock embeds BaseClient for HTTP transport, retry,
// defaults, span creation, and consistent error shaping; every one of them
// registers itself with the parent package's factory registry from init().
package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/telemetry"
)

// BaseClient carries what every vendor backend needs: a traced HTTP
// client, a logger, retry policy, and generation defaults applied when a
// request leaves an option unset.
type BaseClient struct {
	HTTPClient *http.Client
	Logger     core.Logger
	Telemetry  core.Telemetry

	MaxRetries int
	RetryDelay time.Duration

	DefaultModel        string
	DefaultTemperature  float32
	DefaultMaxTokens    int
	DefaultSystemPrompt string
}

// NewBaseClient builds a base with a trace-propagating HTTP client, so
// every outbound provider call carries the research request's trace
// context without the vendor packages doing anything.
func NewBaseClient(timeout time.Duration, logger core.Logger) *BaseClient {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	httpClient := telemetry.NewTracedHTTPClient(nil)
	httpClient.Timeout = timeout

	return &BaseClient{
		HTTPClient:         httpClient,
		Logger:             logger,
		Telemetry:          &core.NoOpTelemetry{},
		MaxRetries:         3,
		RetryDelay:         time.Second,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   1000,
	}
}

// StartSpan opens a span on the configured telemetry provider; with none
// configured the span is a no-op.
func (b *BaseClient) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	if b.Telemetry == nil {
		return ctx, &core.NoOpSpan{}
	}
	return b.Telemetry.StartSpan(ctx, name)
}

// ExecuteWithRetry sends req, retrying 429s and 5xx with exponential
// backoff up to MaxRetries. 4xx responses other than 429 return
// immediately — resending a request the server already called malformed
// only burns quota. When the retries run out on a 429 or 5xx, that last
// response is returned for the caller to classify with HandleError; only
// transport failures come back as an error.
func (b *BaseClient) ExecuteWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		resp, err := b.HTTPClient.Do(req.Clone(ctx))

		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}
		if err == nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			if attempt == b.MaxRetries {
				return resp, nil
			}
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			resp.Body.Close()
		}

		if attempt == b.MaxRetries {
			break
		}

		delay := b.RetryDelay << uint(attempt)
		b.Logger.Debug("Retrying provider request", map[string]interface{}{
			"attempt":     attempt + 1,
			"max_retries": b.MaxRetries,
			"delay":       delay.String(),
			"error":       lastErr.Error(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", b.MaxRetries, lastErr)
}

// ApplyDefaults fills unset generation options from the client defaults.
func (b *BaseClient) ApplyDefaults(options *core.AIOptions) *core.AIOptions {
	if options == nil {
		options = &core.AIOptions{}
	}
	if options.Model == "" && b.DefaultModel != "" {
		options.Model = b.DefaultModel
	}
	if options.Temperature == 0 {
		options.Temperature = b.DefaultTemperature
	}
	if options.MaxTokens == 0 {
		options.MaxTokens = b.DefaultMaxTokens
	}
	if options.SystemPrompt == "" && b.DefaultSystemPrompt != "" {
		options.SystemPrompt = b.DefaultSystemPrompt
	}
	return options
}

// HandleError turns a non-2xx provider response into a typed error so
// the manager's failover and the retry plane classify it without parsing
// message text.
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	op := "providers.GenerateResponse"
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.New(op, provider, core.KindPermanent,
			fmt.Sprintf("%s API error: invalid or missing API key", provider), nil)
	case http.StatusTooManyRequests:
		e := core.New(op, provider, core.KindRateLimit,
			fmt.Sprintf("%s API error: rate limit exceeded", provider), nil)
		e.StatusCode = statusCode
		return e
	case http.StatusBadRequest:
		return core.New(op, provider, core.KindValidation,
			fmt.Sprintf("%s API error: invalid request - %s", provider, string(body)), nil)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e := core.New(op, provider, core.KindExternalService,
			fmt.Sprintf("%s API error: service temporarily unavailable (status %d)", provider, statusCode), nil)
		e.ServiceStatus = core.ServiceDegraded
		e.StatusCode = statusCode
		return e
	default:
		e := core.New(op, provider, core.KindInternal,
			fmt.Sprintf("%s API error (status %d): %s", provider, statusCode, string(body)), nil)
		e.StatusCode = statusCode
		return e
	}
}

func (b *BaseClient) LogError(provider string, err error) {
	b.Logger.Error("Provider error", map[string]interface{}{
		"provider": provider,
		"error":    err.Error(),
	})
}

func (b *BaseClient) LogRequest(provider, model, prompt string) {
	b.Logger.Debug("AI request", map[string]interface{}{
		"provider":      provider,
		"model":         model,
		"prompt_length": len(prompt),
	})
}

func (b *BaseClient) LogResponse(ctx context.Context, provider, model string, tokens core.TokenUsage, duration time.Duration) {
	b.Logger.DebugWithContext(ctx, "AI response", map[string]interface{}{
		"provider":          provider,
		"model":             model,
		"prompt_tokens":     tokens.PromptTokens,
		"completion_tokens": tokens.CompletionTokens,
		"total_tokens":      tokens.TotalTokens,
		"duration":          duration.String(),
	})
}

// LogResponseContent logs a bounded preview of the response text at
// debug level; full responses stay out of logs.
func (b *BaseClient) LogResponseContent(provider, model, content string) {
	preview := content
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	b.Logger.Debug("AI response content", map[string]interface{}{
		"provider":       provider,
		"model":          model,
		"content_length": len(content),
		"preview":        preview,
	})
}
