// Package anthropic implements the research provider backend for the
// Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/providers/providers"
)

const (
	// DefaultBaseURL is the default Anthropic API endpoint
	DefaultBaseURL = "https://api.anthropic.com/v1"
	// APIVersion is the required anthropic-version header value
	APIVersion = "2023-06-01"
)

// Client implements core.AIClient over the Messages API.
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient builds an Anthropic client. MaxTokens is mandatory on the
// Messages API, so the base default of 1000 is raised to 2048.
func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := providers.NewBaseClient(60*time.Second, logger)
	base.DefaultModel = "smart"
	base.DefaultMaxTokens = 2048

	return &Client{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// GenerateResponse implements core.AIClient.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.generate_response")
	defer span.End()
	span.SetAttribute("ai.provider", "anthropic")
	span.SetAttribute("ai.prompt_length", len(prompt))

	if c.apiKey == "" {
		err := core.New("providers.GenerateResponse", "anthropic", core.KindPermanent,
			"API key not configured", nil)
		span.RecordError(err)
		return nil, err
	}

	options = c.ApplyDefaults(options)
	options.Model = resolveModel(options.Model)
	span.SetAttribute("ai.model", options.Model)

	c.LogRequest("anthropic", options.Model, prompt)
	startTime := time.Now()

	reqBody := AnthropicRequest{
		Model:       options.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
		System:      options.SystemPrompt,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		c.LogError("anthropic", err)
		span.RecordError(err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := c.HandleError(resp.StatusCode, body, "anthropic")
		span.RecordError(apiErr)
		span.SetAttribute("http.status_code", resp.StatusCode)
		return nil, apiErr
	}

	var parsed AnthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// The response carries an ordered list of content blocks; text
	// blocks concatenate into the answer.
	var content string
	for _, item := range parsed.Content {
		if item.Type == "text" {
			content += item.Text
		}
	}
	if content == "" {
		err := fmt.Errorf("no text content in anthropic response")
		span.RecordError(err)
		return nil, err
	}

	result := &core.AIResponse{
		Content:  content,
		Model:    parsed.Model,
		Provider: "anthropic",
		Usage: core.TokenUsage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}

	span.SetAttribute("ai.prompt_tokens", result.Usage.PromptTokens)
	span.SetAttribute("ai.completion_tokens", result.Usage.CompletionTokens)
	span.SetAttribute("ai.total_tokens", result.Usage.TotalTokens)

	c.LogResponse(ctx, "anthropic", result.Model, result.Usage, time.Since(startTime))
	c.LogResponseContent("anthropic", result.Model, result.Content)

	return result, nil
}
