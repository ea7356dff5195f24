// Package openai implements the research provider backend for the
// OpenAI chat-completions API and its compatible sibling services
// (DeepSeek, Groq, xAI, Together, Qwen, Ollama), selected by provider
// alias.
package openai

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

// Client implements core.AIClient over the chat-completions wire format.
type Client struct {
	*providers.BaseClient
	apiKey        string
	baseURL       string
	providerAlias string // e.g. "openai.deepseek"; empty means plain OpenAI

	// ReasoningTokenMultiplier overrides the token-budget scaling for
	// reasoning models; zero uses DefaultReasoningTokenMultiplier.
	ReasoningTokenMultiplier int
}

// NewClient builds a client for the given endpoint. A three-minute
// default timeout leaves room for reasoning models, which routinely run
// far longer than chat models.
func NewClient(apiKey, baseURL, providerAlias string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	base := providers.NewBaseClient(180*time.Second, logger)
	base.DefaultModel = "default"

	return &Client{
		BaseClient:    base,
		apiKey:        apiKey,
		baseURL:       baseURL,
		providerAlias: providerAlias,
	}
}

func (c *Client) providerName() string {
	if c.providerAlias == "" {
		return "openai"
	}
	return c.providerAlias
}

// GenerateResponse implements core.AIClient.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.StartSpan(ctx, "ai.generate_response")
	defer span.End()
	span.SetAttribute("ai.provider", c.providerName())
	span.SetAttribute("ai.prompt_length", len(prompt))

	if c.apiKey == "" {
		err := core.New("providers.GenerateResponse", c.providerName(), core.KindPermanent,
			"API key not configured", nil)
		span.RecordError(err)
		return nil, err
	}

	options = c.ApplyDefaults(options)
	options.Model = ResolveModel(c.providerAlias, options.Model)
	span.SetAttribute("ai.model", options.Model)

	c.LogRequest(c.providerName(), options.Model, prompt)
	startTime := time.Now()

	messages := make([]map[string]string, 0, 2)
	if options.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": options.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	reqBody := buildRequestBody(options.Model, messages, options.MaxTokens, options.Temperature, c.ReasoningTokenMultiplier)
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		c.LogError(c.providerName(), err)
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
		apiErr := c.HandleError(resp.StatusCode, body, c.providerName())
		span.RecordError(apiErr)
		span.SetAttribute("http.status_code", resp.StatusCode)
		return nil, apiErr
	}

	var parsed OpenAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		err := fmt.Errorf("no response from %s", c.providerName())
		span.RecordError(err)
		return nil, err
	}

	// Reasoning models may put visible text in reasoning_content.
	content := parsed.Choices[0].Message.Content
	if content == "" {
		content = parsed.Choices[0].Message.ReasoningContent
	}

	result := &core.AIResponse{
		Content:  content,
		Model:    parsed.Model,
		Provider: c.providerName(),
		Usage: core.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}

	span.SetAttribute("ai.prompt_tokens", result.Usage.PromptTokens)
	span.SetAttribute("ai.completion_tokens", result.Usage.CompletionTokens)
	span.SetAttribute("ai.total_tokens", result.Usage.TotalTokens)

	c.LogResponse(ctx, c.providerName(), result.Model, result.Usage, time.Since(startTime))
	c.LogResponseContent(c.providerName(), result.Model, result.Content)

	return result, nil
}
