// Package gemini implements the research provider backend for the
// Google Gemini GenerateContent API.
package gemini

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

// DefaultBaseURL is the default Gemini API endpoint
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements core.AIClient over the GenerateContent wire format.
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := providers.NewBaseClient(60*time.Second, logger)
	base.DefaultModel = "default"

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
	span.SetAttribute("ai.provider", "gemini")
	span.SetAttribute("ai.prompt_length", len(prompt))

	if c.apiKey == "" {
		err := core.New("providers.GenerateResponse", "gemini", core.KindPermanent,
			"API key not configured", nil)
		span.RecordError(err)
		return nil, err
	}

	options = c.ApplyDefaults(options)
	options.Model = resolveModel(options.Model)
	span.SetAttribute("ai.model", options.Model)

	c.LogRequest("gemini", options.Model, prompt)
	startTime := time.Now()

	reqBody := GeminiRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &GenerationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
		},
	}
	if options.SystemPrompt != "" {
		reqBody.SystemInstruction = &SystemInstruction{Parts: []Part{{Text: options.SystemPrompt}}}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// The API key rides in the query string, not a header.
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, options.Model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		c.LogError("gemini", err)
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
		apiErr := c.HandleError(resp.StatusCode, body, "gemini")
		span.RecordError(apiErr)
		span.SetAttribute("http.status_code", resp.StatusCode)
		return nil, apiErr
	}

	var parsed GeminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		err := fmt.Errorf("no candidates in gemini response")
		span.RecordError(err)
		return nil, err
	}

	var content string
	for _, part := range parsed.Candidates[0].Content.Parts {
		content += part.Text
	}
	if content == "" {
		err := fmt.Errorf("empty content in gemini response")
		span.RecordError(err)
		return nil, err
	}

	model := parsed.ModelVersion
	if model == "" {
		model = options.Model
	}

	result := &core.AIResponse{
		Content:  content,
		Model:    model,
		Provider: "gemini",
		Usage: core.TokenUsage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		},
	}

	span.SetAttribute("ai.prompt_tokens", result.Usage.PromptTokens)
	span.SetAttribute("ai.completion_tokens", result.Usage.CompletionTokens)
	span.SetAttribute("ai.total_tokens", result.Usage.TotalTokens)

	c.LogResponse(ctx, "gemini", result.Model, result.Usage, time.Since(startTime))
	c.LogResponseContent("gemini", result.Model, result.Content)

	return result, nil
}
