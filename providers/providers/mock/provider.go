// Package mock provides a canned-response research provider for tests.
// It registers under the name "mock" but never auto-detects, so it can
// only be selected explicitly.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/relabs-io/vantage/core"
	ai "github.com/relabs-io/vantage/providers"
)

func init() {
	ai.MustRegister(&Factory{})
}

// Factory creates mock clients.
type Factory struct{}

func (f *Factory) Name() string        { return "mock" }
func (f *Factory) Description() string { return "Mock provider for testing" }
func (f *Factory) Priority() int       { return 1 }

func (f *Factory) Create(config *ai.AIConfig) core.AIClient {
	return NewClient(config)
}

// DetectEnvironment always reports unavailable; tests opt in by name.
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	return 0, false
}

// Client implements core.AIClient with scripted responses. Safe for
// concurrent use so failover and cross-validation tests can hammer it.
type Client struct {
	mu sync.Mutex

	Config        *ai.AIConfig
	Responses     []string
	ResponseIndex int
	Error         error
	CallCount     int
	LastPrompt    string
	LastOptions   *core.AIOptions
}

func NewClient(config *ai.AIConfig) *Client {
	return &Client{
		Config:    config,
		Responses: []string{"Mock response"},
	}
}

// GenerateResponse returns the next scripted response, or the scripted
// error when one is set.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CallCount++
	c.LastPrompt = prompt
	c.LastOptions = options

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if c.Error != nil {
		return nil, c.Error
	}
	if c.ResponseIndex >= len(c.Responses) {
		return nil, errors.New("no more mock responses")
	}

	response := c.Responses[c.ResponseIndex]
	c.ResponseIndex++

	model := "mock-model"
	if options != nil && options.Model != "" {
		model = options.Model
	} else if c.Config != nil && c.Config.Model != "" {
		model = c.Config.Model
	}

	return &core.AIResponse{
		Content:  response,
		Model:    model,
		Provider: "mock",
		Usage: core.TokenUsage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(response) / 4,
			TotalTokens:      (len(prompt) + len(response)) / 4,
		},
	}, nil
}

// SetResponses replaces the script and rewinds it.
func (c *Client) SetResponses(responses ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Responses = responses
	c.ResponseIndex = 0
}

// SetError makes every subsequent call fail with err.
func (c *Client) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Error = err
}

// Calls reports how many times GenerateResponse ran.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}

// Reset rewinds the script and clears recorded state.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ResponseIndex = 0
	c.CallCount = 0
	c.LastPrompt = ""
	c.LastOptions = nil
	c.Error = nil
}
