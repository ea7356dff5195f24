package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", srv.URL, nil)
	c.MaxRetries = 0
	c.RetryDelay = time.Millisecond
	return c
}

func TestGenerateResponseSuccess(t *testing.T) {
	var gotReq AnthropicRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, APIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(AnthropicResponse{
			Model: "claude-sonnet-4-5-20250929",
			Content: []ContentItem{
				{Type: "text", Text: "part one "},
				{Type: "text", Text: "part two"},
			},
			Usage: Usage{InputTokens: 12, OutputTokens: 4},
		})
	})

	resp, err := c.GenerateResponse(context.Background(), "question", &core.AIOptions{
		Model: "claude-sonnet-4-5-20250929", SystemPrompt: "sys", MaxTokens: 256,
	})
	require.NoError(t, err)

	assert.Equal(t, "part one part two", resp.Content, "text blocks concatenate in order")
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
	assert.Equal(t, "sys", gotReq.System)
	assert.Equal(t, 256, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestGenerateResponseResolvesAlias(t *testing.T) {
	var gotReq AnthropicRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(AnthropicResponse{
			Content: []ContentItem{{Type: "text", Text: "ok"}},
		})
	})

	_, err := c.GenerateResponse(context.Background(), "q", &core.AIOptions{Model: "fast"})
	require.NoError(t, err)
	assert.Equal(t, modelAliases["fast"], gotReq.Model)
}

func TestGenerateResponseMissingAPIKey(t *testing.T) {
	c := NewClient("", "", nil)
	_, err := c.GenerateResponse(context.Background(), "q", nil)
	require.Error(t, err)
	assert.Equal(t, core.KindPermanent, core.KindOf(err))
}

func TestGenerateResponseRateLimited(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.GenerateResponse(context.Background(), "q", &core.AIOptions{Model: "fast"})
	require.Error(t, err)
	assert.Equal(t, core.KindRateLimit, core.KindOf(err))
}

func TestGenerateResponseNoTextContent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AnthropicResponse{
			Content: []ContentItem{{Type: "tool_use", Text: ""}},
		})
	})
	_, err := c.GenerateResponse(context.Background(), "q", &core.AIOptions{Model: "fast"})
	assert.ErrorContains(t, err, "no text content")
}
