package openai

import (
	"fmt"
	"os"
	"strings"
)

// OpenAIResponse represents the response from OpenAI API
type OpenAIResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a response choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Message represents a chat message. Reasoning models sometimes return
// their visible text under reasoning_content with content empty.
type Message struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an error from OpenAI API
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ModelAliases maps common model aliases to provider-specific model names (Phase 2)
// This enables portable model names across different OpenAI-compatible providers.
//
// Example usage:
//   client, _ := ai.NewClient(
//       ai.WithProviderAlias("openai.deepseek"),
//       ai.WithModel("smart"),  // Resolves to "deepseek-reasoner"
//   )
var ModelAliases = map[string]map[string]string{
	"openai": {
		"fast":    "gpt-4.1-mini",
		"smart":   "o3",
		"vision":  "gpt-4.1",
		"code":    "o3",
		"default": "gpt-4.1-mini",
	},
	"openai.deepseek": {
		"fast":    "deepseek-chat",
		"smart":   "deepseek-reasoner",
		"code":    "deepseek-chat",
		"default": "deepseek-chat",
	},
	"openai.groq": {
		"fast":    "llama-3.1-8b-instant",
		"smart":   "llama-3.3-70b-versatile",
		"code":    "llama-3.3-70b-versatile",
		"default": "llama-3.3-70b-versatile",
	},
	"openai.together": {
		"fast":    "meta-llama/Llama-3.1-8B-Instruct-Turbo",
		"smart":   "meta-llama/Llama-3.3-70B-Instruct-Turbo",
		"code":    "meta-llama/Llama-3.3-70B-Instruct-Turbo",
		"default": "meta-llama/Llama-3.1-8B-Instruct-Turbo",
	},
	"openai.xai": {
		"fast":    "grok-2",
		"smart":   "grok-3-beta",
		"code":    "grok-3-mini-beta",
		"vision":  "grok-2-vision-latest",
		"default": "grok-2",
	},
	"openai.qwen": {
		"fast":    "qwen-turbo",
		"smart":   "qwen-max",
		"code":    "qwen3-coder-plus",
		"default": "qwen-turbo",
	},
	"openai.ollama": {
		"fast":    "llama3.2:1b",
		"smart":   "llama3.2",
		"code":    "codellama",
		"default": "llama3.2",
	},
}

// modelEnvPrefix returns the env var component identifying providerAlias,
// e.g. "openai" -> "OPENAI", "openai.deepseek" -> "DEEPSEEK".
func modelEnvPrefix(providerAlias string) string {
	if idx := strings.LastIndexByte(providerAlias, '.'); idx >= 0 {
		providerAlias = providerAlias[idx+1:]
	}
	return strings.ToUpper(providerAlias)
}

// ResolveModel resolves a model alias to the actual model name (Phase 2).
// This function enables portable model names across providers.
//
// Resolution order:
//  1. VANTAGE_<PROVIDER>_MODEL_<ALIAS> env var (operator override, no
//     redeploy needed to pin a newly released model)
//  2. ModelAliases[providerAlias][model] (hardcoded default)
//  3. model itself, unchanged (pass-through for explicit model names)
//
// An empty providerAlias defaults to "openai".
//
// Example:
//
//	ResolveModel("openai.deepseek", "smart") → "deepseek-reasoner"
//	ResolveModel("openai.groq", "fast")      → "llama-3.1-8b-instant"
//	ResolveModel("openai", "gpt-4.1-nano")   → "gpt-4.1-nano" (pass-through)
func ResolveModel(providerAlias string, model string) string {
	if providerAlias == "" {
		providerAlias = "openai"
	}

	envKey := fmt.Sprintf("VANTAGE_%s_MODEL_%s", modelEnvPrefix(providerAlias), strings.ToUpper(model))
	if override := os.Getenv(envKey); override != "" {
		return override
	}

	if aliases, exists := ModelAliases[providerAlias]; exists {
		if actualModel, exists := aliases[model]; exists {
			return actualModel
		}
	}

	return model
}
