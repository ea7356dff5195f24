package openai

import "strings"

// Reasoning-model families need different request parameters:
// max_completion_tokens instead of max_tokens, and no temperature.
// Prefix matching keeps future variants within each family covered.
var reasoningModelPrefixes = []string{"gpt-5", "o1", "o3", "o4"}

// IsReasoningModel reports whether model needs reasoning-model request
// parameters. Case-insensitive.
func IsReasoningModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// DefaultReasoningTokenMultiplier scales max tokens for reasoning
// models. Internal chain-of-thought tokens count against
// max_completion_tokens but are never returned, so an unscaled budget
// can be consumed entirely by reasoning and produce empty output.
const DefaultReasoningTokenMultiplier = 5

// buildRequestBody constructs the chat-completions request, switching
// parameter names for reasoning models and scaling their token budget.
func buildRequestBody(model string, messages []map[string]string, maxTokens int, temperature float32, reasoningTokenMultiplier int) map[string]interface{} {
	body := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}

	if IsReasoningModel(model) {
		if reasoningTokenMultiplier <= 0 {
			reasoningTokenMultiplier = DefaultReasoningTokenMultiplier
		}
		body["max_completion_tokens"] = maxTokens * reasoningTokenMultiplier
		// temperature omitted: reasoning endpoints reject it
	} else {
		body["max_tokens"] = maxTokens
		body["temperature"] = temperature
	}

	return body
}
