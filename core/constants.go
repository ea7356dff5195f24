package core

import "time"

// Environment variables recognised by provider construction. Missing
// a required key fails construction with ErrMissingConfiguration rather
// than deferring the failure to the first request.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvBedrockRegion   = "AWS_REGION"

	EnvRedisURL = "REDIS_URL"
	EnvDevMode  = "DEV_MODE"
)

// Redis key-namespace defaults, one per component using Redis persistence.
const (
	DefaultTaskStateNamespace    = "vantage:taskstate"
	DefaultRateLimitNamespace    = "vantage:ratelimit"
	DefaultClassificationNS      = "vantage:classify"
	DefaultVectorMetaNamespace   = "vantage:vectormeta"
	DefaultCircuitBreakerNS      = "vantage:circuit"
	DefaultProviderStatsNS       = "vantage:providerstats"
	DefaultDeadLetterNamespace   = "vantage:deadletter"
)

// DefaultClassificationCacheTTL is a 15-minute TTL for cached
// classifications. proactive.DefaultScorerConfig does not use it: the
// scorer's own CacheTTL defaults to five minutes.
const DefaultClassificationCacheTTL = 15 * time.Minute
