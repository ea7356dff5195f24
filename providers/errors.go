package providers

import (
	"errors"
	"strings"

	"github.com/relabs-io/vantage/core"
)

// MapGenerationError maps an error returned by a concrete core.AIClient
// backend onto the core taxonomy, preserving kind semantics: auth
// failures become Permanent, rate limits become RateLimit (honouring a
// retry-after hint when the backend already attached one), overloaded/5xx
// responses become ExternalService with a Degraded hint, and anything
// unrecognised maps to a generic QueryFailed-equivalent Internal error
// (unknown types map to a generic query failure).
func MapGenerationError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var ve *core.VantageError
	if errors.As(err, &ve) {
		// Already classified by the backend (e.g. a wrapped resilience
		// error); pass through unchanged.
		return ve
	}

	msg := strings.ToLower(err.Error())
	op := "providers.Client.ResearchQuery"

	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "authentication"):
		return core.New(op, provider, core.KindPermanent, err.Error(), err)

	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		e := core.New(op, provider, core.KindRateLimit, err.Error(), err)
		return e

	case strings.Contains(msg, "quota") || strings.Contains(msg, "insufficient_quota"):
		e := core.New(op, provider, core.KindResourceExhaustion, err.Error(), err)
		return e

	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "context deadline"):
		return core.New(op, provider, core.KindTimeout, err.Error(), err)

	case strings.Contains(msg, "overloaded") || strings.Contains(msg, "503") || strings.Contains(msg, "502") || strings.Contains(msg, "service unavailable") || strings.Contains(msg, "server error"):
		e := core.New(op, provider, core.KindExternalService, err.Error(), err)
		e.ServiceStatus = core.ServiceDegraded
		return e

	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") || strings.Contains(msg, "no such host"):
		e := core.New(op, provider, core.KindNetwork, err.Error(), err)
		e.Flagged = true
		return e

	default:
		return core.New(op, provider, core.KindInternal, err.Error(), err)
	}
}
