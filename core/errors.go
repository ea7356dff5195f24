package core

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error by its recovery semantics. Classification is a
// pure function of the variant: the same Kind always carries the same
// retry policy, regardless of which component raised it.
type Kind string

const (
	KindTransient          Kind = "transient"
	KindRateLimit          Kind = "rate_limit"
	KindResourceExhaustion Kind = "resource_exhaustion"
	KindTimeout            Kind = "timeout"
	KindNetwork            Kind = "network"
	KindExternalService    Kind = "external_service"
	KindCircuitBreakerOpen Kind = "circuit_breaker_open"
	KindPermanent          Kind = "permanent"
	KindValidation         Kind = "validation"
	KindInternal           Kind = "internal"
)

// ExternalServiceStatus is the health state an ExternalService error reports
// for the collaborator that produced it.
type ExternalServiceStatus string

const (
	ServiceHealthy     ExternalServiceStatus = "healthy"
	ServiceDegraded    ExternalServiceStatus = "degraded"
	ServiceUnknown     ExternalServiceStatus = "unknown"
	ServiceUnavailable ExternalServiceStatus = "unavailable"
)

// Sentinel errors for errors.Is comparisons against well-known conditions
// that do not need kind-specific fields.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")
	ErrAlreadyStarted       = errors.New("already started")
	ErrNotInitialized       = errors.New("not initialized")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrNotFound             = errors.New("not found")
	ErrConnectionFailed     = errors.New("connection failed")
	ErrMaxRetriesExceeded   = errors.New("maximum retries exceeded")
	ErrContextCanceled      = errors.New("context canceled")
	ErrCircuitBreakerOpen   = errors.New("circuit breaker open")
)

// VantageError is the structured error type carried across every component
// boundary in this repository. Op and Component identify where the failure
// happened; Kind drives retry/escalation policy; the kind-specific fields
// are populated only for the kinds that use them.
type VantageError struct {
	Op        string // operation that failed, e.g. "providers.Client.ResearchQuery"
	Component string // provider/service/component name
	Kind      Kind
	Message   string
	Err       error

	// RateLimit / ResourceExhaustion
	RetryAfter       time.Duration
	SuggestedBackoff time.Duration

	// Timeout
	ResetTime time.Time

	// ExternalService
	ServiceStatus ExternalServiceStatus

	// Network
	Flagged bool // true if the network condition is known-transient

	// Internal
	Recoverable bool

	// generic provider/HTTP context
	StatusCode int
}

func (e *VantageError) Error() string {
	prefix := e.Component
	if e.Op != "" {
		if prefix != "" {
			prefix = fmt.Sprintf("%s[%s]", e.Op, prefix)
		} else {
			prefix = e.Op
		}
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if prefix == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", prefix, e.Kind, msg)
}

func (e *VantageError) Unwrap() error {
	return e.Err
}

// New constructs a VantageError. Kind-specific fields are set by the
// caller on the returned value, e.g.:
//
//	err := core.New("providers.Client.ResearchQuery", "openai", core.KindRateLimit, "quota exceeded", nil)
//	err.RetryAfter = 30 * time.Second
func New(op, component string, kind Kind, message string, err error) *VantageError {
	return &VantageError{
		Op:        op,
		Component: component,
		Kind:      kind,
		Message:   message,
		Err:       err,
	}
}

// Retryable implements the retryability table. It is a pure
// function of the error's Kind (and, for Network/Internal, the flag the
// raiser attached).
func Retryable(err error) bool {
	var ve *VantageError
	if !errors.As(err, &ve) {
		return false
	}
	switch ve.Kind {
	case KindTransient, KindRateLimit, KindResourceExhaustion, KindTimeout:
		return true
	case KindNetwork:
		return ve.Flagged
	case KindExternalService:
		return ve.ServiceStatus == ServiceDegraded || ve.ServiceStatus == ServiceUnknown
	case KindInternal:
		return ve.Recoverable
	case KindCircuitBreakerOpen, KindPermanent, KindValidation:
		return false
	default:
		return false
	}
}

// RetryHint returns the duration the raiser suggests waiting before the
// next attempt, if any, and whether one was supplied. RateLimit and
// ResourceExhaustion errors carry server-supplied hints that override a
// computed backoff when larger.
func RetryHint(err error) (time.Duration, bool) {
	var ve *VantageError
	if !errors.As(err, &ve) {
		return 0, false
	}
	switch ve.Kind {
	case KindRateLimit:
		if ve.RetryAfter > 0 {
			return ve.RetryAfter, true
		}
	case KindResourceExhaustion:
		if ve.SuggestedBackoff > 0 {
			return ve.SuggestedBackoff, true
		}
	}
	return 0, false
}

// KindOf extracts the Kind from err, defaulting to KindInternal for errors
// that are not a *VantageError (so unexpected errors fail closed: never
// retried without a marked-recoverable flag, never silently treated as
// Permanent either).
func KindOf(err error) Kind {
	var ve *VantageError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindInternal
}

// IsValidation reports whether err is a Validation error, which callers
// must surface immediately and never retry.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsCircuitBreakerOpen reports whether err was raised by a breaker refusing
// admission. The opener itself never retries this; a caller composing
// multiple services may still try another one.
func IsCircuitBreakerOpen(err error) bool {
	return KindOf(err) == KindCircuitBreakerOpen || errors.Is(err, ErrCircuitBreakerOpen)
}

// IsConfigurationError reports configuration-related sentinel errors.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) || errors.Is(err, ErrMissingConfiguration)
}

// IsStateError reports lifecycle/state sentinel errors.
func IsStateError(err error) bool {
	return errors.Is(err, ErrAlreadyStarted) || errors.Is(err, ErrNotInitialized) || errors.Is(err, ErrInvalidTransition)
}

// IsNotFound reports the generic not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
