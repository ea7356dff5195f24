package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRetryableByKind(t *testing.T) {
	cases := []struct {
		name string
		err  *VantageError
		want bool
	}{
		{"transient", New("op", "c", KindTransient, "m", nil), true},
		{"rate limit", New("op", "c", KindRateLimit, "m", nil), true},
		{"resource exhaustion", New("op", "c", KindResourceExhaustion, "m", nil), true},
		{"timeout", New("op", "c", KindTimeout, "m", nil), true},
		{"permanent", New("op", "c", KindPermanent, "m", nil), false},
		{"validation", New("op", "c", KindValidation, "m", nil), false},
		{"breaker open", New("op", "c", KindCircuitBreakerOpen, "m", nil), false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Errorf("%s: Retryable = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRetryableNetworkHonoursFlag(t *testing.T) {
	flagged := New("op", "c", KindNetwork, "reset by peer", nil)
	flagged.Flagged = true
	if !Retryable(flagged) {
		t.Error("flagged network error should retry")
	}

	unflagged := New("op", "c", KindNetwork, "unknown condition", nil)
	if Retryable(unflagged) {
		t.Error("unflagged network error should not retry")
	}
}

func TestRetryableExternalServiceByStatus(t *testing.T) {
	for status, want := range map[ExternalServiceStatus]bool{
		ServiceDegraded:    true,
		ServiceUnknown:     true,
		ServiceHealthy:     false,
		ServiceUnavailable: false,
	} {
		err := New("op", "c", KindExternalService, "m", nil)
		err.ServiceStatus = status
		if got := Retryable(err); got != want {
			t.Errorf("status %s: Retryable = %v, want %v", status, got, want)
		}
	}
}

func TestRetryableInternalRecoverableOnly(t *testing.T) {
	recoverable := New("op", "c", KindInternal, "m", nil)
	recoverable.Recoverable = true
	if !Retryable(recoverable) {
		t.Error("recoverable internal error should retry")
	}
	if Retryable(New("op", "c", KindInternal, "m", nil)) {
		t.Error("plain internal error should not retry")
	}
	if Retryable(errors.New("plain")) {
		t.Error("non-VantageError should not retry")
	}
}

func TestRetryHint(t *testing.T) {
	rl := New("op", "c", KindRateLimit, "m", nil)
	rl.RetryAfter = 30 * time.Second
	if hint, ok := RetryHint(rl); !ok || hint != 30*time.Second {
		t.Errorf("rate-limit hint = %v, %v", hint, ok)
	}

	re := New("op", "c", KindResourceExhaustion, "m", nil)
	re.SuggestedBackoff = time.Minute
	if hint, ok := RetryHint(re); !ok || hint != time.Minute {
		t.Errorf("exhaustion hint = %v, %v", hint, ok)
	}

	if _, ok := RetryHint(New("op", "c", KindRateLimit, "m", nil)); ok {
		t.Error("zero RetryAfter should report no hint")
	}
	if _, ok := RetryHint(New("op", "c", KindTimeout, "m", nil)); ok {
		t.Error("timeout errors carry no hint")
	}
}

func TestKindOfWrappedError(t *testing.T) {
	inner := New("op", "openai", KindRateLimit, "429", nil)
	wrapped := fmt.Errorf("research failed: %w", inner)
	if KindOf(wrapped) != KindRateLimit {
		t.Error("KindOf should see through wrapping")
	}
	if KindOf(errors.New("opaque")) != KindInternal {
		t.Error("non-VantageError should default to internal")
	}
}

func TestErrorMessageNamesProviderAndKind(t *testing.T) {
	err := New("providers.Client.ResearchQuery", "openai", KindRateLimit, "quota exceeded", nil)
	msg := err.Error()
	for _, want := range []string{"openai", "rate_limit", "quota exceeded"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestSentinelHelpers(t *testing.T) {
	if !IsConfigurationError(fmt.Errorf("wrap: %w", ErrInvalidConfiguration)) {
		t.Error("IsConfigurationError missed wrapped sentinel")
	}
	if !IsStateError(fmt.Errorf("wrap: %w", ErrInvalidTransition)) {
		t.Error("IsStateError missed wrapped sentinel")
	}
	if !IsNotFound(fmt.Errorf("wrap: %w", ErrNotFound)) {
		t.Error("IsNotFound missed wrapped sentinel")
	}
	if !IsCircuitBreakerOpen(fmt.Errorf("wrap: %w", ErrCircuitBreakerOpen)) {
		t.Error("IsCircuitBreakerOpen missed wrapped sentinel")
	}
	if IsConfigurationError(ErrNotFound) {
		t.Error("false positive in sentinel helper")
	}
}
