package telemetry

import (
	"context"
	"strings"
	"testing"
)

func TestWithBaggageRoundTrip(t *testing.T) {
	ctx := WithBaggage(context.Background(), "request_id", "r-1", "provider", "openai")
	got := GetBaggage(ctx)
	if got["request_id"] != "r-1" || got["provider"] != "openai" {
		t.Errorf("GetBaggage = %v", got)
	}
}

func TestWithBaggageIsAdditive(t *testing.T) {
	ctx := WithBaggage(context.Background(), "a", "1")
	ctx = WithBaggage(ctx, "b", "2")
	got := GetBaggage(ctx)
	if got["a"] != "1" || got["b"] != "2" {
		t.Errorf("additive baggage = %v", got)
	}
}

func TestWithBaggageDropsOversizedValues(t *testing.T) {
	huge := strings.Repeat("x", maxBaggageValueLen+1)
	ctx := WithBaggage(context.Background(), "big", huge, "ok", "1")
	got := GetBaggage(ctx)
	if _, found := got["big"]; found {
		t.Error("oversized value should be dropped")
	}
	if got["ok"] != "1" {
		t.Error("valid sibling pair should survive")
	}
}

func TestGetBaggageNilContext(t *testing.T) {
	if got := GetBaggage(nil); len(got) != 0 {
		t.Errorf("nil context baggage = %v", got)
	}
}

func TestAppendBaggageExplicitLabelsWin(t *testing.T) {
	ctx := WithBaggage(context.Background(), "env", "staging")
	merged := parseLabels(appendBaggageToLabels(ctx, []string{"env", "production"})...)
	if merged["env"] != "production" {
		t.Errorf("explicit label should win, got %q", merged["env"])
	}
}
