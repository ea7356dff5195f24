package gemini

import "testing"

func TestResolveModelAliases(t *testing.T) {
	for alias, want := range modelAliases {
		if got := resolveModel(alias); got != want {
			t.Errorf("resolveModel(%q) = %q, want %q", alias, got, want)
		}
	}

	for _, passThrough := range []string{"gemini-2.0-flash-exp", "unknown"} {
		if got := resolveModel(passThrough); got != passThrough {
			t.Errorf("resolveModel(%q) = %q, want pass-through", passThrough, got)
		}
	}
}

func TestResolveModelEnvOverride(t *testing.T) {
	t.Setenv("VANTAGE_GEMINI_MODEL_SMART", "gemini-pinned")
	if got := resolveModel("smart"); got != "gemini-pinned" {
		t.Errorf("env override ignored: got %q", got)
	}
}
