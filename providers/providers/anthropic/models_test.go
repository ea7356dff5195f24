package anthropic

import "testing"

func TestResolveModelAliases(t *testing.T) {
	for alias, want := range modelAliases {
		if got := resolveModel(alias); got != want {
			t.Errorf("resolveModel(%q) = %q, want %q", alias, got, want)
		}
	}

	// Explicit model names and unknown aliases pass through untouched.
	for _, passThrough := range []string{"claude-opus-4-5-20251101", "unknown-alias"} {
		if got := resolveModel(passThrough); got != passThrough {
			t.Errorf("resolveModel(%q) = %q, want pass-through", passThrough, got)
		}
	}
}

func TestResolveModelEnvOverride(t *testing.T) {
	// The override wins over the alias table, and works for names the
	// table has never heard of.
	t.Setenv("VANTAGE_ANTHROPIC_MODEL_SMART", "claude-pinned")
	if got := resolveModel("smart"); got != "claude-pinned" {
		t.Errorf("env override ignored: got %q", got)
	}

	t.Setenv("VANTAGE_ANTHROPIC_MODEL_CUSTOM", "claude-custom-model")
	if got := resolveModel("custom"); got != "claude-custom-model" {
		t.Errorf("custom env override ignored: got %q", got)
	}
}
