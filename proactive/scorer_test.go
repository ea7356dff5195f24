package proactive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextScorerAppliesMultipliers(t *testing.T) {
	calls := 0
	classify := func(ctx context.Context, query string) (Classification, error) {
		calls++
		return Classification{Domain: DomainSecurity, Audience: AudienceBeginner, Urgency: UrgencyImmediate, Confidence: 0.5}, nil
	}
	scorer := NewContextScorer(DefaultScorerConfig(), classify, nil)

	score, classification, err := scorer.Score(context.Background(), "how do I patch this CVE", 3.0)
	require.NoError(t, err)
	assert.Equal(t, DomainSecurity, classification.Domain)
	// 3.0 * 1.4 * 1.2 * 2.0 + 0.5*0.1*10 = 10.08+0.5 clamped to 10
	assert.InDelta(t, 10.0, score, 0.0001)
	assert.Equal(t, 1, calls)
}

func TestContextScorerCachesClassification(t *testing.T) {
	calls := 0
	classify := func(ctx context.Context, query string) (Classification, error) {
		calls++
		return Classification{Domain: DomainGeneral, Audience: AudienceAdvanced, Urgency: UrgencyNormal, Confidence: 0.3}, nil
	}
	scorer := NewContextScorer(DefaultScorerConfig(), classify, nil)

	_, _, err := scorer.Score(context.Background(), "same query", 5.0)
	require.NoError(t, err)
	_, _, err = scorer.Score(context.Background(), "same query", 5.0)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call should hit the classification cache")
}

func TestContextScorerDegradesGracefullyOnClassificationFailure(t *testing.T) {
	classify := func(ctx context.Context, query string) (Classification, error) {
		return Classification{}, errors.New("classifier unavailable")
	}
	cfg := DefaultScorerConfig()
	cfg.EnableGracefulDegradation = true
	scorer := NewContextScorer(cfg, classify, nil)

	score, classification, err := scorer.Score(context.Background(), "anything", 4.0)
	require.NoError(t, err)
	assert.Equal(t, 4.0, score)
	assert.Equal(t, Classification{}, classification)
}

func TestContextScorerPropagatesErrorWithoutGracefulDegradation(t *testing.T) {
	classify := func(ctx context.Context, query string) (Classification, error) {
		return Classification{}, errors.New("classifier unavailable")
	}
	cfg := DefaultScorerConfig()
	cfg.EnableGracefulDegradation = false
	scorer := NewContextScorer(cfg, classify, nil)

	_, _, err := scorer.Score(context.Background(), "anything", 4.0)
	require.Error(t, err)
}

func TestContextScorerClampsToRange(t *testing.T) {
	classify := func(ctx context.Context, query string) (Classification, error) {
		return Classification{Domain: DomainSecurity, Urgency: UrgencyImmediate, Confidence: 1.0}, nil
	}
	scorer := NewContextScorer(DefaultScorerConfig(), classify, nil)

	score, _, err := scorer.Score(context.Background(), "urgent", 10.0)
	require.NoError(t, err)
	assert.LessOrEqual(t, score, 10.0)
}
