package learning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-io/vantage/core"
)

func TestStoreSubmitAppendsAndClampsScore(t *testing.T) {
	s := NewStore(DefaultStoreConfig(), nil)

	fb, err := s.Submit(context.Background(), UserFeedback{
		User: "alice", Content: "doc-1", Type: FeedbackRating, Score: 1.5, Text: "great",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, fb.Score)
	assert.NotEmpty(t, fb.ID)
	assert.Equal(t, 1, s.Len())
}

func TestStoreSubmitRejectsEmptyContent(t *testing.T) {
	s := NewStore(DefaultStoreConfig(), nil)
	_, err := s.Submit(context.Background(), UserFeedback{User: "alice", Score: 0.5})
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func TestStoreSubmitTrimsToMaxRecords(t *testing.T) {
	s := NewStore(StoreConfig{MaxRecords: 2, RateWindow: time.Hour}, nil)
	for i := 0; i < 5; i++ {
		_, err := s.Submit(context.Background(), UserFeedback{Content: "doc", Score: 0.5})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.Len())
}

func TestStoreInsightsAggregatesPerContent(t *testing.T) {
	s := NewStore(DefaultStoreConfig(), nil)
	_, _ = s.Submit(context.Background(), UserFeedback{Content: "doc-a", Score: 0.2})
	_, _ = s.Submit(context.Background(), UserFeedback{Content: "doc-a", Score: 0.4})
	_, _ = s.Submit(context.Background(), UserFeedback{Content: "doc-b", Score: 0.9})

	insights := s.Insights(context.Background(), "", 0, 10)
	assert.Equal(t, 3, insights.TotalFeedback)
	assert.InDelta(t, 0.5, insights.AverageScore, 0.001)
	require.Len(t, insights.ContentTrends, 2)
	assert.Equal(t, "doc-a", insights.ContentTrends[0].Content)
	assert.Equal(t, 2, insights.ContentTrends[0].Count)
	assert.InDelta(t, 0.3, insights.ContentTrends[0].AverageScore, 0.001)
}

func TestStoreInsightsFiltersByQueryAndThreshold(t *testing.T) {
	s := NewStore(DefaultStoreConfig(), nil)
	_, _ = s.Submit(context.Background(), UserFeedback{Content: "rust-gap", Score: 0.9})
	_, _ = s.Submit(context.Background(), UserFeedback{Content: "toml-gap", Score: 0.1})

	insights := s.Insights(context.Background(), "gap", 0.5, 10)
	require.Len(t, insights.ContentTrends, 1)
	assert.Equal(t, "rust-gap", insights.ContentTrends[0].Content)
}

func TestStoreInsightsRespectsMaxResults(t *testing.T) {
	s := NewStore(DefaultStoreConfig(), nil)
	_, _ = s.Submit(context.Background(), UserFeedback{Content: "a", Score: 0.5})
	_, _ = s.Submit(context.Background(), UserFeedback{Content: "b", Score: 0.5})
	_, _ = s.Submit(context.Background(), UserFeedback{Content: "c", Score: 0.5})

	insights := s.Insights(context.Background(), "", 0, 2)
	assert.Len(t, insights.ContentTrends, 2)
}

func TestStoreInsightsOnEmptyStoreIsZeroValueSafe(t *testing.T) {
	s := NewStore(DefaultStoreConfig(), nil)
	insights := s.Insights(context.Background(), "", 0, 10)
	assert.Equal(t, 0, insights.TotalFeedback)
	assert.Equal(t, 0.0, insights.AverageScore)
	assert.Empty(t, insights.ContentTrends)
}
