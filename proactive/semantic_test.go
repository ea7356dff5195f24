package proactive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-io/vantage/proactive/gap"
	"github.com/relabs-io/vantage/vector"
)

type fakeSearcher struct {
	resp *vector.HybridResponse
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, req vector.SearchRequest) (*vector.HybridResponse, error) {
	return f.resp, f.err
}

func TestSemanticEnhancerPopulatesRelatedDocuments(t *testing.T) {
	searcher := &fakeSearcher{
		resp: &vector.HybridResponse{
			Results: []vector.SearchResult{
				{Document: vector.Document{ID: "a", Content: "relevant doc"}, HybridScore: 0.9},
				{Document: vector.Document{ID: "b", Content: "weak match"}, HybridScore: 0.2},
			},
		},
	}
	enhancer := NewSemanticEnhancer(searcher, DefaultSemanticConfig(), nil)

	g := gap.Gap{Type: gap.MissingDocumentation, Description: "undocumented function", Confidence: 0.8}
	enhanced := enhancer.EnhanceGap(context.Background(), g)

	require.Len(t, enhanced.RelatedDocuments, 1)
	assert.Equal(t, "a", enhanced.RelatedDocuments[0].DocumentID)
	assert.InDelta(t, 0.9, enhanced.ValidationConfidence, 0.0001)
	assert.False(t, enhanced.UsedGracefulDegradation)
}

func TestSemanticEnhancerDegradesGracefullyOnSearchFailure(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("vector store unavailable")}
	enhancer := NewSemanticEnhancer(searcher, DefaultSemanticConfig(), nil)

	g := gap.Gap{Type: gap.TodoComment, Description: "fix this", Confidence: 0.7}
	enhanced := enhancer.EnhanceGap(context.Background(), g)

	assert.True(t, enhanced.UsedGracefulDegradation)
	assert.Equal(t, 0.7, enhanced.ValidationConfidence)
	assert.Empty(t, enhanced.RelatedDocuments)
}

func TestSemanticEnhancerPicksStrategyByGapType(t *testing.T) {
	assert.Equal(t, vector.KeywordFocus, strategyForGapType(gap.TodoComment))
	assert.Equal(t, vector.KeywordFocus, strategyForGapType(gap.ConfigurationGap))
	assert.Equal(t, vector.SemanticFocus, strategyForGapType(gap.MissingDocumentation))
	assert.Equal(t, vector.SemanticFocus, strategyForGapType(gap.ApiDocumentationGap))
	assert.Equal(t, vector.Balanced, strategyForGapType(gap.UndocumentedTechnology))
}

func TestSemanticEnhancerEnhancesAllGapsInOrder(t *testing.T) {
	searcher := &fakeSearcher{resp: &vector.HybridResponse{}}
	enhancer := NewSemanticEnhancer(searcher, DefaultSemanticConfig(), nil)

	gaps := []gap.Gap{
		{Type: gap.TodoComment, Description: "a"},
		{Type: gap.ConfigurationGap, Description: "b"},
	}
	enhanced := enhancer.EnhanceGaps(context.Background(), gaps)
	require.Len(t, enhanced, 2)
	assert.Equal(t, gap.TodoComment, enhanced[0].Gap.Type)
	assert.Equal(t, gap.ConfigurationGap, enhanced[1].Gap.Type)
}
