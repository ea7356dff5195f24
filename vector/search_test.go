package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticEmbedder struct {
	vector []float64
}

func (s *staticEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return s.vector, nil
}

func seedSearchStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(2, Cosine, nil)
	require.NoError(t, store.Upsert(context.Background(), Document{ID: "go-cache", Content: "Go embedding cache with LRU eviction", Embedding: []float64{1, 0}}))
	require.NoError(t, store.Upsert(context.Background(), Document{ID: "rust-cache", Content: "Rust caching strategies and TTL", Embedding: []float64{0.9, 0.1}}))
	require.NoError(t, store.Upsert(context.Background(), Document{ID: "unrelated", Content: "completely unrelated document about cooking", Embedding: []float64{0, 1}}))
	return store
}

func TestHybridSearchWeightedSumRanksByCombinedScore(t *testing.T) {
	store := seedSearchStore(t)
	searcher := NewHybridSearcher(store, &staticEmbedder{vector: []float64{1, 0}}, DefaultHybridConfig())

	resp, err := searcher.Search(context.Background(), SearchRequest{
		Query:        "Go embedding cache",
		Strategy:     Balanced,
		FusionMethod: WeightedSum,
		Limit:        10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "go-cache", resp.Results[0].Document.ID)
}

func TestHybridSearchReciprocalRankFusionRanks(t *testing.T) {
	store := seedSearchStore(t)
	searcher := NewHybridSearcher(store, &staticEmbedder{vector: []float64{1, 0}}, DefaultHybridConfig())

	resp, err := searcher.Search(context.Background(), SearchRequest{
		Query:        "Go embedding cache",
		Strategy:     Balanced,
		FusionMethod: ReciprocalRankFusion,
		Limit:        10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "go-cache", resp.Results[0].Document.ID)
}

func TestHybridSearchFiltersByMinHybridScore(t *testing.T) {
	store := seedSearchStore(t)
	searcher := NewHybridSearcher(store, &staticEmbedder{vector: []float64{1, 0}}, DefaultHybridConfig())

	resp, err := searcher.Search(context.Background(), SearchRequest{
		Query:          "Go embedding cache",
		Strategy:       Balanced,
		MinHybridScore: 1.5,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestHybridSearchRecordsAnalytics(t *testing.T) {
	store := seedSearchStore(t)
	searcher := NewHybridSearcher(store, &staticEmbedder{vector: []float64{1, 0}}, DefaultHybridConfig())

	_, err := searcher.Search(context.Background(), SearchRequest{Query: "Go embedding cache"})
	require.NoError(t, err)
	_, err = searcher.Search(context.Background(), SearchRequest{Query: "Go embedding cache"})
	require.NoError(t, err)

	analytics := searcher.Analytics()
	assert.Equal(t, uint64(2), analytics.TotalSearches)
}

func TestHybridSearchFetchContextReturnsContent(t *testing.T) {
	store := seedSearchStore(t)
	searcher := NewHybridSearcher(store, &staticEmbedder{vector: []float64{1, 0}}, DefaultHybridConfig())

	docs, err := searcher.FetchContext(context.Background(), "Go embedding cache", 2, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, docs)
}
