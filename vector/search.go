package vector

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-io/vantage/telemetry"
)

// SearchStrategy pre-sets the semantic/keyword weight split.
type SearchStrategy string

const (
	SemanticFocus SearchStrategy = "semantic_focus"
	Balanced      SearchStrategy = "balanced"
	KeywordFocus  SearchStrategy = "keyword_focus"
)

// FusionMethod selects how semantic and keyword result lists are combined
//
type FusionMethod string

const (
	WeightedSum          FusionMethod = "weighted_sum"
	ReciprocalRankFusion FusionMethod = "reciprocal_rank_fusion"
)

// Weights is a semantic/keyword weight pair; strategies pre-set these,
// callers may override via SearchRequest.CustomWeights.
type Weights struct {
	Semantic float64
	Keyword  float64
}

func weightsForStrategy(s SearchStrategy) Weights {
	switch s {
	case SemanticFocus:
		return Weights{Semantic: 0.8, Keyword: 0.2}
	case KeywordFocus:
		return Weights{Semantic: 0.2, Keyword: 0.8}
	default:
		return Weights{Semantic: 0.5, Keyword: 0.5}
	}
}

// HybridConfig tunes a HybridSearcher. RRFConstant defaults to 60, the
// conventional value in the RRF literature.
type HybridConfig struct {
	RRFConstant int
}

// DefaultHybridConfig returns HybridConfig{RRFConstant: 60}.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{RRFConstant: 60}
}

// SearchRequest is one hybrid-search invocation.
type SearchRequest struct {
	Query               string
	Strategy            SearchStrategy
	FusionMethod        FusionMethod
	Limit               int
	Filter              func(Document) bool
	MinHybridScore      float64
	CustomWeights       *Weights
	IncludeExplanations bool
}

// SearchResult is one ranked hybrid result.
type SearchResult struct {
	Document      Document
	HybridScore   float64
	SemanticScore float64
	KeywordScore  float64
	Explanation   string
}

// HybridResponse wraps the ranked results plus execution stats.
type HybridResponse struct {
	Results         []SearchResult
	ExecutionTimeMs int64
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// HybridSearcher executes a semantic search against an embedding store
// and a keyword (BM25-like) search against the same corpus, then fuses
// the two ranked lists.
type HybridSearcher struct {
	store     *Store
	embedding EmbeddingService
	cfg       HybridConfig

	mu               sync.Mutex
	totalSearches    uint64
	totalResponseMs  int64
	hitCountCounts   map[int]int
}

// NewHybridSearcher builds a searcher over store, embedding queries via
// embedding.
func NewHybridSearcher(store *Store, embedding EmbeddingService, cfg HybridConfig) *HybridSearcher {
	if cfg.RRFConstant <= 0 {
		cfg.RRFConstant = 60
	}
	return &HybridSearcher{
		store:          store,
		embedding:      embedding,
		cfg:            cfg,
		hitCountCounts: make(map[int]int),
	}
}

// Search runs the semantic search, the keyword search, fusion,
// min-score filtering, and limiting.
func (h *HybridSearcher) Search(ctx context.Context, req SearchRequest) (*HybridResponse, error) {
	start := time.Now()

	queryVector, err := h.embedding.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	semanticRanked := h.store.Search(ctx, queryVector, 0, req.Filter, 0)
	keywordRanked := h.keywordSearch(req.Query, req.Filter)

	weights := weightsForStrategy(req.Strategy)
	if req.CustomWeights != nil {
		weights = *req.CustomWeights
	}

	method := req.FusionMethod
	if method == "" {
		method = WeightedSum
	}

	var fused []SearchResult
	switch method {
	case ReciprocalRankFusion:
		fused = h.fuseRRF(semanticRanked, keywordRanked, weights)
	default:
		fused = h.fuseWeightedSum(semanticRanked, keywordRanked, weights)
	}

	sort.Slice(fused, func(i, j int) bool { return fused[i].HybridScore > fused[j].HybridScore })

	filtered := fused[:0]
	for _, r := range fused {
		if r.HybridScore < req.MinHybridScore {
			continue
		}
		if req.IncludeExplanations {
			r.Explanation = explain(method, weights, r)
		}
		filtered = append(filtered, r)
	}

	if req.Limit > 0 && len(filtered) > req.Limit {
		filtered = filtered[:req.Limit]
	}

	elapsed := time.Since(start)
	h.recordSearch(elapsed, len(filtered))
	telemetry.Histogram("vector.search.duration_ms", float64(elapsed.Milliseconds()), "fusion", string(method))

	return &HybridResponse{Results: filtered, ExecutionTimeMs: elapsed.Milliseconds()}, nil
}

func explain(method FusionMethod, w Weights, r SearchResult) string {
	if method == ReciprocalRankFusion {
		return "reciprocal rank fusion of semantic and keyword rankings"
	}
	return strings.TrimSpace(
		"weighted sum: " + formatWeight(w.Semantic) + "*semantic + " + formatWeight(w.Keyword) + "*keyword",
	)
}

func formatWeight(w float64) string {
	s := strconv.FormatFloat(w, 'f', -1, 64)
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}

func (h *HybridSearcher) keywordSearch(query string, filter func(Document) bool) []ScoredDocument {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	h.store.mu.RLock()
	docs := make([]Document, 0, len(h.store.documents))
	for _, d := range h.store.documents {
		docs = append(docs, d)
	}
	h.store.mu.RUnlock()

	var results []ScoredDocument
	for _, doc := range docs {
		if filter != nil && !filter(doc) {
			continue
		}
		score := bm25Score(queryTerms, doc.Content)
		if score <= 0 {
			continue
		}
		results = append(results, ScoredDocument{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// bm25Score is a simplified BM25-like term-overlap score: term frequency
// normalized by document length, summed across query terms present.
func bm25Score(queryTerms []string, content string) float64 {
	docTerms := tokenize(content)
	if len(docTerms) == 0 {
		return 0
	}

	freq := make(map[string]int, len(docTerms))
	for _, t := range docTerms {
		freq[t]++
	}

	const k1 = 1.2
	const b = 0.75
	avgLen := 100.0 // fixed reference length keeps the score stable without a corpus-wide pass
	docLen := float64(len(docTerms))

	var score float64
	for _, term := range queryTerms {
		tf := float64(freq[term])
		if tf == 0 {
			continue
		}
		numerator := tf * (k1 + 1)
		denominator := tf + k1*(1-b+b*(docLen/avgLen))
		score += numerator / denominator
	}
	return score
}

func (h *HybridSearcher) fuseWeightedSum(semantic, keyword []ScoredDocument, w Weights) []SearchResult {
	maxSem := maxScore(semantic)
	maxKw := maxScore(keyword)

	semByID := make(map[string]float64, len(semantic))
	for _, s := range semantic {
		semByID[s.Document.ID] = normalize(s.Score, maxSem)
	}
	kwByID := make(map[string]float64, len(keyword))
	for _, k := range keyword {
		kwByID[k.Document.ID] = normalize(k.Score, maxKw)
	}

	docByID := make(map[string]Document)
	for _, s := range semantic {
		docByID[s.Document.ID] = s.Document
	}
	for _, k := range keyword {
		docByID[k.Document.ID] = k.Document
	}

	results := make([]SearchResult, 0, len(docByID))
	for id, doc := range docByID {
		sem := semByID[id]
		kw := kwByID[id]
		results = append(results, SearchResult{
			Document:      doc,
			SemanticScore: sem,
			KeywordScore:  kw,
			HybridScore:   w.Semantic*sem + w.Keyword*kw,
		})
	}
	return results
}

func (h *HybridSearcher) fuseRRF(semantic, keyword []ScoredDocument, w Weights) []SearchResult {
	k := float64(h.cfg.RRFConstant)

	rrfByID := make(map[string]float64)
	docByID := make(map[string]Document)
	semByID := make(map[string]float64)
	kwByID := make(map[string]float64)

	for rank, s := range semantic {
		rrfByID[s.Document.ID] += w.Semantic * (1.0 / (k + float64(rank+1)))
		docByID[s.Document.ID] = s.Document
		semByID[s.Document.ID] = s.Score
	}
	for rank, kwDoc := range keyword {
		rrfByID[kwDoc.Document.ID] += w.Keyword * (1.0 / (k + float64(rank+1)))
		docByID[kwDoc.Document.ID] = kwDoc.Document
		kwByID[kwDoc.Document.ID] = kwDoc.Score
	}

	results := make([]SearchResult, 0, len(docByID))
	for id, doc := range docByID {
		results = append(results, SearchResult{
			Document:      doc,
			SemanticScore: semByID[id],
			KeywordScore:  kwByID[id],
			HybridScore:   rrfByID[id],
		})
	}
	return results
}

func maxScore(scored []ScoredDocument) float64 {
	var max float64
	for _, s := range scored {
		if s.Score > max {
			max = s.Score
		}
	}
	return max
}

func normalize(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return score / max
}

func (h *HybridSearcher) recordSearch(elapsed time.Duration, hitCount int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.totalSearches++
	h.totalResponseMs += elapsed.Milliseconds()
	h.hitCountCounts[hitCount]++
}

// Analytics aggregates the searcher's "total searches, average response time, hit
// count distribution" snapshot.
type Analytics struct {
	TotalSearches     uint64
	AvgResponseTimeMs float64
	HitCountCounts    map[int]int
}

// Analytics returns a point-in-time snapshot.
func (h *HybridSearcher) Analytics() Analytics {
	h.mu.Lock()
	defer h.mu.Unlock()

	avg := 0.0
	if h.totalSearches > 0 {
		avg = float64(h.totalResponseMs) / float64(h.totalSearches)
	}
	counts := make(map[int]int, len(h.hitCountCounts))
	for k, v := range h.hitCountCounts {
		counts[k] = v
	}
	return Analytics{TotalSearches: h.totalSearches, AvgResponseTimeMs: avg, HitCountCounts: counts}
}

// FetchContext implements research.ContextSource: returns the top
// matching documents' content as plain strings for prompt enrichment
// for prompt enrichment.
func (h *HybridSearcher) FetchContext(ctx context.Context, query string, max int, threshold float64) ([]string, error) {
	resp, err := h.Search(ctx, SearchRequest{
		Query:          query,
		Strategy:       Balanced,
		FusionMethod:   ReciprocalRankFusion,
		Limit:          max,
		MinHybridScore: threshold,
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, r.Document.Content)
	}
	return out, nil
}
