package proactive

import (
	"context"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/proactive/gap"
	"github.com/relabs-io/vantage/vector"
)

// GapSearcher is the narrow subset of *vector.HybridSearcher the enhancer
// needs, kept as an interface so tests can supply a fake without the
// package importing a vector-store implementation.
type GapSearcher interface {
	Search(ctx context.Context, req vector.SearchRequest) (*vector.HybridResponse, error)
}

var _ GapSearcher = (*vector.HybridSearcher)(nil)

// SemanticConfig tunes the enhancer's relevance thresholds and time budget.
type SemanticConfig struct {
	GapValidationThreshold  float64
	RelatedContentThreshold float64
	MaxRelatedDocuments     int
	MaxAnalysisTime         time.Duration
}

// DefaultSemanticConfig matches the reference fixture's thresholds.
func DefaultSemanticConfig() SemanticConfig {
	return SemanticConfig{
		GapValidationThreshold:  0.8,
		RelatedContentThreshold: 0.7,
		MaxRelatedDocuments:     5,
		MaxAnalysisTime:         time.Second,
	}
}

// RelatedDocument is one corpus hit supporting (or refuting) a gap.
type RelatedDocument struct {
	DocumentID string
	Content    string
	Similarity float64
}

// EnhancedGap is a detected gap annotated with the semantic layer's
// validation confidence and supporting corpus documents.
type EnhancedGap struct {
	Gap                     gap.Gap
	ValidationConfidence    float64
	RelatedDocuments        []RelatedDocument
	ProcessingTimeMs        int64
	UsedGracefulDegradation bool
}

// SemanticEnhancer cross-checks detected gaps against the vector corpus.
type SemanticEnhancer struct {
	searcher GapSearcher
	cfg      SemanticConfig
	logger   core.Logger
	now      func() time.Time
}

// NewSemanticEnhancer builds an enhancer. A nil logger is replaced with a
// no-op; now defaults to time.Now.
func NewSemanticEnhancer(searcher GapSearcher, cfg SemanticConfig, logger core.Logger) *SemanticEnhancer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &SemanticEnhancer{searcher: searcher, cfg: cfg, logger: logger, now: time.Now}
}

// strategyForGapType picks a search emphasis matching how literally the
// gap's text is expected to match its supporting documentation: TODO/config
// gaps read like keyword queries, missing-doc/API gaps read like conceptual
// ones, and undocumented-technology gaps sit in between.
func strategyForGapType(t gap.Type) vector.SearchStrategy {
	switch t {
	case gap.TodoComment, gap.ConfigurationGap:
		return vector.KeywordFocus
	case gap.MissingDocumentation, gap.ApiDocumentationGap:
		return vector.SemanticFocus
	default:
		return vector.Balanced
	}
}

// EnhanceGap runs one gap through a hybrid search over the gap's
// description and surrounding context. A search failure degrades
// gracefully: the gap is returned unchanged with UsedGracefulDegradation
// set, rather than propagating the error to the caller.
func (e *SemanticEnhancer) EnhanceGap(ctx context.Context, g gap.Gap) EnhancedGap {
	start := e.now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.MaxAnalysisTime)
	defer cancel()

	query := g.Description
	if g.Context != "" {
		query = query + " " + g.Context
	}

	resp, err := e.searcher.Search(ctx, vector.SearchRequest{
		Query:    query,
		Strategy: strategyForGapType(g.Type),
		Limit:    e.cfg.MaxRelatedDocuments,
	})
	elapsed := e.now().Sub(start)
	if err != nil {
		e.logger.Warn("semantic gap enhancement degraded", map[string]interface{}{
			"gap_type": string(g.Type),
			"error":    err.Error(),
		})
		return EnhancedGap{
			Gap:                     g,
			ValidationConfidence:    g.Confidence,
			ProcessingTimeMs:        elapsed.Milliseconds(),
			UsedGracefulDegradation: true,
		}
	}

	var related []RelatedDocument
	var sum float64
	for _, r := range resp.Results {
		if r.HybridScore < e.cfg.RelatedContentThreshold {
			continue
		}
		related = append(related, RelatedDocument{
			DocumentID: r.Document.ID,
			Content:    r.Document.Content,
			Similarity: r.HybridScore,
		})
		sum += r.HybridScore
		if len(related) >= e.cfg.MaxRelatedDocuments {
			break
		}
	}

	confidence := g.Confidence
	if len(related) > 0 {
		confidence = clamp01(sum / float64(len(related)))
	}

	return EnhancedGap{
		Gap:                  g,
		ValidationConfidence: confidence,
		RelatedDocuments:     related,
		ProcessingTimeMs:     elapsed.Milliseconds(),
	}
}

// EnhanceGaps runs EnhanceGap over every gap in order.
func (e *SemanticEnhancer) EnhanceGaps(ctx context.Context, gaps []gap.Gap) []EnhancedGap {
	out := make([]EnhancedGap, len(gaps))
	for i, g := range gaps {
		out[i] = e.EnhanceGap(ctx, g)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
