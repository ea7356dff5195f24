package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/providers"
	"github.com/relabs-io/vantage/telemetry"
)

// ProviderManager is the subset of providers.Manager the engine depends
// on, narrowed to an interface so tests can substitute a fake without
// registering real providers.Client values.
type ProviderManager interface {
	ExecuteResearch(ctx context.Context, researchType ResearchType, query string) (result, providerName string, err error)
	GetPerformanceStats() map[string]providers.Stats
}

// ContextSource enriches a query with supporting documents, typically
// backed by hybrid search. The engine depends on this narrow
// interface, not on package vector, to avoid a vector -> research ->
// vector import cycle; callers wire a *vector.HybridSearcher in.
type ContextSource interface {
	FetchContext(ctx context.Context, query string, max int, threshold float64) ([]string, error)
}

// Config tunes the engine's quality validation, cross-validation, and
// context-enrichment behaviour.
type Config struct {
	MinQualityScore           float64
	QualityThreshold          float64
	EnableCrossValidation     bool
	CrossValidationProviders  int
	MaxProcessingTime         time.Duration
	EnableVectorContext       bool
	MaxContextDocuments       int
	ContextRelevanceThreshold float64
}

// DefaultConfig mirrors the original engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		MinQualityScore:           0.6,
		QualityThreshold:          0.7,
		EnableCrossValidation:     false,
		CrossValidationProviders:  2,
		MaxProcessingTime:         60 * time.Second,
		EnableVectorContext:       false,
		MaxContextDocuments:       5,
		ContextRelevanceThreshold: 0.7,
	}
}

var _ ProviderManager = (*providers.Manager)(nil)

// Engine runs the research pipeline: classify -> template -> call
// Manager -> parse -> quality-validate -> (optional cross-validate).
type Engine struct {
	manager ProviderManager
	context ContextSource
	cfg     Config
	logger  core.Logger
	now     func() time.Time
}

// NewEngine builds an Engine. context may be nil; when nil,
// cfg.EnableVectorContext is ignored.
func NewEngine(manager ProviderManager, context ContextSource, cfg Config, logger core.Logger) *Engine {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Engine{manager: manager, context: context, cfg: cfg, logger: logger, now: time.Now}
}

// Execute runs the full pipeline for one classified request.
func (e *Engine) Execute(ctx context.Context, req ClassifiedRequest) (*Result, error) {
	start := e.now()

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	if e.cfg.EnableVectorContext && e.context != nil {
		docs, cerr := e.context.FetchContext(ctx, req.OriginalQuery, e.cfg.MaxContextDocuments, e.cfg.ContextRelevanceThreshold)
		if cerr != nil {
			e.logger.Warn("research context discovery failed", map[string]interface{}{"error": cerr.Error()})
		} else if len(docs) > 0 {
			prompt = prompt + "\n\nContext:\n" + strings.Join(docs, "\n---\n")
		}
	}

	stopTimer := telemetry.TimeOperation("research.provider_call.duration_ms", "research_type", string(req.ResearchType))
	responseText, providerName, err := e.manager.ExecuteResearch(ctx, req.ResearchType, prompt)
	stopTimer()
	if err != nil {
		telemetry.Counter("research.requests.total", "research_type", string(req.ResearchType), "status", "error")
		return nil, fmt.Errorf("research.Engine.Execute: provider manager failed: %w", err)
	}

	result := parseResponse(responseText, req)
	result.Metadata.SourcesConsulted = []string{providerName}

	quality := scoreQuality(result)
	result.Metadata.QualityScore = quality
	telemetry.Counter("research.requests.total", "research_type", string(req.ResearchType), "status", "success")
	telemetry.Histogram("research.quality_score", quality, "research_type", string(req.ResearchType))

	if quality < e.cfg.MinQualityScore {
		result.Metadata.QualityWarning = fmt.Sprintf("quality %.2f below minimum %.2f", quality, e.cfg.MinQualityScore)

		if e.cfg.EnableCrossValidation && quality < e.cfg.QualityThreshold {
			best, cvErr := e.crossValidate(ctx, req, prompt, result)
			if cvErr == nil {
				result = best
			} else {
				e.logger.Warn("cross-validation failed, keeping original result", map[string]interface{}{"error": cvErr.Error()})
			}
		}
	}

	result.Metadata.CompletedAt = e.now()
	result.Metadata.ProcessingTimeMs = e.now().Sub(start).Milliseconds()

	stats := e.manager.GetPerformanceStats()
	if len(stats) > 0 {
		if result.Metadata.Tags == nil {
			result.Metadata.Tags = make(map[string]string)
		}
		result.Metadata.Tags["provider_count"] = fmt.Sprintf("%d", len(stats))

		var totalRequests uint64
		var sumSuccessRate float64
		for _, s := range stats {
			totalRequests += s.Total
			sumSuccessRate += s.SuccessRate()
		}
		result.Metadata.Tags["total_provider_requests"] = fmt.Sprintf("%d", totalRequests)
		result.Metadata.Tags["avg_provider_success_rate"] = fmt.Sprintf("%.2f", sumSuccessRate/float64(len(stats)))
	}

	return result, nil
}

// crossValidate re-runs the same prompt N more times through the manager
// and keeps the best result by quality score, breaking ties by the
// producing provider's success rate. The manager picks the provider for
// each run; the runs are not forced onto distinct providers.
func (e *Engine) crossValidate(ctx context.Context, req ClassifiedRequest, prompt string, fallback *Result) (*Result, error) {
	n := e.cfg.CrossValidationProviders
	if n < 1 {
		n = 1
	}

	stats := e.manager.GetPerformanceStats()
	best := fallback
	bestScore := scoreQuality(fallback)
	bestSuccessRate := providerSuccessRate(stats, fallback.Metadata.SourcesConsulted)

	var lastErr error
	for i := 0; i < n; i++ {
		text, providerName, err := e.manager.ExecuteResearch(ctx, req.ResearchType, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		candidate := parseResponse(text, req)
		candidate.Metadata.SourcesConsulted = []string{providerName}
		candidateScore := scoreQuality(candidate)
		candidateSuccessRate := providerSuccessRate(stats, []string{providerName})

		if candidateScore > bestScore || (candidateScore == bestScore && candidateSuccessRate > bestSuccessRate) {
			best = candidate
			bestScore = candidateScore
			bestSuccessRate = candidateSuccessRate
		}
	}

	if best == fallback && lastErr != nil {
		return nil, lastErr
	}
	return best, nil
}

func providerSuccessRate(stats map[string]providers.Stats, names []string) float64 {
	if len(names) == 0 {
		return 0
	}
	if s, ok := stats[names[0]]; ok {
		return s.SuccessRate()
	}
	return 0
}

// EstimateProcessingTime returns base(10s) *
// research-type complexity * cross_validation_providers (when enabled) *
// 1.2 (when vector context enabled), capped at MaxProcessingTime.
func (e *Engine) EstimateProcessingTime(req ClassifiedRequest) time.Duration {
	base := 10 * time.Second

	complexity := float64(ComplexityOf(req.ResearchType))
	multiplier := complexity

	if e.cfg.EnableCrossValidation {
		n := e.cfg.CrossValidationProviders
		if n < 1 {
			n = 1
		}
		multiplier *= float64(n)
	}
	if e.cfg.EnableVectorContext {
		multiplier *= 1.2
	}

	estimate := time.Duration(float64(base) * multiplier)
	if e.cfg.MaxProcessingTime > 0 && estimate > e.cfg.MaxProcessingTime {
		estimate = e.cfg.MaxProcessingTime
	}
	return estimate
}
