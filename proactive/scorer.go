package proactive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/relabs-io/vantage/core"
)

// Domain is the subject-matter classification of a query.
type Domain string

const (
	DomainSecurity Domain = "security"
	DomainAI       Domain = "ai"
	DomainRust     Domain = "rust"
	DomainGeneral  Domain = "general"
)

// Audience is the experience-level classification of a query's asker.
type Audience string

const (
	AudienceBeginner     Audience = "beginner"
	AudienceIntermediate Audience = "intermediate"
	AudienceAdvanced     Audience = "advanced"
)

// Urgency is the time-pressure classification of a query.
type Urgency string

const (
	UrgencyImmediate   Urgency = "immediate"
	UrgencyNormal      Urgency = "normal"
	UrgencyExploratory Urgency = "exploratory"
)

// Classification is the output of the (external, pluggable) query
// classifier the scorer adjusts priority by.
type Classification struct {
	Domain     Domain
	Audience   Audience
	Urgency    Urgency
	Confidence float64
}

// ScoringTables holds the multiplier tables the scoring formula draws from.
// Entries absent from a table default to a 1.0 (neutral) multiplier.
type ScoringTables struct {
	DomainMultiplier   map[Domain]float64
	AudienceMultiplier map[Audience]float64
	UrgencyMultiplier  map[Urgency]float64
	ConfidenceWeight   float64
}

// DefaultScoringTables returns the stock multiplier tables. A
// ConfidenceWeight of 0.1 keeps the confidence term's contribution
// within 1.0 of the 0-10 scale rather than letting it dominate.
func DefaultScoringTables() ScoringTables {
	return ScoringTables{
		DomainMultiplier: map[Domain]float64{
			DomainSecurity: 1.4,
			DomainAI:       1.3,
			DomainRust:     1.2,
			DomainGeneral:  0.9,
		},
		AudienceMultiplier: map[Audience]float64{
			AudienceBeginner: 1.2,
			AudienceAdvanced: 0.9,
		},
		UrgencyMultiplier: map[Urgency]float64{
			UrgencyImmediate:   2.0,
			UrgencyExploratory: 0.7,
		},
		ConfidenceWeight: 0.1,
	}
}

// Classifier produces a Classification for a free-text query. Real
// implementations call out to the research engine's classification step;
// tests supply a stub.
type Classifier func(ctx context.Context, query string) (Classification, error)

// ScorerConfig configures a ContextScorer.
type ScorerConfig struct {
	Tables                    ScoringTables
	EnableGracefulDegradation bool
	CacheTTL                  time.Duration
}

// DefaultScorerConfig enables graceful degradation and a five-minute
// classification cache.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Tables:                    DefaultScoringTables(),
		EnableGracefulDegradation: true,
		CacheTTL:                  5 * time.Minute,
	}
}

// ContextScorer adjusts a base priority (0-10) by classification-derived
// multipliers. Classification results are cached by query hash with TTL
// in a core.Memory store (in-process by default; callers may supply a
// shared store via SetCache).
type ContextScorer struct {
	cfg      ScorerConfig
	classify Classifier
	logger   core.Logger

	cache core.Memory
}

// NewContextScorer builds a scorer. A nil logger is replaced with a no-op.
func NewContextScorer(cfg ScorerConfig, classify Classifier, logger core.Logger) *ContextScorer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &ContextScorer{
		cfg:      cfg,
		classify: classify,
		logger:   logger,
		cache:    core.NewMemoryStore(),
	}
}

// SetCache replaces the classification cache backing store.
func (s *ContextScorer) SetCache(cache core.Memory) {
	if cache != nil {
		s.cache = cache
	}
}

// Score computes the enhanced priority for query given a base
// priority, classifying query first (via the cache) and applying the
// configured multiplier tables. On classification failure, if
// EnableGracefulDegradation is set, all multipliers default to 1.0 and the
// confidence contribution to 0 — the base priority passes through
// clamped to [0,10]. Otherwise the classification error is returned.
func (s *ContextScorer) Score(ctx context.Context, query string, basePriority float64) (float64, Classification, error) {
	classification, err := s.classifyCached(ctx, query)
	if err != nil {
		if !s.cfg.EnableGracefulDegradation {
			return 0, Classification{}, err
		}
		s.logger.Warn("classification failed, applying neutral multipliers", map[string]interface{}{
			"error": err.Error(),
		})
		return clampRange(basePriority, 0, 10), Classification{}, nil
	}

	dm := lookupOr1(s.cfg.Tables.DomainMultiplier, classification.Domain)
	am := lookupOr1(s.cfg.Tables.AudienceMultiplier, classification.Audience)
	um := lookupOr1(s.cfg.Tables.UrgencyMultiplier, classification.Urgency)

	enhanced := basePriority*dm*am*um + classification.Confidence*s.cfg.Tables.ConfidenceWeight*10
	return clampRange(enhanced, 0, 10), classification, nil
}

func lookupOr1[K comparable](table map[K]float64, key K) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return 1.0
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *ContextScorer) classifyCached(ctx context.Context, query string) (Classification, error) {
	key := queryCacheKey(query)

	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var value Classification
		if err := json.Unmarshal([]byte(cached), &value); err == nil {
			return value, nil
		}
		// An unreadable entry is dropped and reclassified.
		_ = s.cache.Delete(ctx, key)
	}

	value, err := s.classify(ctx, query)
	if err != nil {
		return Classification{}, err
	}

	if encoded, err := json.Marshal(value); err == nil {
		_ = s.cache.Set(ctx, key, string(encoded), s.cfg.CacheTTL)
	}
	return value, nil
}

func queryCacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}
