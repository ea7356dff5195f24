package learning

// SuggestionConfig tunes when a content trend is surfaced as a suggestion.
type SuggestionConfig struct {
	// LowScoreThreshold: trends averaging at or below this score produce a
	// "deprioritize" suggestion.
	LowScoreThreshold float64
	// HighScoreThreshold: trends averaging at or above this score produce a
	// "reinforce" suggestion.
	HighScoreThreshold float64
	// MinSamples is the minimum record count before a trend is considered
	// statistically meaningful enough to suggest on.
	MinSamples int
}

// DefaultSuggestionConfig requires at least 3 samples before suggesting,
// and treats <=0.3 as low and >=0.8 as high.
func DefaultSuggestionConfig() SuggestionConfig {
	return SuggestionConfig{LowScoreThreshold: 0.3, HighScoreThreshold: 0.8, MinSamples: 3}
}

// Suggester turns feedback insights into advisory AdaptationSuggestions.
// It never mutates Scorer or Research Engine state directly — the caller
// decides whether and how to apply a suggestion.
type Suggester struct {
	cfg SuggestionConfig
}

// NewSuggester builds a Suggester.
func NewSuggester(cfg SuggestionConfig) *Suggester {
	return &Suggester{cfg: cfg}
}

// Suggest derives adaptation suggestions from content trends. Trends below
// MinSamples are skipped as not yet meaningful.
func (s *Suggester) Suggest(trends []ContentTrend) []AdaptationSuggestion {
	var out []AdaptationSuggestion
	for _, t := range trends {
		if t.Count < s.cfg.MinSamples {
			continue
		}
		switch {
		case t.AverageScore <= s.cfg.LowScoreThreshold:
			out = append(out, AdaptationSuggestion{
				Content:    t.Content,
				Suggestion: "deprioritize: sustained low feedback score",
				Confidence: confidenceFromSamples(t.Count, s.cfg.MinSamples),
				BasedOnN:   t.Count,
			})
		case t.AverageScore >= s.cfg.HighScoreThreshold:
			out = append(out, AdaptationSuggestion{
				Content:    t.Content,
				Suggestion: "reinforce: sustained high feedback score",
				Confidence: confidenceFromSamples(t.Count, s.cfg.MinSamples),
				BasedOnN:   t.Count,
			})
		}
	}
	return out
}

// confidenceFromSamples grows linearly from 0.5 at zero samples (0.625 at
// MinSamples) and reaches its cap of 1.0 at four times MinSamples.
func confidenceFromSamples(count, minSamples int) float64 {
	if minSamples <= 0 {
		minSamples = 1
	}
	confidence := 0.5 + 0.5*(float64(count)/float64(minSamples*4))
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
