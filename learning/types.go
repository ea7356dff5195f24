// Package learning implements the append-only user-feedback store and its
// aggregations: feedback rate, average score, per-content trends, and
// adaptation suggestions consumed by the context scorer and research
// engine configuration layer. It never mutates core decisions
// synchronously — every signal it produces is advisory.
package learning

import "time"

// FeedbackType classifies what the feedback is about.
type FeedbackType string

const (
	FeedbackRating     FeedbackType = "rating"
	FeedbackCorrection FeedbackType = "correction"
	FeedbackRelevance  FeedbackType = "relevance"
	FeedbackUsefulness FeedbackType = "usefulness"
)

// UserFeedback is one append-only record. Score is normalized to [0, 1] by
// the store before it is ever persisted.
type UserFeedback struct {
	ID        string
	User      string
	Content   string
	Type      FeedbackType
	Score     float64
	Text      string
	Timestamp time.Time
}

// ContentTrend is the rolling average score for one piece of content over
// its recorded feedback history.
type ContentTrend struct {
	Content      string
	Count        int
	AverageScore float64
	FirstSeen    time.Time
	LastSeen     time.Time
}

// Insights aggregates feedback over a window for reporting and for the
// adaptation-suggestion pipeline.
type Insights struct {
	TotalFeedback int
	FeedbackRate  float64 // records per minute, over the observed window
	AverageScore  float64
	ContentTrends []ContentTrend
	GeneratedAt   time.Time
}

// AdaptationSuggestion is an advisory signal for the Scorer or Research
// Engine configuration layer — never applied automatically.
type AdaptationSuggestion struct {
	Content    string
	Suggestion string
	Confidence float64
	BasedOnN   int
}
