package learning

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
)

// StoreConfig tunes retention and rate-window behavior.
type StoreConfig struct {
	// MaxRecords bounds the append-only log; oldest records are dropped
	// once the bound is exceeded. Zero means unbounded.
	MaxRecords int
	// RateWindow is the window over which FeedbackRate is computed.
	RateWindow time.Duration
}

// DefaultStoreConfig retains the last 10,000 records and reports a rate
// over the trailing hour.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{MaxRecords: 10000, RateWindow: time.Hour}
}

// Store is the append-only feedback log with in-memory aggregation. It
// generalizes core.MemoryStore's read-many/write-rare RWMutex shape: a
// slice append under a write lock, read-heavy aggregation under read
// locks.
type Store struct {
	cfg    StoreConfig
	logger core.Logger
	now    func() time.Time

	mu      sync.RWMutex
	records []UserFeedback
	seq     uint64
}

// NewStore builds a feedback store. A nil logger is replaced with a no-op.
func NewStore(cfg StoreConfig, logger core.Logger) *Store {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Store{cfg: cfg, logger: logger, now: time.Now}
}

// Submit appends one feedback record, clamping Score into [0, 1]. It never
// blocks on or triggers any synchronous core-decision mutation.
func (s *Store) Submit(ctx context.Context, fb UserFeedback) (UserFeedback, error) {
	if fb.Content == "" {
		return UserFeedback{}, core.New("learning.Store.Submit", "learning", core.KindValidation,
			"feedback content must not be empty", core.ErrInvalidConfiguration)
	}
	if fb.Score < 0 {
		fb.Score = 0
	}
	if fb.Score > 1 {
		fb.Score = 1
	}
	fb.Timestamp = s.now()

	s.mu.Lock()
	s.seq++
	fb.ID = fmt.Sprintf("fb-%d", s.seq)
	s.records = append(s.records, fb)
	if s.cfg.MaxRecords > 0 && len(s.records) > s.cfg.MaxRecords {
		s.records = s.records[len(s.records)-s.cfg.MaxRecords:]
	}
	s.mu.Unlock()

	s.logger.Debug("feedback submitted", map[string]interface{}{
		"id": fb.ID, "content": fb.Content, "type": string(fb.Type), "score": fb.Score,
	})
	return fb, nil
}

// Insights aggregates stored feedback, optionally filtered to content
// matching query (case-insensitive substring; empty query matches
// everything) and to trends whose average score is at least threshold,
// returning at most max content trends ordered by record count descending.
func (s *Store) Insights(ctx context.Context, query string, threshold float64, max int) Insights {
	s.mu.RLock()
	records := append([]UserFeedback(nil), s.records...)
	s.mu.RUnlock()

	now := s.now()
	query = strings.ToLower(query)

	byContent := make(map[string]*ContentTrend)
	var totalScore float64
	var windowCount int
	for _, r := range records {
		if query != "" && !strings.Contains(strings.ToLower(r.Content), query) {
			continue
		}
		totalScore += r.Score
		if s.cfg.RateWindow > 0 && now.Sub(r.Timestamp) <= s.cfg.RateWindow {
			windowCount++
		}
		trend, ok := byContent[r.Content]
		if !ok {
			trend = &ContentTrend{Content: r.Content, FirstSeen: r.Timestamp, LastSeen: r.Timestamp}
			byContent[r.Content] = trend
		}
		trend.AverageScore = (trend.AverageScore*float64(trend.Count) + r.Score) / float64(trend.Count+1)
		trend.Count++
		if r.Timestamp.Before(trend.FirstSeen) {
			trend.FirstSeen = r.Timestamp
		}
		if r.Timestamp.After(trend.LastSeen) {
			trend.LastSeen = r.Timestamp
		}
	}

	matched := 0
	trends := make([]ContentTrend, 0, len(byContent))
	for _, t := range byContent {
		matched += t.Count
		if t.AverageScore < threshold {
			continue
		}
		trends = append(trends, *t)
	}
	sort.Slice(trends, func(i, j int) bool {
		if trends[i].Count != trends[j].Count {
			return trends[i].Count > trends[j].Count
		}
		return trends[i].Content < trends[j].Content
	})
	if max > 0 && len(trends) > max {
		trends = trends[:max]
	}

	var avgScore float64
	if matched > 0 {
		avgScore = totalScore / float64(matched)
	}
	var rate float64
	if s.cfg.RateWindow > 0 {
		rate = float64(windowCount) / s.cfg.RateWindow.Minutes()
	}

	return Insights{
		TotalFeedback: matched,
		FeedbackRate:  rate,
		AverageScore:  avgScore,
		ContentTrends: trends,
		GeneratedAt:   now,
	}
}

// Len reports the number of retained records, for monitoring collectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
