package vector

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/relabs-io/vantage/core"
)

// Store is an in-memory Collection implementation: upsert/get/delete/
// search/count over a fixed dimension and declared distance metric (the
// "Vector store"). Grounded on the same owning-lock, read-snapshot
// discipline as core.MemoryStore.
type Store struct {
	mu         sync.RWMutex
	dimension  int
	metric     DistanceMetric
	documents  map[string]Document
	logger     core.Logger
}

// NewStore builds an empty Store declared with dimension and metric.
func NewStore(dimension int, metric DistanceMetric, logger core.Logger) *Store {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Store{
		dimension: dimension,
		metric:    metric,
		documents: make(map[string]Document),
		logger:    logger,
	}
}

// Dimension reports the collection's declared embedding dimensionality.
func (s *Store) Dimension() int { return s.dimension }

// Upsert inserts or replaces a document, enforcing the dimensionality
// invariant ("vector dimensionality equals the collection's declared
// dimension").
func (s *Store) Upsert(ctx context.Context, doc Document) error {
	if len(doc.Embedding) != s.dimension {
		return core.New("vector.Store.Upsert", "vector", core.KindValidation,
			"embedding dimension does not match collection dimension", nil)
	}
	if doc.StoredAt.IsZero() {
		doc.StoredAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = doc
	return nil
}

// Get returns the document stored under id.
func (s *Store) Get(ctx context.Context, id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	return doc, ok
}

// Delete removes the document stored under id.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// ScoredDocument pairs a document with its similarity score against a
// query vector.
type ScoredDocument struct {
	Document Document
	Score    float64
}

// Search ranks stored documents by similarity to vector under the
// collection's declared metric, applying filter (nil accepts all) and
// threshold (documents scoring below are excluded), returning at most
// limit results in descending score order.
func (s *Store) Search(ctx context.Context, vector []float64, limit int, filter func(Document) bool, threshold float64) []ScoredDocument {
	s.mu.RLock()
	docs := make([]Document, 0, len(s.documents))
	for _, d := range s.documents {
		docs = append(docs, d)
	}
	s.mu.RUnlock()

	results := make([]ScoredDocument, 0, len(docs))
	for _, d := range docs {
		if filter != nil && !filter(d) {
			continue
		}
		score := s.similarity(vector, d.Embedding)
		if score < threshold {
			continue
		}
		results = append(results, ScoredDocument{Document: d, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (s *Store) similarity(a, b []float64) float64 {
	switch s.metric {
	case Dot:
		return dotProduct(a, b)
	case Euclidean:
		return -euclideanDistance(a, b) // higher (less negative) is more similar
	default:
		return cosineSimilarity(a, b)
	}
}

func dotProduct(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func euclideanDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a, b []float64) float64 {
	dot := dotProduct(a, b)
	var normA, normB float64
	for _, v := range a {
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
