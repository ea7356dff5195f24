// Package vector implements the vector retrieval layer: an
// embedding cache, a hybrid (semantic+keyword) searcher, and a resumable
// migration pipeline over an in-memory vector store.
package vector

import "time"

// DistanceMetric names the similarity function a Collection is declared
// with.
type DistanceMetric string

const (
	Cosine    DistanceMetric = "cosine"
	Dot       DistanceMetric = "dot"
	Euclidean DistanceMetric = "euclidean"
)

// Document is one stored vector record: a stable id, content, a
// fixed-dimension embedding, extensible metadata, and a stored-at
// timestamp. Its embedding's length must equal the owning collection's
// declared Dimension.
type Document struct {
	ID          string
	Content     string
	Embedding   []float64
	ContentType string
	Quality     float64
	Tags        []string
	Metadata    map[string]string
	StoredAt    time.Time
}
