package vector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocuments(n int) []Document {
	docs := make([]Document, n)
	for i := 0; i < n; i++ {
		docs[i] = Document{
			ID:        fmtID(i),
			Content:   "sample content",
			Embedding: []float64{1, 0},
		}
	}
	return docs
}

func fmtID(i int) string {
	return "doc-" + string(rune('a'+i))
}

func TestMigrationPipelineIngestsAllItems(t *testing.T) {
	target := NewStore(2, Cosine, nil)
	source := NewInMemorySource(sampleDocuments(5))
	pipeline := NewMigrationPipeline(target, DefaultPipelineConfig(), nil)

	state, err := pipeline.Run(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, state.Status)
	assert.Equal(t, 5, state.ItemsProcessed)
	assert.Equal(t, 5, target.Count())
}

func TestMigrationPipelineRejectsInvalidDocumentsUnderModerateValidation(t *testing.T) {
	target := NewStore(2, Cosine, nil)
	docs := sampleDocuments(2)
	docs[1].Content = "" // fails moderate validation (empty content)
	source := NewInMemorySource(docs)

	cfg := DefaultPipelineConfig()
	cfg.BatchSize = 1
	cfg.MaxRetries = 0
	cfg.RetryDelay = time.Millisecond
	pipeline := NewMigrationPipeline(target, cfg, nil)

	state, err := pipeline.Run(context.Background(), source)
	require.NoError(t, err) // resumable: job continues past dead-lettered batch
	assert.Equal(t, JobCompleted, state.Status)
	assert.Len(t, state.DeadLettered, 1)
	assert.Equal(t, 1, target.Count())
}

func TestMigrationPipelineStrictValidationRejectsDuplicates(t *testing.T) {
	target := NewStore(2, Cosine, nil)
	require.NoError(t, target.Upsert(context.Background(), Document{ID: "doc-a", Content: "existing", Embedding: []float64{1, 0}}))

	cfg := DefaultPipelineConfig()
	cfg.BatchSize = 1
	cfg.MaxRetries = 0
	cfg.Validation = ValidationStrict
	pipeline := NewMigrationPipeline(target, cfg, nil)

	state, err := pipeline.Run(context.Background(), NewInMemorySource(sampleDocuments(1)))
	require.NoError(t, err)
	assert.Len(t, state.DeadLettered, 1)
}

func TestMigrationPipelineResumesFromLastCommittedBatch(t *testing.T) {
	target := NewStore(2, Cosine, nil)
	cfg := DefaultPipelineConfig()
	cfg.BatchSize = 1
	cfg.MaxWorkers = 1

	pipeline := NewMigrationPipeline(target, cfg, nil)
	docs := sampleDocuments(3)

	_, err := pipeline.Run(context.Background(), NewInMemorySource(docs[:2]))
	require.NoError(t, err)
	assert.Equal(t, 2, target.Count())

	state, err := pipeline.Run(context.Background(), NewInMemorySource(docs))
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, state.Status)
	assert.Equal(t, 3, target.Count())
}
