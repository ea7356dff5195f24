package vector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/relabs-io/vantage/core"
)

// SourceKind names a migration source. Only InMemory is implemented;
// concrete external source integrations are treated as opaque
// transports behind the Source interface.
type SourceKind string

const (
	SourceInMemory SourceKind = "in_memory"
)

// ValidationLevel controls how strictly MigrationPipeline checks each
// item before it is upserted.
type ValidationLevel string

const (
	ValidationLenient  ValidationLevel = "lenient"  // structural only
	ValidationModerate ValidationLevel = "moderate" // + content length, embedding dim
	ValidationStrict   ValidationLevel = "strict"   // + duplicate-id check
)

// JobStatus is a migration job's lifecycle state (InProgress ->
// {Completed | Failed}").
type JobStatus string

const (
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Source supplies the documents a migration job ingests.
type Source interface {
	Kind() SourceKind
	Items(ctx context.Context) ([]Document, error)
}

// InMemorySource is a Source backed by a plain slice.
type InMemorySource struct {
	items []Document
}

// NewInMemorySource wraps items as a Source.
func NewInMemorySource(items []Document) *InMemorySource {
	return &InMemorySource{items: items}
}

func (s *InMemorySource) Kind() SourceKind { return SourceInMemory }

func (s *InMemorySource) Items(ctx context.Context) ([]Document, error) {
	return s.items, nil
}

// PipelineConfig tunes a MigrationPipeline run.
type PipelineConfig struct {
	BatchSize       int
	MaxWorkers      int
	Validation      ValidationLevel
	MaxRetries      int
	RetryDelay      time.Duration
	Resumable       bool
}

// DefaultPipelineConfig returns conservative defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize:  50,
		MaxWorkers: 4,
		Validation: ValidationModerate,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		Resumable:  true,
	}
}

// DeadLetteredBatch records a batch that exhausted its retries.
type DeadLetteredBatch struct {
	BatchID int
	Items   []Document
	Err     error
}

// JobState is the in-memory progress of one migration job: items
// processed and the last-committed batch id.
type JobState struct {
	Status         JobStatus
	ItemsProcessed int
	LastBatchID    int
	DeadLettered   []DeadLetteredBatch
	Err            error
}

// MigrationPipeline ingests documents from a Source into a target Store
// in batches, with per-batch retry and dead-lettering, resumable from
// items_processed/last-committed batch id. Progress lives in the
// pipeline's own JobState rather than an external store, so resuming is
// a matter of calling Run again on the same pipeline; no call accepts a
// previous JobState.
type MigrationPipeline struct {
	target *Store
	cfg    PipelineConfig
	logger core.Logger

	mu    sync.Mutex
	state JobState
}

// NewMigrationPipeline builds a pipeline writing into target.
func NewMigrationPipeline(target *Store, cfg PipelineConfig, logger core.Logger) *MigrationPipeline {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	return &MigrationPipeline{
		target: target,
		cfg:    cfg,
		logger: logger,
		state:  JobState{Status: JobInProgress},
	}
}

// State returns a point-in-time snapshot of the job's progress.
func (p *MigrationPipeline) State() JobState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Run ingests source's items into the target store, resuming from the
// pipeline's last-committed batch id when cfg.Resumable and this is not
// the first Run call.
func (p *MigrationPipeline) Run(ctx context.Context, source Source) (JobState, error) {
	items, err := source.Items(ctx)
	if err != nil {
		p.fail(err)
		return p.State(), err
	}

	batches := batchDocuments(items, p.cfg.BatchSize)

	p.mu.Lock()
	resumeFrom := 0
	if p.cfg.Resumable {
		resumeFrom = p.state.LastBatchID
	}
	p.mu.Unlock()

	type batchJob struct {
		id    int
		items []Document
	}

	jobs := make(chan batchJob)
	var wg sync.WaitGroup
	var runErr error
	var runErrOnce sync.Once

	worker := func() {
		defer wg.Done()
		for job := range jobs {
			if err := p.processBatch(ctx, job.id, job.items); err != nil {
				runErrOnce.Do(func() { runErr = err })
			}
		}
	}

	for i := 0; i < p.cfg.MaxWorkers; i++ {
		wg.Add(1)
		go worker()
	}

	for id := resumeFrom; id < len(batches); id++ {
		select {
		case jobs <- batchJob{id: id, items: batches[id]}:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			p.fail(ctx.Err())
			return p.State(), ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	p.mu.Lock()
	if runErr != nil && !p.cfg.Resumable {
		p.state.Status = JobFailed
		p.state.Err = runErr
	} else {
		p.state.Status = JobCompleted
	}
	final := p.state
	p.mu.Unlock()

	return final, runErr
}

// processBatch commits items, retrying up to cfg.MaxRetries times at a
// fixed cfg.RetryDelay (at most MaxRetries retries per batch with
// configured delay") via backoff.ConstantBackOff — validation failures
// are wrapped backoff.Permanent since retrying a batch that fails
// schema/content validation would never succeed.
func (p *MigrationPipeline) processBatch(ctx context.Context, batchID int, items []Document) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := p.commitBatch(ctx, items); err != nil {
			if core.IsValidation(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.cfg.RetryDelay)),
		backoff.WithMaxTries(uint(p.cfg.MaxRetries+1)),
	)

	if err == nil {
		p.mu.Lock()
		p.state.ItemsProcessed += len(items)
		if batchID+1 > p.state.LastBatchID {
			p.state.LastBatchID = batchID + 1
		}
		p.mu.Unlock()
		return nil
	}

	p.mu.Lock()
	p.state.DeadLettered = append(p.state.DeadLettered, DeadLetteredBatch{BatchID: batchID, Items: items, Err: err})
	p.mu.Unlock()

	if !p.cfg.Resumable {
		return fmt.Errorf("batch %d exhausted retries: %w", batchID, err)
	}
	return nil // job continues past a dead-lettered batch when resumable
}

func (p *MigrationPipeline) commitBatch(ctx context.Context, items []Document) error {
	for _, item := range items {
		if err := p.validate(item); err != nil {
			return err
		}
	}
	for _, item := range items {
		if err := p.target.Upsert(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (p *MigrationPipeline) validate(doc Document) error {
	if doc.ID == "" {
		return core.New("vector.MigrationPipeline.validate", "vector", core.KindValidation, "document id is required", nil)
	}

	if p.cfg.Validation == ValidationLenient {
		return nil
	}

	if len(doc.Content) == 0 {
		return core.New("vector.MigrationPipeline.validate", "vector", core.KindValidation, "document content is empty", nil)
	}
	if p.target.Dimension() > 0 && len(doc.Embedding) != p.target.Dimension() {
		return core.New("vector.MigrationPipeline.validate", "vector", core.KindValidation, "embedding dimension mismatch", nil)
	}

	if p.cfg.Validation != ValidationStrict {
		return nil
	}

	if _, exists := p.target.Get(context.Background(), doc.ID); exists {
		return core.New("vector.MigrationPipeline.validate", "vector", core.KindValidation, fmt.Sprintf("duplicate document id %q", doc.ID), nil)
	}
	return nil
}

func (p *MigrationPipeline) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status = JobFailed
	p.state.Err = err
}

func batchDocuments(items []Document, size int) [][]Document {
	var batches [][]Document
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
