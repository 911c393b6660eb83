package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/timmy/phototag/internal/domain"
	"github.com/timmy/phototag/internal/encoder"
	apperr "github.com/timmy/phototag/internal/errors"
	"github.com/timmy/phototag/internal/logger"
	"github.com/timmy/phototag/internal/storage"
	"github.com/timmy/phototag/internal/store"
)

// IndexRunRecorder persists index run history. The repository implements it.
type IndexRunRecorder interface {
	Create(ctx context.Context, run *domain.IndexRun) error
	Update(ctx context.Context, run *domain.IndexRun) error
}

// Indexer builds the embedding store from an image source.
type Indexer struct {
	fs        afero.Fs
	encoder   encoder.Encoder
	runs      IndexRunRecorder
	logger    *logger.Logger
	storePath string
	workers   int
}

// IndexerConfig holds configuration for the indexer
type IndexerConfig struct {
	StorePath string
	Workers   int
}

// NewIndexer creates a new indexer. runs may be nil when history is disabled.
func NewIndexer(
	fs afero.Fs,
	enc encoder.Encoder,
	runs IndexRunRecorder,
	log *logger.Logger,
	cfg *IndexerConfig,
) *Indexer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Indexer{
		fs:        fs,
		encoder:   enc,
		runs:      runs,
		logger:    log,
		storePath: cfg.StorePath,
		workers:   workers,
	}
}

func (s *Indexer) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// ItemFailure is one image the run could not embed.
type ItemFailure struct {
	ID     domain.ImageID `json:"id"`
	Reason string         `json:"reason"`
}

// BatchResult summarizes an indexing run.
type BatchResult struct {
	RunID     string        `json:"run_id"`
	Source    string        `json:"source"`
	Model     string        `json:"model"`
	StorePath string        `json:"store_path"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []ItemFailure `json:"failures"`
	Dimension int           `json:"dimension"`
	Persisted bool          `json:"persisted"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

// Duration is the wall time of the run.
func (r *BatchResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

type itemOutcome struct {
	index     int
	embedding domain.Embedding
	err       error
}

// Run embeds every image in src and replaces the persisted embedding store.
// Per-image failures are collected in the result instead of aborting the run.
// If the corpus is non-empty and no image succeeds, the previous store is
// kept and the run fails with EncodeFailure. Cancelling ctx aborts the run
// without persisting.
func (s *Indexer) Run(ctx context.Context, src storage.ImageSource) (*BatchResult, error) {
	result := &BatchResult{
		RunID:     uuid.New().String(),
		Source:    src.Name(),
		Model:     s.encoder.Model(),
		StorePath: s.storePath,
		Failures:  []ItemFailure{},
		StartTime: time.Now(),
	}
	ctx = logger.SetRunID(ctx, result.RunID)
	run := s.startRun(ctx, result)

	ids, err := src.List(ctx)
	if err != nil {
		return s.finish(ctx, run, result, fmt.Errorf("failed to list corpus: %w", err))
	}
	result.Total = len(ids)

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldSource: result.Source,
		"total":            result.Total,
		"workers":          s.workers,
	}).Info("Starting indexing run")

	outcomes := s.encodeAll(ctx, src, ids)
	if err := ctx.Err(); err != nil {
		return s.finish(ctx, run, result, fmt.Errorf("indexing run aborted: %w", err))
	}

	embeddings := store.NewEmbeddingStore(s.encoder.Model(), s.encoder.Dimensions())
	for i, id := range ids {
		outcome := outcomes[i]
		err := outcome.err
		if err == nil {
			err = embeddings.Add(id, outcome.embedding)
		}
		if err != nil {
			result.Failures = append(result.Failures, ItemFailure{ID: id, Reason: err.Error()})
			s.log(ctx).WithField(logger.FieldImageID, string(id)).WithError(err).Warn("Failed to index image")
			continue
		}
		result.Succeeded++
	}
	result.Failed = len(result.Failures)
	result.Dimension = embeddings.Dimension()

	if result.Total > 0 && result.Succeeded == 0 {
		err := apperr.Wrapf(apperr.ErrEncodeFailure, apperr.CodeEncodeFailure,
			"all %d images failed to encode, keeping previous embedding store", result.Total)
		return s.finish(ctx, run, result, err)
	}

	if err := embeddings.Save(s.fs, s.storePath); err != nil {
		return s.finish(ctx, run, result, err)
	}
	result.Persisted = true

	return s.finish(ctx, run, result, nil)
}

// encodeAll fans the corpus out to the worker pool. The returned slice is
// indexed like ids.
func (s *Indexer) encodeAll(ctx context.Context, src storage.ImageSource, ids []domain.ImageID) []itemOutcome {
	outcomes := make([]itemOutcome, len(ids))
	jobs := make(chan int, s.workers*2)
	results := make(chan itemOutcome, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, src, ids, jobs, results)
		}()
	}

	done := make(chan struct{})
	go func() {
		for outcome := range results {
			outcomes[outcome.index] = outcome
		}
		close(done)
	}()

feed:
	for i := range ids {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}

	close(jobs)
	wg.Wait()
	close(results)
	<-done

	return outcomes
}

func (s *Indexer) worker(ctx context.Context, src storage.ImageSource, ids []domain.ImageID, jobs <-chan int, results chan<- itemOutcome) {
	for index := range jobs {
		if err := ctx.Err(); err != nil {
			results <- itemOutcome{index: index, err: err}
			continue
		}
		emb, err := s.processItem(ctx, src, ids[index])
		results <- itemOutcome{index: index, embedding: emb, err: err}
	}
}

func (s *Indexer) processItem(ctx context.Context, src storage.ImageSource, id domain.ImageID) (domain.Embedding, error) {
	img, err := src.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	format, err := decodeFormat(img.Data)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeEncodeFailure, "image does not decode", apperr.FieldImageID(string(id)))
	}
	if img.Format == "" {
		img.Format = format
	}

	emb, err := s.encoder.EncodeImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return emb, nil
}

// decodeFormat checks that data is a decodable image and reports its format.
func decodeFormat(data []byte) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	return format, nil
}

func (s *Indexer) startRun(ctx context.Context, result *BatchResult) *domain.IndexRun {
	if s.runs == nil {
		return nil
	}
	run := &domain.IndexRun{
		ID:        result.RunID,
		Source:    result.Source,
		Status:    domain.IndexRunStatusRunning,
		Model:     result.Model,
		StorePath: result.StorePath,
		StartedAt: result.StartTime,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record index run start")
		return nil
	}
	return run
}

// finish stamps the end time, logs the summary and records the run outcome.
func (s *Indexer) finish(ctx context.Context, run *domain.IndexRun, result *BatchResult, runErr error) (*BatchResult, error) {
	result.EndTime = time.Now()

	entry := logger.With(logger.Fields{
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"dimension": result.Dimension,
		"persisted": result.Persisted,
	}).WithDuration(result.Duration().Milliseconds())
	if runErr != nil {
		entry.With(logger.Fields{logger.FieldStatus: "failed", "error": runErr.Error()}).Error(ctx, "Indexing run failed")
	} else {
		entry.With(logger.Fields{logger.FieldStatus: "completed"}).Info(ctx, "Indexing run completed")
	}

	if run != nil {
		completed := result.EndTime
		run.Dimension = result.Dimension
		run.TotalItems = result.Total
		run.Succeeded = result.Succeeded
		run.Failed = result.Failed
		run.Failures = failureLines(result.Failures)
		run.CompletedAt = &completed
		run.Status = domain.IndexRunStatusCompleted
		if runErr != nil {
			run.Status = domain.IndexRunStatusFailed
			run.ErrorLog = runErr.Error()
		}
		if err := s.runs.Update(context.WithoutCancel(ctx), run); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to record index run result")
		}
	}

	return result, runErr
}

func failureLines(failures []ItemFailure) domain.StringArray {
	lines := make(domain.StringArray, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, string(f.ID)+": "+strings.TrimSpace(f.Reason))
	}
	return lines
}
