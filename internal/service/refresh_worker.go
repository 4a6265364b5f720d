package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/shortcourse-api/internal/dto"
	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
	"github.com/noah-isme/shortcourse-api/pkg/jobs"
)

// JobTypeRefresh identifies a submission reload job.
const JobTypeRefresh = "submissions.refresh"

type submissionReloader interface {
	Load(ctx context.Context) (*models.LoadResult, error)
}

// RefreshWorkerConfig sizes the refresh queue.
type RefreshWorkerConfig struct {
	Buffer int
}

// RefreshWorker serializes submission reloads on a single-worker queue.
type RefreshWorker struct {
	queue    *jobs.Queue
	reloader submissionReloader
	logger   *zap.Logger
}

// NewRefreshWorker builds the worker. Call Start before triggering.
func NewRefreshWorker(reloader submissionReloader, cfg RefreshWorkerConfig, logger *zap.Logger) *RefreshWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1
	}
	w := &RefreshWorker{reloader: reloader, logger: logger}
	w.queue = jobs.NewQueue("submission-refresh", w.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.Buffer,
		Logger:     logger,
	})
	return w
}

// Start launches the worker goroutine.
func (w *RefreshWorker) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop waits for the running job to finish.
func (w *RefreshWorker) Stop() {
	w.queue.Stop()
}

// Trigger queues a reload. A full queue means a reload is already pending and yields CONFLICT.
func (w *RefreshWorker) Trigger(reason string) (*dto.RefreshJobResponse, error) {
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeRefresh, Payload: reason, Enqueued: time.Now().UTC()}
	if err := w.queue.Enqueue(job); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a submission refresh is already queued")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue refresh")
	}
	w.logger.Info("submission refresh queued", zap.String("job_id", job.ID), zap.String("reason", reason))
	return &dto.RefreshJobResponse{JobID: job.ID, QueuedAt: job.Enqueued}, nil
}

func (w *RefreshWorker) handle(ctx context.Context, job jobs.Job) error {
	result, err := w.reloader.Load(ctx)
	if err != nil {
		if errors.Is(err, appErrors.ErrConflict) {
			w.logger.Info("submission refresh skipped, load in progress", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}
	w.logger.Info("submission refresh finished",
		zap.String("job_id", job.ID),
		zap.String("source", result.Source),
		zap.Int("count", result.Count),
	)
	return nil
}
