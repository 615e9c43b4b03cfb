package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/fatoora/internal/jobs"
)

// DefaultIdempotencyRetention is how long Idempotency-Key records are kept.
const DefaultIdempotencyRetention = 7 * 24 * time.Hour

// KeyCleaner deletes idempotency records older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob purges expired idempotency keys.
type IdempotencyCleanupJob struct {
	Store     KeyCleaner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	retention := j.Retention
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	removed, err := j.Store.Cleanup(ctx, retention)
	logger := jobLogger(j.Logger, TaskIdempotencyCleanup)
	if err != nil {
		logger.Error("purge idempotency keys", slog.Any("error", err))
		return err
	}
	j.Metrics.AddProcessed(TaskIdempotencyCleanup, int(removed))
	logger.Info("idempotency keys purged", slog.Int64("removed", removed), slog.Duration("retention", retention))
	return nil
}
