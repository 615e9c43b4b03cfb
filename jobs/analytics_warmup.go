package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/fatoora/internal/jobs"
)

// TenantLister lists tenants eligible for background work.
type TenantLister interface {
	ActiveTenants(ctx context.Context) ([]uuid.UUID, error)
}

// AnalyticsWarmer precomputes a tenant's dashboard.
type AnalyticsWarmer interface {
	Warm(ctx context.Context, tenantID uuid.UUID) error
}

// WarmupTimeout bounds the work spent on a single tenant.
const WarmupTimeout = 20 * time.Second

// AnalyticsWarmupJob pre-populates analytics caches.
type AnalyticsWarmupJob struct {
	Tenants   TenantLister
	Analytics AnalyticsWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskAnalyticsWarmup tasks. A failing tenant is logged and
// skipped; the task fails only when every tenant failed.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var p AnalyticsWarmupPayload
	if err := decodePayload(t, &p); err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskAnalyticsWarmup)
	defer func() { err = tracker.End(err) }()
	logger := jobLogger(j.Logger, TaskAnalyticsWarmup)
	start := time.Now()

	var tenants []uuid.UUID
	if p.TenantID != nil {
		tenants = []uuid.UUID{*p.TenantID}
	} else {
		tenants, err = j.Tenants.ActiveTenants(ctx)
		if err != nil {
			logger.Error("load tenants", slog.Any("error", err))
			return err
		}
	}
	if len(tenants) == 0 {
		logger.Info("no tenants to warm")
		return nil
	}

	warmed := 0
	var lastErr error
	for _, id := range tenants {
		tctx, cancel := context.WithTimeout(ctx, WarmupTimeout)
		werr := j.Analytics.Warm(tctx, id)
		cancel()
		if werr != nil {
			lastErr = werr
			logger.Error("warm tenant", slog.String("tenant_id", id.String()), slog.Any("error", werr))
			continue
		}
		warmed++
	}
	j.Metrics.AddProcessed(TaskAnalyticsWarmup, warmed)
	logger.Info("analytics warmup completed",
		slog.Int("tenants", len(tenants)), slog.Int("warmed", warmed), slog.Duration("duration", time.Since(start)))
	if warmed == 0 {
		return errors.Join(errors.New("jobs: analytics warmup failed for every tenant"), lastErr)
	}
	return nil
}
