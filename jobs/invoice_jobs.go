package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/fatoora/internal/invoice"
	jobmetrics "github.com/odyssey-erp/fatoora/internal/jobs"
)

// DocumentWarmer renders a document into the cache.
type DocumentWarmer interface {
	Warm(ctx context.Context, tenantID, invoiceID uuid.UUID) error
}

// RenderJob pre-renders invoice PDFs after they are issued.
type RenderJob struct {
	Documents DocumentWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskInvoiceRender tasks.
func (j *RenderJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var p InvoicePayload
	if err := decodePayload(t, &p); err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskInvoiceRender)
	defer func() { err = tracker.End(err) }()

	logger := jobLogger(j.Logger, TaskInvoiceRender).With(
		slog.String("tenant_id", p.TenantID.String()),
		slog.String("invoice_id", p.InvoiceID.String()))

	err = j.Documents.Warm(ctx, p.TenantID, p.InvoiceID)
	switch {
	case errors.Is(err, invoice.ErrNotFound):
		logger.Warn("invoice vanished before render")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	case errors.Is(err, invoice.ErrSettingsNotReady):
		logger.Info("render skipped, invoice settings incomplete")
		return nil
	case err != nil:
		logger.Error("render failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddProcessed(TaskInvoiceRender, 1)
	logger.Info("invoice document warmed")
	return nil
}

// MailConfig holds SMTP delivery settings.
type MailConfig struct {
	Host string
	Port int
	From string
}

// SendJob delivers invoices by email. Delivery is logged only until an SMTP
// transport is wired.
type SendJob struct {
	Mail    MailConfig
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskInvoiceSend tasks.
func (j *SendJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var p SendPayload
	if err := decodePayload(t, &p); err != nil {
		return err
	}
	if p.To == "" {
		return fmt.Errorf("jobs: invoice send without recipient: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskInvoiceSend)
	defer func() { err = tracker.End(err) }()

	jobLogger(j.Logger, TaskInvoiceSend).InfoContext(ctx, "invoice email queued for delivery",
		slog.String("tenant_id", p.TenantID.String()),
		slog.String("invoice_id", p.InvoiceID.String()),
		slog.String("to", p.To),
		slog.String("smtp", fmt.Sprintf("%s:%d", j.Mail.Host, j.Mail.Port)),
		slog.String("from", j.Mail.From))
	j.Metrics.AddProcessed(TaskInvoiceSend, 1)
	return nil
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
