package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueDocuments isolates rendering from the rest of the work.
	QueueDocuments = "documents"

	// TaskInvoiceRender pre-renders an invoice PDF into the document cache.
	TaskInvoiceRender = "invoice:render"
	// TaskInvoiceSend delivers an issued invoice to the buyer.
	TaskInvoiceSend = "invoice:send"
	// TaskAnalyticsWarmup recomputes dashboard caches for active tenants.
	TaskAnalyticsWarmup = "analytics:warmup"
	// TaskIdempotencyCleanup purges expired Idempotency-Key records.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"

	// AnalyticsWarmupCron runs the warmup daily at 01:15 UTC.
	AnalyticsWarmupCron = "15 1 * * *"
	// IdempotencyCleanupCron runs the purge daily at 03:00 UTC.
	IdempotencyCleanupCron = "0 3 * * *"
)

// InvoicePayload identifies one invoice of one tenant.
type InvoicePayload struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
}

// SendPayload carries the delivery target of an invoice.
type SendPayload struct {
	InvoicePayload
	To string `json:"to"`
}

// AnalyticsWarmupPayload optionally limits the warmup to one tenant.
type AnalyticsWarmupPayload struct {
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

func newTask(kind string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode %s: %w", kind, err)
	}
	return asynq.NewTask(kind, body, opts...), nil
}

// NewInvoiceRenderTask builds a render task.
func NewInvoiceRenderTask(tenantID, invoiceID uuid.UUID) (*asynq.Task, error) {
	return newTask(TaskInvoiceRender, InvoicePayload{TenantID: tenantID, InvoiceID: invoiceID},
		asynq.Queue(QueueDocuments), asynq.MaxRetry(5), asynq.Timeout(2*time.Minute))
}

// NewInvoiceSendTask builds a delivery task.
func NewInvoiceSendTask(tenantID, invoiceID uuid.UUID, to string) (*asynq.Task, error) {
	return newTask(TaskInvoiceSend, SendPayload{InvoicePayload: InvoicePayload{TenantID: tenantID, InvoiceID: invoiceID}, To: to},
		asynq.Queue(QueueDefault), asynq.MaxRetry(10))
}

// NewAnalyticsWarmupTask builds a warmup task; a nil tenant warms every active tenant.
func NewAnalyticsWarmupTask(tenantID *uuid.UUID) (*asynq.Task, error) {
	return newTask(TaskAnalyticsWarmup, AnalyticsWarmupPayload{TenantID: tenantID},
		asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

// NewIdempotencyCleanupTask builds the purge task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

func decodePayload(t *asynq.Task, dest any) error {
	if err := json.Unmarshal(t.Payload(), dest); err != nil {
		return fmt.Errorf("jobs: decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}
