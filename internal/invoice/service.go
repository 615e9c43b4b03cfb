package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/fatoora/internal/clients"
	"github.com/odyssey-erp/fatoora/internal/export"
	"github.com/odyssey-erp/fatoora/internal/invoice/taxrule"
	"github.com/odyssey-erp/fatoora/internal/invoice/totals"
	"github.com/odyssey-erp/fatoora/internal/settings"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	CreateWithItems(ctx context.Context, prefix string, inv Invoice, items []Item, key string) (Invoice, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (Invoice, error)
	Items(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Item, error)
	List(ctx context.Context, tenantID uuid.UUID, f ListFilter, today time.Time, limit, offset int) ([]ListRow, int, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, from, to Status) (Invoice, error)
	Update(ctx context.Context, inv Invoice) (Invoice, error)
	ReplaceItems(ctx context.Context, inv Invoice, items []Item) (Invoice, error)
	SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error
	CreditedTotal(ctx context.Context, tenantID, invoiceID uuid.UUID) (decimal.Decimal, error)
}

// ClientDirectory resolves buyers.
type ClientDirectory interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (clients.Client, error)
	GetInvoiceable(ctx context.Context, tenantID, id uuid.UUID) (clients.Client, error)
}

// SettingsProvider reads the tenant billing profile.
type SettingsProvider interface {
	Get(ctx context.Context, tenantID uuid.UUID) (settings.Settings, error)
}

// Invalidator drops tenant scoped caches after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// Enqueuer schedules background work for issued invoices.
type Enqueuer interface {
	EnqueueInvoiceRender(ctx context.Context, tenantID, invoiceID uuid.UUID) error
}

// Service orchestrates invoice flows.
type Service struct {
	repo         RepositoryPort
	clients      ClientDirectory
	settings     SettingsProvider
	invalidators []Invalidator
	enqueuer     Enqueuer
	zatcaEnabled bool
	now          func() time.Time
	logger       *slog.Logger
}

// NewService constructs the invoice service with ZATCA behaviour enabled.
func NewService(repo RepositoryPort, clients ClientDirectory, settings SettingsProvider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		clients:      clients,
		settings:     settings,
		zatcaEnabled: true,
		now:          time.Now,
		logger:       logger,
	}
}

// WithZATCA toggles tax specific behaviour for the deployment.
func (s *Service) WithZATCA(enabled bool) *Service {
	s.zatcaEnabled = enabled
	return s
}

// WithInvalidators registers caches to bump after every mutation.
func (s *Service) WithInvalidators(inv ...Invalidator) *Service {
	s.invalidators = append(s.invalidators, inv...)
	return s
}

// WithEnqueuer sets the background job client.
func (s *Service) WithEnqueuer(e Enqueuer) *Service {
	s.enqueuer = e
	return s
}

// WithClock overrides the clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ZATCAEnabled reports the deployment flag.
func (s *Service) ZATCAEnabled() bool { return s.zatcaEnabled }

// Create validates input, computes totals and stores the invoice with its
// items atomically.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (Invoice, error) {
	if err := shared.Validate(in); err != nil {
		return Invoice{}, err
	}
	typ, err := taxrule.ParseInvoiceType(in.Type)
	if err != nil {
		return Invoice{}, shared.Invalid("type", "oneof")
	}
	client, err := s.clients.GetInvoiceable(ctx, tenantID, uuid.MustParse(in.ClientID))
	if err != nil {
		return Invoice{}, err
	}
	st, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice: load settings: %w", err)
	}

	issue, err := parseDate("issue_date", in.IssueDate, truncateDay(s.now().In(st.Location())))
	if err != nil {
		return Invoice{}, err
	}
	due, err := parseDate("due_date", in.DueDate, issue.Add(DefaultPaymentTerm))
	if err != nil {
		return Invoice{}, err
	}
	if due.Before(issue) {
		return Invoice{}, shared.Invalid("due_date", "gtefield=issue_date")
	}
	rate := st.DefaultVATRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return Invoice{}, shared.Invalid("tax_rate", "range=0..100")
	}

	items := s.normalizeItems(tenantID, in.Items)
	inv := Invoice{
		TenantID:  tenantID,
		Type:      typ,
		Kind:      taxrule.KindInvoice,
		ClientID:  client.ID,
		IssueDate: issue,
		IssueTime: optionalString(in.IssueTime),
		DueDate:   due,
		TaxRate:   rate,
		Status:    StatusDraft,
		Notes:     strings.TrimSpace(in.Notes),
	}
	inv.applyTotals(items, inv.Mode(client.TaxNumber, s.zatcaEnabled))

	created, err := s.repo.CreateWithItems(ctx, st.NumberPrefix, inv, items, in.IdempotencyKey)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice: create: %w", err)
	}
	s.logger.Info("invoice created",
		slog.String("tenant_id", tenantID.String()),
		slog.String("invoice_id", created.ID.String()),
		slog.String("number", created.Number))
	s.invalidate(ctx, tenantID)
	return created, nil
}

// CreateCreditNote issues a credit note against an invoice. It keeps the
// original type, client and tax rate, and refuses to credit more than the
// original total across all live credit notes.
func (s *Service) CreateCreditNote(ctx context.Context, tenantID, originalID uuid.UUID, in CreditNoteInput) (Invoice, error) {
	if err := shared.Validate(in); err != nil {
		return Invoice{}, err
	}
	orig, err := s.repo.Get(ctx, tenantID, originalID)
	if err != nil {
		return Invoice{}, err
	}
	if orig.Kind == taxrule.KindCreditNote {
		return Invoice{}, ErrCreditOfCredit
	}
	if orig.Status != StatusSent && orig.Status != StatusPaid {
		return Invoice{}, ErrOriginalNotIssued
	}
	client, err := s.clients.Get(ctx, tenantID, orig.ClientID)
	if err != nil {
		return Invoice{}, err
	}
	st, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice: load settings: %w", err)
	}
	issue, err := parseDate("issue_date", in.IssueDate, truncateDay(s.now().In(st.Location())))
	if err != nil {
		return Invoice{}, err
	}

	var items []Item
	if len(in.Items) > 0 {
		items = s.normalizeItems(tenantID, in.Items)
	} else {
		src, err := s.repo.Items(ctx, tenantID, orig.ID)
		if err != nil {
			return Invoice{}, fmt.Errorf("invoice: load original items: %w", err)
		}
		items = make([]Item, len(src))
		for i, it := range src {
			items[i] = Item{Position: i + 1, Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice, Total: it.Total}
		}
	}

	related := orig.ID
	note := Invoice{
		TenantID:         tenantID,
		Type:             orig.Type,
		Kind:             taxrule.KindCreditNote,
		RelatedInvoiceID: &related,
		ClientID:         orig.ClientID,
		IssueDate:        issue,
		IssueTime:        optionalString(in.IssueTime),
		DueDate:          issue,
		TaxRate:          orig.TaxRate,
		Status:           StatusDraft,
		Notes:            strings.TrimSpace(in.Notes),
	}
	note.applyTotals(items, note.Mode(client.TaxNumber, s.zatcaEnabled))

	credited, err := s.repo.CreditedTotal(ctx, tenantID, orig.ID)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice: credited total: %w", err)
	}
	if credited.Add(note.TotalAmount).GreaterThan(orig.TotalAmount) {
		return Invoice{}, ErrCreditExceedsOriginal
	}

	created, err := s.repo.CreateWithItems(ctx, st.NumberPrefix, note, items, in.IdempotencyKey)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice: create credit note: %w", err)
	}
	s.logger.Info("credit note created",
		slog.String("tenant_id", tenantID.String()),
		slog.String("invoice_id", created.ID.String()),
		slog.String("original_id", orig.ID.String()))
	s.invalidate(ctx, tenantID)
	return created, nil
}

// Get returns an invoice with its items.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (Invoice, []Item, error) {
	inv, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	items, err := s.repo.Items(ctx, tenantID, id)
	if err != nil {
		return Invoice{}, nil, fmt.Errorf("invoice: load items: %w", err)
	}
	return inv, items, nil
}

// List returns a filtered page of invoices.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]ListRow, shared.Pagination, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	p := shared.NewPagination(page, perPage, 0)
	rows, total, err := s.repo.List(ctx, tenantID, f, truncateDay(s.now()), perPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("invoice: list: %w", err)
	}
	return rows, shared.NewPagination(page, perPage, total), nil
}

// Now exposes the service clock for derived statuses.
func (s *Service) Now() time.Time { return s.now() }

// UpdateStatus applies a lifecycle transition. Moving to sent schedules a
// document pre-render.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, in StatusInput) (Invoice, error) {
	if err := shared.Validate(in); err != nil {
		return Invoice{}, err
	}
	to, _ := ParseStatus(in.Status)
	inv, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Invoice{}, err
	}
	if !CanTransition(inv.Status, to) {
		return Invoice{}, ErrInvalidTransition
	}
	updated, err := s.repo.UpdateStatus(ctx, tenantID, id, inv.Status, to)
	if err != nil {
		return Invoice{}, err
	}
	s.logger.Info("invoice status changed",
		slog.String("invoice_id", id.String()),
		slog.String("from", string(inv.Status)),
		slog.String("to", string(to)))

	if to == StatusSent && s.enqueuer != nil {
		if err := s.enqueuer.EnqueueInvoiceRender(ctx, tenantID, id); err != nil {
			s.logger.Warn("enqueue invoice render", slog.String("invoice_id", id.String()), slog.Any("error", err))
		}
	}
	s.invalidate(ctx, tenantID)
	return updated, nil
}

// ReplaceItems swaps the lines of a draft and recomputes its totals.
func (s *Service) ReplaceItems(ctx context.Context, tenantID, id uuid.UUID, in ReplaceItemsInput) (Invoice, error) {
	if err := shared.Validate(in); err != nil {
		return Invoice{}, err
	}
	inv, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != StatusDraft {
		return Invoice{}, ErrNotDraft
	}
	client, err := s.clients.Get(ctx, tenantID, inv.ClientID)
	if err != nil {
		return Invoice{}, err
	}
	items := s.normalizeItems(tenantID, in.Items)
	inv.applyTotals(items, inv.Mode(client.TaxNumber, s.zatcaEnabled))

	updated, err := s.repo.ReplaceItems(ctx, inv, items)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice: replace items: %w", err)
	}
	s.invalidate(ctx, tenantID)
	return updated, nil
}

// Update edits header fields of a draft.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, in UpdateInput) (Invoice, error) {
	if err := shared.Validate(in); err != nil {
		return Invoice{}, err
	}
	inv, items, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != StatusDraft {
		return Invoice{}, ErrNotDraft
	}

	var client clients.Client
	if in.ClientID != "" && uuid.MustParse(in.ClientID) != inv.ClientID {
		client, err = s.clients.GetInvoiceable(ctx, tenantID, uuid.MustParse(in.ClientID))
	} else {
		client, err = s.clients.Get(ctx, tenantID, inv.ClientID)
	}
	if err != nil {
		return Invoice{}, err
	}
	inv.ClientID = client.ID

	if inv.IssueDate, err = parseDate("issue_date", in.IssueDate, inv.IssueDate); err != nil {
		return Invoice{}, err
	}
	if inv.DueDate, err = parseDate("due_date", in.DueDate, inv.DueDate); err != nil {
		return Invoice{}, err
	}
	if inv.DueDate.Before(inv.IssueDate) {
		return Invoice{}, shared.Invalid("due_date", "gtefield=issue_date")
	}
	if in.IssueTime != "" {
		inv.IssueTime = optionalString(in.IssueTime)
	}
	if in.Notes != nil {
		inv.Notes = strings.TrimSpace(*in.Notes)
	}
	inv.applyTotals(items, inv.Mode(client.TaxNumber, s.zatcaEnabled))

	updated, err := s.repo.Update(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	s.invalidate(ctx, tenantID)
	return updated, nil
}

// Delete soft deletes a draft.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	inv, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if inv.Status != StatusDraft {
		return ErrNotDraft
	}
	if err := s.repo.SoftDelete(ctx, tenantID, id); err != nil {
		return err
	}
	s.invalidate(ctx, tenantID)
	return nil
}

// ExportRows pages through every invoice matching f and returns export rows
// with signed totals.
func (s *Service) ExportRows(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]export.InvoiceRow, error) {
	st, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("invoice: load settings: %w", err)
	}
	var out []export.InvoiceRow
	f.PerPage = shared.MaxPerPage
	for f.Page = 1; ; f.Page++ {
		rows, page, err := s.List(ctx, tenantID, f)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, export.InvoiceRow{
				Number:          r.Number,
				Type:            string(r.Type),
				Kind:            string(r.Kind),
				Status:          string(r.DisplayStatus(s.now())),
				ClientName:      r.ClientName,
				ClientTaxNumber: r.ClientTaxNumber,
				IssueDate:       r.IssueDate,
				DueDate:         r.DueDate,
				Subtotal:        r.Subtotal,
				VAT:             r.VATAmount,
				Total:           r.SignedTotal(),
				Currency:        st.Currency,
			})
		}
		if f.Page >= page.TotalPages || len(rows) == 0 {
			return out, nil
		}
	}
}

func (s *Service) normalizeItems(tenantID uuid.UUID, in []ItemInput) []Item {
	lines, adjustments := totals.Normalize(rawLines(in))
	for _, a := range adjustments {
		s.logger.Warn("line item coerced",
			slog.String("tenant_id", tenantID.String()),
			slog.String("adjustment", a.String()))
	}
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			Position:    i + 1,
			Description: strings.TrimSpace(l.Description),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       totals.LineNet(l.Quantity, l.UnitPrice),
		}
	}
	return items
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID) {
	for _, inv := range s.invalidators {
		if err := inv.Invalidate(ctx, tenantID); err != nil {
			s.logger.Warn("cache invalidation failed", slog.String("tenant_id", tenantID.String()), slog.Any("error", err))
		}
	}
}
