// Package invoice implements the invoice lifecycle: creation with atomic number
// allocation, credit notes, status transitions and document rendering.
package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/fatoora/internal/invoice/taxrule"
	"github.com/odyssey-erp/fatoora/internal/invoice/totals"
	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

// Status is the stored lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	// StatusOverdue is never stored; see Invoice.DisplayStatus.
	StatusOverdue Status = "overdue"
)

var transitions = map[Status][]Status{
	StatusDraft: {StatusSent, StatusCancelled},
	StatusSent:  {StatusPaid, StatusCancelled},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseStatus accepts stored statuses only.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusDraft, StatusSent, StatusPaid, StatusCancelled:
		return s, true
	}
	return "", false
}

var (
	ErrNotFound              = shared.NewError(httpx.ErrNotFound, "invoice: not found", "الفاتورة غير موجودة")
	ErrInvalidTransition     = shared.NewError(httpx.ErrConflict, "invoice: invalid status transition", "لا يمكن تغيير حالة الفاتورة بهذا الشكل")
	ErrNotDraft              = shared.NewError(httpx.ErrConflict, "invoice: only draft invoices can be changed", "لا يمكن تعديل أو حذف فاتورة غير مسودة")
	ErrCreditOfCredit        = shared.NewError(httpx.ErrValidation, "invoice: a credit note cannot reference another credit note", "لا يمكن إصدار إشعار دائن على إشعار دائن")
	ErrCreditExceedsOriginal = shared.NewError(httpx.ErrValidation, "invoice: credit exceeds original invoice total", "قيمة الإشعار الدائن تتجاوز قيمة الفاتورة الأصلية")
	ErrOriginalNotIssued     = shared.NewError(httpx.ErrConflict, "invoice: original invoice is not issued", "لا يمكن إصدار إشعار دائن لفاتورة مسودة أو ملغاة")
)

// Invoice is a billing document. Monetary fields are magnitudes; the sign of a
// credit note is derived from Kind via Sign.
type Invoice struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Number           string
	Type             taxrule.InvoiceType
	Kind             taxrule.DocumentKind
	RelatedInvoiceID *uuid.UUID
	ClientID         uuid.UUID
	IssueDate        time.Time
	IssueTime        *string
	DueDate          time.Time
	Subtotal         decimal.Decimal
	TaxRate          decimal.Decimal
	VATAmount        decimal.Decimal
	TotalAmount      decimal.Decimal
	Status           Status
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Item is one billable line.
type Item struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	// Total is the line net, quantity times unit price.
	Total decimal.Decimal
}

// Sign returns -1 for credit notes and 1 otherwise.
func Sign(kind taxrule.DocumentKind) decimal.Decimal {
	if kind == taxrule.KindCreditNote {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// SignedTotal is the total as it appears on documents and reports.
func (i Invoice) SignedTotal() decimal.Decimal {
	return i.TotalAmount.Mul(Sign(i.Kind))
}

// DisplayStatus adds the derived overdue state.
func (i Invoice) DisplayStatus(now time.Time) Status {
	if i.Status == StatusPaid || i.Status == StatusCancelled {
		return i.Status
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dy, dm, dd := i.DueDate.Date()
	if time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC).Before(today) {
		return StatusOverdue
	}
	return i.Status
}

// Mode resolves the presentation mode for the invoice and its buyer.
func (i Invoice) Mode(buyerTaxNumber string, zatcaEnabled bool) taxrule.Mode {
	return taxrule.Resolve(taxrule.Input{
		Type:           i.Type,
		Kind:           i.Kind,
		BuyerTaxNumber: buyerTaxNumber,
		ZATCAEnabled:   zatcaEnabled,
	})
}

// Lines converts stored items for the totals calculator.
func Lines(items []Item) []totals.Line {
	lines := make([]totals.Line, len(items))
	for i, it := range items {
		lines[i] = totals.Line{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return lines
}

// ComputeTotals is the one computation path shared by writes, documents and
// listings.
func ComputeTotals(rate decimal.Decimal, items []Item, mode taxrule.Mode) totals.Totals {
	return totals.Compute(Lines(items), rate, mode.ShowsTax, mode.Negates())
}

// applyTotals stores magnitudes computed for mode onto inv. The amounts are
// already rounded per line, so they are stored as computed.
func (i *Invoice) applyTotals(items []Item, mode taxrule.Mode) {
	if !mode.ShowsTax {
		i.TaxRate = decimal.Zero
	}
	t := ComputeTotals(i.TaxRate, items, mode)
	i.Subtotal = t.Subtotal
	i.VATAmount = t.VAT
	i.TotalAmount = t.Total.Abs()
}

// ListRow is an invoice with the client fields listings need.
type ListRow struct {
	Invoice
	ClientName      string
	ClientTaxNumber string
	OriginalNumber  string
}

// ListFilter narrows List.
type ListFilter struct {
	// Status may be StatusOverdue, which is evaluated against the due date.
	Status   Status
	ClientID *uuid.UUID
	Type     taxrule.InvoiceType
	Kind     taxrule.DocumentKind
	Search   string
	From     *time.Time
	To       *time.Time
	Sort     string
	Page     int
	PerPage  int
}

// SortColumns maps accepted sort keys to SQL.
var SortColumns = map[string]string{
	"issue_date":  "i.issue_date DESC, i.number DESC",
	"-issue_date": "i.issue_date ASC, i.number ASC",
	"number":      "i.number ASC",
	"-number":     "i.number DESC",
	"total":       "i.total_amount DESC",
	"-total":      "i.total_amount ASC",
	"due_date":    "i.due_date ASC",
}
