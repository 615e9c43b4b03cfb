package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/fatoora/internal/invoice/totals"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

const dateLayout = "2006-01-02"

// DefaultPaymentTerm is added to the issue date when no due date is given.
const DefaultPaymentTerm = 30 * 24 * time.Hour

// ItemInput is a submitted line. Amounts arrive as JSON numbers and are
// converted to decimals by totals.Normalize.
type ItemInput struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

// CreateInput is the payload for a new invoice.
type CreateInput struct {
	Type      string           `json:"type" validate:"required,oneof=standard_tax simplified_tax non_tax"`
	ClientID  string           `json:"client_id" validate:"required,uuid"`
	IssueDate string           `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	IssueTime string           `json:"issue_time" validate:"omitempty,datetime=15:04:05"`
	DueDate   string           `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
	Notes     string           `json:"notes" validate:"max=2000"`
	Items     []ItemInput      `json:"items" validate:"required,min=1,dive"`

	IdempotencyKey string `json:"-"`
}

// CreditNoteInput is the payload for a credit note. Items default to the
// original invoice's items.
type CreditNoteInput struct {
	IssueDate string      `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	IssueTime string      `json:"issue_time" validate:"omitempty,datetime=15:04:05"`
	Notes     string      `json:"notes" validate:"max=2000"`
	Items     []ItemInput `json:"items" validate:"omitempty,dive"`

	IdempotencyKey string `json:"-"`
}

// UpdateInput edits a draft's header fields. Blank fields keep their value.
type UpdateInput struct {
	ClientID  string  `json:"client_id" validate:"omitempty,uuid"`
	IssueDate string  `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	IssueTime string  `json:"issue_time" validate:"omitempty,datetime=15:04:05"`
	DueDate   string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

// ReplaceItemsInput replaces every line of a draft.
type ReplaceItemsInput struct {
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// StatusInput requests a transition.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=draft sent paid cancelled"`
}

func rawLines(in []ItemInput) []totals.RawLine {
	raw := make([]totals.RawLine, len(in))
	for i, it := range in {
		raw[i] = totals.RawLine{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return raw
}

// parseDate reads an optional date, returning fallback when blank.
func parseDate(field, raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, shared.Invalid(field, "datetime")
	}
	return t, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
