package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/fatoora/internal/invoice/taxrule"
	"github.com/odyssey-erp/fatoora/internal/platform/db"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

const idempotencyModule = "invoice.create"

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
	idem *shared.IdempotencyStore
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, idem: shared.NewIdempotencyStore(pool)}
}

const invoiceColumns = `i.id, i.tenant_id, i.number, i.invoice_type, i.document_kind, i.related_invoice_id,
	i.client_id, i.issue_date, i.issue_time, i.due_date, i.subtotal, i.tax_rate, i.vat_amount,
	i.total_amount, i.status, i.notes, i.created_at, i.updated_at, i.deleted_at`

func scanInvoice(row pgx.Row, extra ...any) (Invoice, error) {
	var (
		inv                        Invoice
		typ, kind, status          string
		related                    pgtype.UUID
		issueTime                  pgtype.Text
		subtotal, rate, vat, total pgtype.Numeric
		deletedAt                  pgtype.Timestamptz
	)
	dest := []any{&inv.ID, &inv.TenantID, &inv.Number, &typ, &kind, &related,
		&inv.ClientID, &inv.IssueDate, &issueTime, &inv.DueDate, &subtotal, &rate, &vat,
		&total, &status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt, &deletedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Invoice{}, err
	}
	inv.Type = taxrule.InvoiceType(typ)
	inv.Kind = taxrule.DocumentKind(kind)
	inv.Status = Status(status)
	if related.Valid {
		id := uuid.UUID(related.Bytes)
		inv.RelatedInvoiceID = &id
	}
	if issueTime.Valid {
		inv.IssueTime = &issueTime.String
	}
	inv.Subtotal = db.Decimal(subtotal)
	inv.TaxRate = db.Decimal(rate)
	inv.VATAmount = db.Decimal(vat)
	inv.TotalAmount = db.Decimal(total)
	if deletedAt.Valid {
		inv.DeletedAt = &deletedAt.Time
	}
	return inv, nil
}

type itemJSON struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

func itemsPayload(items []Item) ([]byte, error) {
	payload := make([]itemJSON, len(items))
	for i, it := range items {
		payload[i] = itemJSON{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice, Total: it.Total}
	}
	return json.Marshal(payload)
}

func nullableUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func nullableText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// CreateWithItems runs create_invoice_with_items in one transaction. The
// procedure locks the tenant's counter row, so concurrent creations serialize
// on numbering. When key is set the idempotency record commits with the
// invoice.
func (r *Repository) CreateWithItems(ctx context.Context, prefix string, inv Invoice, items []Item, key string) (Invoice, error) {
	payload, err := itemsPayload(items)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice: encode items: %w", err)
	}
	var created Invoice
	err = db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if key != "" {
			if err := r.idem.WithExecutor(tx).CheckAndInsert(ctx, inv.TenantID, key, idempotencyModule); err != nil {
				return err
			}
		}
		var id uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT create_invoice_with_items($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			inv.TenantID, prefix, string(inv.Type), string(inv.Kind), nullableUUID(inv.RelatedInvoiceID),
			inv.ClientID, inv.IssueDate, nullableText(inv.IssueTime), inv.DueDate,
			db.Numeric(inv.Subtotal), db.Numeric(inv.TaxRate), db.Numeric(inv.VATAmount), db.Numeric(inv.TotalAmount),
			inv.Notes, payload,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("invoice: create procedure: %w", err)
		}
		created, err = scanInvoice(tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = $1`, id))
		return err
	})
	return created, err
}

// Get returns a live invoice.
func (r *Repository) Get(ctx context.Context, tenantID, id uuid.UUID) (Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices i WHERE i.tenant_id = $1 AND i.id = $2 AND i.deleted_at IS NULL`
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

// Items returns the invoice lines in order.
func (r *Repository) Items(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT it.id, it.invoice_id, it.position, it.description, it.quantity, it.unit_price, it.total
		FROM invoice_items it
		JOIN invoices i ON i.id = it.invoice_id
		WHERE i.tenant_id = $1 AND it.invoice_id = $2
		ORDER BY it.position`, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		var qty, price, total pgtype.Numeric
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Position, &it.Description, &qty, &price, &total); err != nil {
			return nil, err
		}
		it.Quantity = db.Decimal(qty)
		it.UnitPrice = db.Decimal(price)
		it.Total = db.Decimal(total)
		out = append(out, it)
	}
	return out, rows.Err()
}

// List returns a page of invoices with client names and the total count.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, f ListFilter, today time.Time, limit, offset int) ([]ListRow, int, error) {
	where := []string{"i.tenant_id = $1", "i.deleted_at IS NULL"}
	args := []any{tenantID}
	argNum := 2

	switch f.Status {
	case "":
	case StatusOverdue:
		where = append(where, fmt.Sprintf("i.status IN ('draft', 'sent') AND i.due_date < $%d", argNum))
		args = append(args, today)
		argNum++
	default:
		where = append(where, fmt.Sprintf("i.status = $%d", argNum))
		args = append(args, string(f.Status))
		argNum++
	}
	if f.ClientID != nil {
		where = append(where, fmt.Sprintf("i.client_id = $%d", argNum))
		args = append(args, *f.ClientID)
		argNum++
	}
	if f.Type != "" {
		where = append(where, fmt.Sprintf("i.invoice_type = $%d", argNum))
		args = append(args, string(f.Type))
		argNum++
	}
	if f.Kind != "" {
		where = append(where, fmt.Sprintf("i.document_kind = $%d", argNum))
		args = append(args, string(f.Kind))
		argNum++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, fmt.Sprintf("(i.number ILIKE $%d OR c.name ILIKE $%d OR c.company_name ILIKE $%d)", argNum, argNum, argNum))
		args = append(args, "%"+s+"%")
		argNum++
	}
	if f.From != nil {
		where = append(where, fmt.Sprintf("i.issue_date >= $%d", argNum))
		args = append(args, *f.From)
		argNum++
	}
	if f.To != nil {
		where = append(where, fmt.Sprintf("i.issue_date <= $%d", argNum))
		args = append(args, *f.To)
		argNum++
	}
	cond := strings.Join(where, " AND ")
	from := ` FROM invoices i
		JOIN clients c ON c.id = i.client_id
		LEFT JOIN invoices o ON o.id = i.related_invoice_id
		WHERE ` + cond

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := SortColumns[f.Sort]
	if !ok {
		order = SortColumns["issue_date"]
	}
	query := fmt.Sprintf("SELECT %s, c.name, c.tax_number, COALESCE(o.number, '')%s ORDER BY %s, i.id LIMIT $%d OFFSET $%d",
		invoiceColumns, from, order, argNum, argNum+1)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []ListRow
	for rows.Next() {
		var lr ListRow
		inv, err := scanInvoice(rows, &lr.ClientName, &lr.ClientTaxNumber, &lr.OriginalNumber)
		if err != nil {
			return nil, 0, err
		}
		lr.Invoice = inv
		out = append(out, lr)
	}
	return out, total, rows.Err()
}

// UpdateStatus moves an invoice from one status to another. It fails with
// ErrInvalidTransition when the stored status is no longer from.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, from, to Status) (Invoice, error) {
	query := `
		UPDATE invoices i SET status = $4, updated_at = NOW()
		WHERE i.tenant_id = $1 AND i.id = $2 AND i.status = $3 AND i.deleted_at IS NULL
		RETURNING ` + invoiceColumns
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, tenantID, id, string(from), string(to)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvalidTransition
	}
	return inv, err
}

// Update writes header fields and totals of a draft.
func (r *Repository) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	query := `
		UPDATE invoices i SET client_id = $3, issue_date = $4, issue_time = $5, due_date = $6, notes = $7,
			subtotal = $8, tax_rate = $9, vat_amount = $10, total_amount = $11, updated_at = NOW()
		WHERE i.tenant_id = $1 AND i.id = $2 AND i.status = 'draft' AND i.deleted_at IS NULL
		RETURNING ` + invoiceColumns
	out, err := scanInvoice(r.pool.QueryRow(ctx, query, inv.TenantID, inv.ID, inv.ClientID, inv.IssueDate,
		nullableText(inv.IssueTime), inv.DueDate, inv.Notes, db.Numeric(inv.Subtotal), db.Numeric(inv.TaxRate),
		db.Numeric(inv.VATAmount), db.Numeric(inv.TotalAmount)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotDraft
	}
	return out, err
}

// ReplaceItems swaps every line of a draft and stores the new totals in one
// transaction.
func (r *Repository) ReplaceItems(ctx context.Context, inv Invoice, items []Item) (Invoice, error) {
	var out Invoice
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM invoices WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL FOR UPDATE`,
			inv.TenantID, inv.ID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if Status(status) != StatusDraft {
			return ErrNotDraft
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		rows := make([][]any, len(items))
		for i, it := range items {
			rows[i] = []any{uuid.New(), inv.ID, i + 1, it.Description, db.Numeric(it.Quantity), db.Numeric(it.UnitPrice), db.Numeric(it.Total)}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"invoice_items"},
			[]string{"id", "invoice_id", "position", "description", "quantity", "unit_price", "total"},
			pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("invoice: copy items: %w", err)
		}
		out, err = scanInvoice(tx.QueryRow(ctx, `
			UPDATE invoices i SET subtotal = $3, tax_rate = $4, vat_amount = $5, total_amount = $6, updated_at = NOW()
			WHERE i.tenant_id = $1 AND i.id = $2
			RETURNING `+invoiceColumns,
			inv.TenantID, inv.ID, db.Numeric(inv.Subtotal), db.Numeric(inv.TaxRate), db.Numeric(inv.VATAmount), db.Numeric(inv.TotalAmount)))
		return err
	})
	return out, err
}

// SoftDelete marks a draft deleted.
func (r *Repository) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET deleted_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND status = 'draft' AND deleted_at IS NULL`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotDraft
	}
	return nil
}

// CreditedTotal sums the magnitudes of live credit notes against an invoice.
func (r *Repository) CreditedTotal(ctx context.Context, tenantID, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0) FROM invoices
		WHERE tenant_id = $1 AND related_invoice_id = $2 AND document_kind = 'credit_note'
			AND status <> 'cancelled' AND deleted_at IS NULL`, tenantID, invoiceID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return db.Decimal(sum), nil
}
