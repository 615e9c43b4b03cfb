package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/fatoora/internal/platform/db"
)

// PgRepository reads aggregates straight from the invoices table.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres backed analytics repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const summarySQL = `
SELECT
	COALESCE(SUM(signed) FILTER (WHERE status IN ('sent','paid')), 0),
	COALESCE(SUM(signed) FILTER (WHERE status = 'paid'), 0),
	COALESCE(SUM(signed) FILTER (WHERE status = 'sent'), 0),
	COUNT(*) FILTER (WHERE document_kind = 'invoice' AND status IN ('draft','sent') AND due_date < $2),
	COALESCE(SUM(total_amount) FILTER (WHERE document_kind = 'invoice' AND status IN ('draft','sent') AND due_date < $2), 0),
	COALESCE(SUM(signed_vat) FILTER (WHERE status IN ('sent','paid')), 0),
	COALESCE(SUM(total_amount) FILTER (WHERE document_kind = 'credit_note' AND status IN ('sent','paid')), 0)
FROM (
	SELECT status, document_kind, due_date, total_amount,
		CASE WHEN document_kind = 'credit_note' THEN -total_amount ELSE total_amount END AS signed,
		CASE WHEN document_kind = 'credit_note' THEN -vat_amount ELSE vat_amount END AS signed_vat
	FROM invoices
	WHERE tenant_id = $1 AND deleted_at IS NULL
) i`

// Summary aggregates the KPI cards.
func (r *PgRepository) Summary(ctx context.Context, tenantID uuid.UUID, today time.Time) (Summary, error) {
	var (
		invoiced, collected, outstanding pgtype.Numeric
		overdueAmount, vat, credits      pgtype.Numeric
		overdueCount                     int64
	)
	err := r.pool.QueryRow(ctx, summarySQL, tenantID, today).Scan(
		&invoiced, &collected, &outstanding, &overdueCount, &overdueAmount, &vat, &credits)
	if err != nil {
		return Summary{}, fmt.Errorf("analytics: summary: %w", err)
	}
	return Summary{
		Invoiced:      db.Decimal(invoiced),
		Collected:     db.Decimal(collected),
		Outstanding:   db.Decimal(outstanding),
		OverdueCount:  int(overdueCount),
		OverdueAmount: db.Decimal(overdueAmount),
		VATCollected:  db.Decimal(vat),
		CreditNotes:   db.Decimal(credits),
	}, nil
}

const monthlySQL = `
SELECT to_char(date_trunc('month', issue_date), 'YYYY-MM') AS period,
	SUM(CASE WHEN document_kind = 'credit_note' THEN -total_amount ELSE total_amount END),
	SUM(CASE WHEN document_kind = 'credit_note' THEN -vat_amount ELSE vat_amount END)
FROM invoices
WHERE tenant_id = $1 AND deleted_at IS NULL AND status IN ('sent','paid')
	AND issue_date >= $2 AND issue_date < $3
GROUP BY 1
ORDER BY 1`

// MonthlyRevenue groups issued documents by issue month in [from, to).
func (r *PgRepository) MonthlyRevenue(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, monthlySQL, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("analytics: monthly revenue: %w", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var (
			period        string
			invoiced, vat pgtype.Numeric
		)
		if err := rows.Scan(&period, &invoiced, &vat); err != nil {
			return nil, err
		}
		points = append(points, TrendPoint{Period: period, Invoiced: db.Decimal(invoiced), VAT: db.Decimal(vat)})
	}
	return points, rows.Err()
}
