package settings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/fatoora/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads the tenant's row.
func (r *Repository) Get(ctx context.Context, tenantID uuid.UUID) (Settings, error) {
	const query = `
		SELECT tenant_id, seller_name, vat_number, cr_number, address, city, iban,
			logo_url, footer_text, number_prefix, default_vat_rate, currency, timezone, updated_at
		FROM invoice_settings
		WHERE tenant_id = $1`

	var s Settings
	var rate pgtype.Numeric
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&s.TenantID, &s.SellerName, &s.VATNumber, &s.CRNumber, &s.Address, &s.City, &s.IBAN,
		&s.LogoURL, &s.FooterText, &s.NumberPrefix, &rate, &s.Currency, &s.Timezone, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, err
	}
	s.DefaultVATRate = db.Decimal(rate)
	return s, nil
}

// Upsert inserts or replaces the tenant's row.
func (r *Repository) Upsert(ctx context.Context, s Settings) (Settings, error) {
	const query = `
		INSERT INTO invoice_settings (
			tenant_id, seller_name, vat_number, cr_number, address, city, iban,
			logo_url, footer_text, number_prefix, default_vat_rate, currency, timezone, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			seller_name = EXCLUDED.seller_name,
			vat_number = EXCLUDED.vat_number,
			cr_number = EXCLUDED.cr_number,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			iban = EXCLUDED.iban,
			logo_url = EXCLUDED.logo_url,
			footer_text = EXCLUDED.footer_text,
			number_prefix = EXCLUDED.number_prefix,
			default_vat_rate = EXCLUDED.default_vat_rate,
			currency = EXCLUDED.currency,
			timezone = EXCLUDED.timezone,
			updated_at = NOW()
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		s.TenantID, s.SellerName, s.VATNumber, s.CRNumber, s.Address, s.City, s.IBAN,
		s.LogoURL, s.FooterText, s.NumberPrefix, db.Numeric(s.DefaultVATRate), s.Currency, s.Timezone,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return Settings{}, err
	}
	return s, nil
}
