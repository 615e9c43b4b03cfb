package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/fatoora/internal/platform/db"
)

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindKey loads an API key by prefix. Keys of inactive tenants are not found.
func (r *PGRepository) FindKey(ctx context.Context, prefix string) (APIKey, error) {
	var (
		key     APIKey
		revoked pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, `
		SELECT k.id, k.tenant_id, k.prefix, k.secret_hash, k.revoked_at
		FROM api_keys k
		JOIN tenants t ON t.id = k.tenant_id
		WHERE k.prefix = $1 AND t.active`, prefix).
		Scan(&key.ID, &key.TenantID, &key.Prefix, &key.SecretHash, &revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrNotFound
	}
	if err != nil {
		return APIKey{}, fmt.Errorf("tenant: find key: %w", err)
	}
	if revoked.Valid {
		t := revoked.Time
		key.RevokedAt = &t
	}
	return key, nil
}

// TouchKey records the last successful use of a key.
func (r *PGRepository) TouchKey(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

// CreateTenant inserts a tenant together with its first API key.
func (r *PGRepository) CreateTenant(ctx context.Context, name string, key APIKey) (Tenant, error) {
	var t Tenant
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO tenants (name) VALUES ($1)
			RETURNING id, name, active, created_at`, name).
			Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO api_keys (tenant_id, prefix, secret_hash) VALUES ($1, $2, $3)`,
			t.ID, key.Prefix, key.SecretHash)
		return err
	})
	if err != nil {
		return Tenant{}, fmt.Errorf("tenant: create: %w", err)
	}
	return t, nil
}

// ActiveTenants lists the IDs of every active tenant.
func (r *PGRepository) ActiveTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM tenants WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("tenant: list active: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

var _ RepositoryPort = (*PGRepository)(nil)
