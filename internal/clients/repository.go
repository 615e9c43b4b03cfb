package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for clients.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, tenant_id, name, company_name, tax_number, address, city, email, phone,
	status, created_at, updated_at, deleted_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	var deletedAt pgtype.Timestamptz
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.CompanyName, &c.TaxNumber, &c.Address, &c.City,
		&c.Email, &c.Phone, &c.Status, &c.CreatedAt, &c.UpdatedAt, &deletedAt)
	if err != nil {
		return Client{}, err
	}
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}
	return c, nil
}

// Create inserts a client.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, in Input) (Client, error) {
	query := `
		INSERT INTO clients (id, tenant_id, name, company_name, tax_number, address, city, email, phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING ` + clientColumns
	return scanClient(r.pool.QueryRow(ctx, query, uuid.New(), tenantID, in.Name, in.CompanyName, in.TaxNumber,
		in.Address, in.City, in.Email, in.Phone, in.Status))
}

// Get returns a client including soft deleted ones.
func (r *Repository) Get(ctx context.Context, tenantID, id uuid.UUID) (Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE tenant_id = $1 AND id = $2`
	c, err := scanClient(r.pool.QueryRow(ctx, query, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}

// List returns a page of clients and the total count.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, f ListFilter, limit, offset int) ([]Client, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argNum := 2

	if !f.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argNum))
		args = append(args, string(f.Status))
		argNum++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR company_name ILIKE $%d OR tax_number ILIKE $%d OR email ILIKE $%d)", argNum, argNum, argNum, argNum))
		args = append(args, "%"+s+"%")
		argNum++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM clients WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM clients WHERE %s ORDER BY name, id LIMIT $%d OFFSET $%d",
		clientColumns, cond, argNum, argNum+1)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Update replaces the editable fields of a live client.
func (r *Repository) Update(ctx context.Context, tenantID, id uuid.UUID, in Input) (Client, error) {
	query := `
		UPDATE clients SET name = $3, company_name = $4, tax_number = $5, address = $6, city = $7,
			email = $8, phone = $9, status = $10, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING ` + clientColumns
	c, err := scanClient(r.pool.QueryRow(ctx, query, tenantID, id, in.Name, in.CompanyName, in.TaxNumber,
		in.Address, in.City, in.Email, in.Phone, in.Status))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}

// SetDeleted sets or clears deleted_at.
func (r *Repository) SetDeleted(ctx context.Context, tenantID, id uuid.UUID, deleted bool) error {
	query := `UPDATE clients SET deleted_at = NOW(), updated_at = NOW() WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	if !deleted {
		query = `UPDATE clients SET deleted_at = NULL, updated_at = NOW() WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NOT NULL`
	}
	tag, err := r.pool.Exec(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
