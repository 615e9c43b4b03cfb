package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/fatoora/internal/platform/db"
	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
)

// IdempotencyStore persists processed keys.
type IdempotencyStore struct {
	exec db.Executor
}

// NewIdempotencyStore constructs the store. exec may be a pool or a
// transaction; see WithExecutor.
func NewIdempotencyStore(exec db.Executor) *IdempotencyStore {
	return &IdempotencyStore{exec: exec}
}

// WithExecutor returns a store bound to exec, typically the transaction that
// performs the guarded write so the key and the write commit together.
func (s *IdempotencyStore) WithExecutor(exec db.Executor) *IdempotencyStore {
	return &IdempotencyStore{exec: exec}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = NewError(httpx.ErrDuplicate, "idempotent request already processed", "تمت معالجة هذا الطلب مسبقاً")

// CheckAndInsert ensures key uniqueness per tenant and module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, tenantID uuid.UUID, key, module string) error {
	if s == nil || s.exec == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.exec.Exec(ctx, `INSERT INTO idempotency_keys (tenant_id, key, module, created_at) VALUES ($1, $2, $3, $4)`,
		tenantID, key, module, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.exec.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
