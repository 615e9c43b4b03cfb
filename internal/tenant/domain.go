// Package tenant authenticates API keys and scopes requests to a tenant.
package tenant

import (
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

// Tenant is one invoicing organisation.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// APIKey is a stored credential. Only the bcrypt hash of the secret is kept.
type APIKey struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Prefix     string
	SecretHash string
	RevokedAt  *time.Time
}

var (
	// ErrInvalidKey covers malformed, unknown, revoked and mismatched keys alike.
	ErrInvalidKey = shared.NewError(httpx.ErrUnauthorized, "tenant: invalid api key", "مفتاح الوصول غير صالح")
	// ErrNotFound is returned for unknown prefixes and tenants.
	ErrNotFound = shared.NewError(httpx.ErrNotFound, "tenant: not found", "الجهة غير موجودة")
)
