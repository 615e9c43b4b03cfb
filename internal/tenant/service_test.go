package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/fatoora/internal/shared"
)

type memoryRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]Tenant
	keys    map[string]APIKey
	finds   int
	touched int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tenants: make(map[uuid.UUID]Tenant), keys: make(map[string]APIKey)}
}

func (m *memoryRepo) FindKey(_ context.Context, prefix string) (APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	k, ok := m.keys[prefix]
	if !ok || !m.tenants[k.TenantID].Active {
		return APIKey{}, ErrNotFound
	}
	return k, nil
}

func (m *memoryRepo) TouchKey(context.Context, uuid.UUID, time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched++
	return nil
}

func (m *memoryRepo) CreateTenant(_ context.Context, name string, key APIKey) (Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := Tenant{ID: uuid.New(), Name: name, Active: true, CreatedAt: time.Now()}
	m.tenants[t.ID] = t
	key.ID = uuid.New()
	key.TenantID = t.ID
	m.keys[key.Prefix] = key
	return t, nil
}

func (m *memoryRepo) ActiveTenants(context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for id, t := range m.tenants {
		if t.Active {
			out = append(out, id)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepo()
	return NewService(repo, client, nil).WithBcryptCost(bcrypt.MinCost), repo, mr
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, repo, mr := newTestService(t)
	ctx := context.Background()

	tn, raw, err := svc.Register(ctx, "  Acme Trading ")
	require.NoError(t, err)
	assert.Equal(t, "Acme Trading", tn.Name)
	prefix, secret, ok := strings.Cut(raw, ".")
	require.True(t, ok)
	assert.Len(t, prefix, 12)
	assert.NotContains(t, repo.keys[prefix].SecretHash, secret)

	id, err := svc.Authenticate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, id)
	assert.Equal(t, 1, repo.finds)

	ttl := mr.TTL(cacheKey(raw))
	assert.Equal(t, KeyCacheTTL, ttl)
	assert.NotContains(t, strings.Join(mr.Keys(), ","), secret)

	id, err = svc.Authenticate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, id)
	assert.Equal(t, 1, repo.finds, "second lookup served from cache")

	mr.FastForward(KeyCacheTTL + time.Second)
	_, err = svc.Authenticate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.finds)
}

func TestAuthenticateRejects(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	_, raw, err := svc.Register(ctx, "Acme")
	require.NoError(t, err)
	prefix, _, _ := strings.Cut(raw, ".")

	for _, bad := range []string{"", "nodot", ".secret", prefix + ".", prefix + ".wrong", "unknown.secret"} {
		_, err := svc.Authenticate(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}

	k := repo.keys[prefix]
	now := time.Now()
	k.RevokedAt = &now
	repo.keys[prefix] = k
	_, err = svc.Authenticate(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, _, err = svc.Register(ctx, " ")
	assert.Error(t, err)
}

func TestAuthenticateWithoutCache(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil).WithBcryptCost(bcrypt.MinCost)
	_, raw, err := svc.Register(context.Background(), "Acme")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := svc.Authenticate(context.Background(), raw)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, repo.finds)
	assert.Equal(t, 2, repo.touched)

	ids, err := svc.ActiveTenants(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestMiddleware(t *testing.T) {
	svc, _, _ := newTestService(t)
	tn, raw, err := svc.Register(context.Background(), "Acme")
	require.NoError(t, err)

	var seen uuid.UUID
	h := Middleware(svc, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.TenantFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, tn.ID, seen)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set(HeaderAPIKey, raw)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Bearer bogus.key")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
