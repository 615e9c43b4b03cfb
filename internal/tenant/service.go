package tenant

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// KeyCacheTTL bounds how long a verified key skips the bcrypt check.
const KeyCacheTTL = 5 * time.Minute

const (
	keyCachePrefix = "tenant:apikey:"
	prefixBytes    = 6
	secretBytes    = 24
)

// RepositoryPort describes the persistence the service needs.
type RepositoryPort interface {
	FindKey(ctx context.Context, prefix string) (APIKey, error)
	TouchKey(ctx context.Context, id uuid.UUID, at time.Time) error
	CreateTenant(ctx context.Context, name string, key APIKey) (Tenant, error)
	ActiveTenants(ctx context.Context) ([]uuid.UUID, error)
}

// Service verifies API keys of the form "<prefix>.<secret>".
type Service struct {
	repo   RepositoryPort
	cache  *redis.Client
	logger *slog.Logger
	now    func() time.Time
	cost   int
}

// NewService constructs a Service. A nil cache disables key caching.
func NewService(repo RepositoryPort, cache *redis.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now, cost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the hashing cost used for new keys.
func (s *Service) WithBcryptCost(cost int) *Service {
	s.cost = cost
	return s
}

func cacheKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return keyCachePrefix + hex.EncodeToString(sum[:])
}

// Authenticate resolves the tenant owning raw.
func (s *Service) Authenticate(ctx context.Context, raw string) (uuid.UUID, error) {
	prefix, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || prefix == "" || secret == "" {
		return uuid.Nil, ErrInvalidKey
	}
	ck := cacheKey(raw)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, ck).Result()
		switch {
		case err == nil:
			if id, perr := uuid.Parse(cached); perr == nil {
				return id, nil
			}
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("api key cache read failed", slog.Any("error", err))
		}
	}

	key, err := s.repo.FindKey(ctx, prefix)
	if errors.Is(err, ErrNotFound) {
		return uuid.Nil, ErrInvalidKey
	}
	if err != nil {
		return uuid.Nil, err
	}
	if key.RevokedAt != nil {
		return uuid.Nil, ErrInvalidKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
		return uuid.Nil, ErrInvalidKey
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ck, key.TenantID.String(), KeyCacheTTL).Err(); err != nil {
			s.logger.Warn("api key cache write failed", slog.Any("error", err))
		}
	}
	if err := s.repo.TouchKey(ctx, key.ID, s.now().UTC()); err != nil {
		s.logger.Warn("api key touch failed", slog.String("prefix", prefix), slog.Any("error", err))
	}
	return key.TenantID, nil
}

// Register creates a tenant and returns it with its plaintext API key. The
// key is not recoverable afterwards.
func (s *Service) Register(ctx context.Context, name string) (Tenant, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tenant{}, "", errors.New("tenant: name required")
	}
	prefix, err := randomToken(prefixBytes, hex.EncodeToString)
	if err != nil {
		return Tenant{}, "", err
	}
	secret, err := randomToken(secretBytes, base64.RawURLEncoding.EncodeToString)
	if err != nil {
		return Tenant{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return Tenant{}, "", fmt.Errorf("tenant: hash secret: %w", err)
	}
	t, err := s.repo.CreateTenant(ctx, name, APIKey{Prefix: prefix, SecretHash: string(hash)})
	if err != nil {
		return Tenant{}, "", err
	}
	s.logger.Info("tenant registered", slog.String("tenant_id", t.ID.String()), slog.String("prefix", prefix))
	return t, prefix + "." + secret, nil
}

// ActiveTenants lists tenants eligible for background work.
func (s *Service) ActiveTenants(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ActiveTenants(ctx)
}

func randomToken(n int, encode func([]byte) string) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("tenant: random: %w", err)
	}
	return encode(buf), nil
}
