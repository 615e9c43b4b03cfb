package tenant

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

// Authenticator resolves a raw API key to its tenant.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (uuid.UUID, error)
}

// HeaderAPIKey is accepted as an alternative to a bearer token.
const HeaderAPIKey = "X-API-Key"

// Middleware rejects requests without a valid API key and stores the tenant
// in the request context.
func Middleware(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractKey(r)
			if raw == "" {
				httpx.RespondError(w, ErrInvalidKey)
				return
			}
			tenantID, err := auth.Authenticate(r.Context(), raw)
			if err != nil {
				logger.Debug("api key rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithTenant(r.Context(), tenantID)))
		})
	}
}

func extractKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(HeaderAPIKey))
}
