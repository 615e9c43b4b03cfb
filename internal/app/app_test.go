package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/fatoora/internal/observability"
	"github.com/odyssey-erp/fatoora/internal/tenant"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.ZATCAEnabled)
	assert.Equal(t, PDFEngineMaroto, cfg.PDFEngine)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ZATCA_ENABLED", "false")
	t.Setenv("PDF_ENGINE", "gotenberg")
	t.Setenv("DOCUMENT_CACHE_TTL", "1h")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.ZATCAEnabled)
	assert.Equal(t, PDFEngineGotenberg, cfg.PDFEngine)
	assert.Equal(t, "1h0m0s", cfg.DocumentCacheTTL.String())

	t.Setenv("PDF_ENGINE", "wkhtml")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{PDFEngine: PDFEngineGotenberg, RateLimitPerMinute: 10}
	assert.Error(t, cfg.Validate())
	cfg.GotenbergURL = "http://gotenberg:3000"
	assert.NoError(t, cfg.Validate())
	cfg.RateLimitPerMinute = 0
	assert.Error(t, cfg.Validate())
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn"})
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
}

type staticAuth struct{ id uuid.UUID }

func (s staticAuth) Authenticate(_ context.Context, raw string) (uuid.UUID, error) {
	if raw == "good.key" {
		return s.id, nil
	}
	return uuid.Nil, tenant.ErrInvalidKey
}

func TestRouter(t *testing.T) {
	metrics := observability.NewMetrics()
	h := NewRouter(RouterParams{
		Config:        &Config{RateLimitPerMinute: 100},
		Metrics:       metrics,
		Authenticator: staticAuth{id: uuid.New()},
		ReadyChecks: map[string]Check{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		},
	})

	serve := func(method, path string, headers ...string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		for i := 0; i+1 < len(headers); i += 2 {
			req.Header.Set(headers[i], headers[i+1])
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = serve(http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"postgres":"up","redis":"down"}`, rec.Body.String())

	rec = serve(http.MethodGet, "/api/v1/invoices")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = serve(http.MethodGet, "/api/v1/invoices", "X-API-Key", "bad.key")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(http.MethodGet, "/api/v1/whoami", "Authorization", "Bearer good.key")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tenant_id"`)

	rec = serve(http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fatoora_http_requests_total{code="200",route="/healthz"}`)
}
