package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/fatoora/internal/analytics"
	"github.com/odyssey-erp/fatoora/internal/clients"
	"github.com/odyssey-erp/fatoora/internal/invoice"
	"github.com/odyssey-erp/fatoora/internal/observability"
	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/settings"
	"github.com/odyssey-erp/fatoora/internal/shared"
	"github.com/odyssey-erp/fatoora/internal/tenant"
	"github.com/odyssey-erp/fatoora/jobs"
)

// Check probes one dependency for /readyz.
type Check func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Metrics          *observability.Metrics
	Authenticator    tenant.Authenticator
	ClientsHandler   *clients.Handler
	SettingsHandler  *settings.Handler
	InvoiceHandler   *invoice.Handler
	AnalyticsHandler *analytics.Handler
	JobHandler       *jobs.Handler
	ReadyChecks      map[string]Check
}

// NewRouterParams builds handlers from services.
func NewRouterParams(cfg *Config, svc *Services, metrics *observability.Metrics, jobHandler *jobs.Handler, logger *slog.Logger) RouterParams {
	return RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		Authenticator:    svc.Tenants,
		ClientsHandler:   clients.NewHandler(svc.Clients, logger),
		SettingsHandler:  settings.NewHandler(svc.Settings, logger),
		InvoiceHandler:   invoice.NewHandler(svc.Invoices, svc.Documents, logger),
		AnalyticsHandler: analytics.NewHandler(svc.Analytics, logger),
		JobHandler:       jobHandler,
	}
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(params.ReadyChecks, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(tenant.Middleware(params.Authenticator, params.Logger))
		r.Get("/whoami", whoami)
		if params.ClientsHandler != nil {
			r.Route("/clients", params.ClientsHandler.MountRoutes)
		}
		if params.SettingsHandler != nil {
			r.Route("/settings", params.SettingsHandler.MountRoutes)
		}
		if params.InvoiceHandler != nil {
			r.Route("/invoices", params.InvoiceHandler.MountRoutes)
		}
		if params.AnalyticsHandler != nil {
			r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "")
	})
	return r
}

func whoami(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"tenant_id": tenantID.String()})
}

func readyHandler(checks map[string]Check, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		failed := make(map[string]bool, len(checks))
		type outcome struct {
			name string
			err  error
		}
		outcomes := make(chan outcome, len(checks))
		var g errgroup.Group
		for name, check := range checks {
			g.Go(func() error {
				outcomes <- outcome{name: name, err: check(ctx)}
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)
		for o := range outcomes {
			if o.err != nil {
				logger.Warn("readiness check failed", slog.String("check", o.name), slog.Any("error", o.err))
				results[o.name] = "down"
				failed[o.name] = true
				continue
			}
			results[o.name] = "up"
		}
		status := http.StatusOK
		if len(failed) > 0 {
			status = http.StatusServiceUnavailable
		}
		httpx.JSON(w, status, results)
	}
}
