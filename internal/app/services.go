package app

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/fatoora/internal/analytics"
	"github.com/odyssey-erp/fatoora/internal/clients"
	"github.com/odyssey-erp/fatoora/internal/invoice"
	"github.com/odyssey-erp/fatoora/internal/invoice/render"
	"github.com/odyssey-erp/fatoora/internal/observability"
	"github.com/odyssey-erp/fatoora/internal/settings"
	"github.com/odyssey-erp/fatoora/internal/tenant"
	"github.com/odyssey-erp/fatoora/report"
)

// Services holds the domain services shared by the API server and the worker.
type Services struct {
	Tenants   *tenant.Service
	Clients   *clients.Service
	Settings  *settings.Service
	Invoices  *invoice.Service
	Documents *invoice.DocumentService
	Analytics *analytics.Service
	Gotenberg *report.Client
}

// NewServices wires repositories, caches and renderers. enqueuer may be nil in
// processes that never issue invoices.
func NewServices(cfg *Config, pool *pgxpool.Pool, rdb *redis.Client, metrics *observability.Metrics, enqueuer invoice.Enqueuer, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tenants := tenant.NewService(tenant.NewRepository(pool), rdb, logger)
	clientSvc := clients.NewService(clients.NewRepository(pool), logger)
	settingsSvc := settings.NewService(settings.NewRepository(pool), logger)
	analyticsSvc := analytics.NewService(analytics.NewRepository(pool), analytics.NewCache(rdb, cfg.AnalyticsCacheTTL), logger)

	invoices := invoice.NewService(invoice.NewRepository(pool), clientSvc, settingsSvc, logger).
		WithZATCA(cfg.ZATCAEnabled).
		WithInvalidators(analyticsSvc)
	if enqueuer != nil {
		invoices = invoices.WithEnqueuer(enqueuer)
	}

	html, err := render.NewHTMLRenderer()
	if err != nil {
		return nil, fmt.Errorf("app: html renderer: %w", err)
	}
	var (
		engine    invoice.PDFEngine
		gotenberg *report.Client
	)
	switch cfg.PDFEngine {
	case PDFEngineGotenberg:
		gotenberg = report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
		g, err := render.NewGotenbergRenderer(html, gotenberg)
		if err != nil {
			return nil, err
		}
		engine = g
	default:
		engine = render.NewPDFRenderer("fatoora")
	}
	documents := invoice.NewDocumentService(invoices, html, engine, cfg.PDFEngine, logger).
		WithCache(invoice.NewRedisDocumentCache(rdb, cfg.DocumentCacheTTL))
	if metrics != nil {
		documents = documents.WithMetrics(metrics)
	}

	return &Services{
		Tenants:   tenants,
		Clients:   clientSvc,
		Settings:  settingsSvc,
		Invoices:  invoices,
		Documents: documents,
		Analytics: analyticsSvc,
		Gotenberg: gotenberg,
	}, nil
}
