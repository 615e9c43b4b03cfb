package analytics

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/fatoora/internal/analytics/svg"
	"github.com/odyssey-erp/fatoora/internal/invoice/totals"
	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

// Handler exposes the dashboard endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers analytics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.summary)
	r.Get("/trend", h.trend)
	r.Get("/trend.svg", h.trendChart)
}

type summaryResponse struct {
	Invoiced      string `json:"invoiced"`
	Collected     string `json:"collected"`
	Outstanding   string `json:"outstanding"`
	OverdueCount  int    `json:"overdue_count"`
	OverdueAmount string `json:"overdue_amount"`
	VATCollected  string `json:"vat_collected"`
	CreditNotes   string `json:"credit_notes"`
}

type trendResponse struct {
	Period   string `json:"period"`
	Invoiced string `json:"invoiced"`
	VAT      string `json:"vat"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	s, err := h.service.Summary(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("analytics summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaryResponse{
		Invoiced:      totals.Fixed(s.Invoiced),
		Collected:     totals.Fixed(s.Collected),
		Outstanding:   totals.Fixed(s.Outstanding),
		OverdueCount:  s.OverdueCount,
		OverdueAmount: totals.Fixed(s.OverdueAmount),
		VATCollected:  totals.Fixed(s.VATCollected),
		CreditNotes:   totals.Fixed(s.CreditNotes),
	})
}

func (h *Handler) loadTrend(w http.ResponseWriter, r *http.Request) ([]TrendPoint, bool) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return nil, false
	}
	months := 0
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxTrendMonths {
			httpx.RespondError(w, shared.Invalid("months", "must be between 1 and "+strconv.Itoa(MaxTrendMonths)))
			return nil, false
		}
		months = n
	}
	points, err := h.service.Trend(r.Context(), tenantID, months)
	if err != nil {
		h.logger.Error("analytics trend", slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	return points, true
}

func (h *Handler) trend(w http.ResponseWriter, r *http.Request) {
	points, ok := h.loadTrend(w, r)
	if !ok {
		return
	}
	out := make([]trendResponse, 0, len(points))
	for _, p := range points {
		out = append(out, trendResponse{Period: p.Period, Invoiced: totals.Fixed(p.Invoiced), VAT: totals.Fixed(p.VAT)})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) trendChart(w http.ResponseWriter, r *http.Request) {
	points, ok := h.loadTrend(w, r)
	if !ok {
		return
	}
	series := make([]svg.Point, 0, len(points))
	for _, p := range points {
		series = append(series, svg.Point{Label: p.Period, Value: p.Invoiced.InexactFloat64()})
	}
	body, err := svg.Trend(series, svg.Options{Title: "Invoiced per month"})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(body)
}
