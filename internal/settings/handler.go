package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

// Handler exposes the settings endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a settings handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.put)
}

// Response is the JSON view of Settings.
type Response struct {
	SellerName     string `json:"seller_name"`
	VATNumber      string `json:"vat_number"`
	CRNumber       string `json:"cr_number"`
	Address        string `json:"address"`
	City           string `json:"city"`
	IBAN           string `json:"iban"`
	LogoURL        string `json:"logo_url"`
	FooterText     string `json:"footer_text"`
	NumberPrefix   string `json:"number_prefix"`
	DefaultVATRate string `json:"default_vat_rate"`
	Currency       string `json:"currency"`
	Timezone       string `json:"timezone"`
	Ready          bool   `json:"ready"`
}

func toResponse(s Settings) Response {
	return Response{
		SellerName:     s.SellerName,
		VATNumber:      s.VATNumber,
		CRNumber:       s.CRNumber,
		Address:        s.Address,
		City:           s.City,
		IBAN:           s.IBAN,
		LogoURL:        s.LogoURL,
		FooterText:     s.FooterText,
		NumberPrefix:   s.NumberPrefix,
		DefaultVATRate: s.DefaultVATRate.String(),
		Currency:       s.Currency,
		Timezone:       s.Timezone,
		Ready:          s.Ready(),
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	st, err := h.service.Get(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("get settings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(st))
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	var in UpsertInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.Upsert(r.Context(), tenantID, in)
	if err != nil {
		h.logger.Warn("upsert settings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(st))
}
