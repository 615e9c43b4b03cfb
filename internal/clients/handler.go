package clients

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/fatoora/internal/export"
	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

// Handler exposes client endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a client handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers client routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/export", h.export)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/restore", h.restore)
}

// Response is the JSON view of a client.
type Response struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	CompanyName string     `json:"company_name,omitempty"`
	TaxNumber   string     `json:"tax_number,omitempty"`
	Address     string     `json:"address,omitempty"`
	City        string     `json:"city,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Status      Status     `json:"status"`
	IsBusiness  bool       `json:"is_business"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func toResponse(c Client) Response {
	return Response{
		ID:          c.ID.String(),
		Name:        c.Name,
		CompanyName: c.CompanyName,
		TaxNumber:   c.TaxNumber,
		Address:     c.Address,
		City:        c.City,
		Email:       c.Email,
		Phone:       c.Phone,
		Status:      c.Status,
		IsBusiness:  c.IsOrganization(),
		CreatedAt:   c.CreatedAt,
		DeletedAt:   c.DeletedAt,
	}
}

type listResponse struct {
	Data       []Response        `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func tenantAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}

func filterFromQuery(r *http.Request) ListFilter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	includeDeleted, _ := strconv.ParseBool(q.Get("include_deleted"))
	return ListFilter{
		Search:         q.Get("search"),
		Status:         Status(q.Get("status")),
		IncludeDeleted: includeDeleted,
		Page:           page,
		PerPage:        perPage,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	items, page, err := h.service.List(r.Context(), tenantID, filterFromQuery(r))
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := listResponse{Data: make([]Response, 0, len(items)), Pagination: page}
	for _, c := range items {
		out.Data = append(out.Data, toResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Create(r.Context(), tenantID, in)
	if err != nil {
		h.logger.Warn("create client", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Update(r.Context(), tenantID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(r.Context(), tenantID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Restore(r.Context(), tenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	items, err := h.service.All(r.Context(), tenantID, filterFromQuery(r))
	if err != nil {
		h.logger.Error("export clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	rows := make([]export.ClientRow, 0, len(items))
	for _, c := range items {
		rows = append(rows, export.ClientRow{
			Name:        c.Name,
			CompanyName: c.CompanyName,
			TaxNumber:   c.TaxNumber,
			Email:       c.Email,
			Phone:       c.Phone,
			City:        c.City,
			Status:      string(c.Status),
			CreatedAt:   c.CreatedAt,
		})
	}

	var buf bytes.Buffer
	switch r.URL.Query().Get("format") {
	case "xlsx":
		err = export.WriteClientsXLSX(&buf, rows)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename=clients.xlsx")
	case "", "csv":
		err = export.WriteClientsCSV(&buf, rows)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename=clients.csv")
	default:
		httpx.RespondError(w, shared.Invalid("format", "oneof=csv xlsx"))
		return
	}
	if err != nil {
		w.Header().Del("Content-Disposition")
		h.logger.Error("serialize clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
