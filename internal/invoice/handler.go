package invoice

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/fatoora/internal/export"
	"github.com/odyssey-erp/fatoora/internal/invoice/taxrule"
	"github.com/odyssey-erp/fatoora/internal/invoice/totals"
	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/shared"
)

// Handler exposes invoice endpoints.
type Handler struct {
	service   *Service
	documents *DocumentService
	logger    *slog.Logger
}

// NewHandler creates an invoice handler.
func NewHandler(service *Service, documents *DocumentService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, documents: documents, logger: logger}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/export", h.export)
	r.Get("/readiness", h.readiness)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
		r.Delete("/", h.delete)
		r.Put("/items", h.replaceItems)
		r.Post("/status", h.updateStatus)
		r.Post("/credit-notes", h.createCreditNote)
		r.Get("/document", h.document)
		r.Get("/qr", h.qr)
	})
}

// ItemResponse is the JSON view of a line.
type ItemResponse struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

// Response is the JSON view of an invoice.
type Response struct {
	ID               string         `json:"id"`
	Number           string         `json:"number"`
	Type             string         `json:"type"`
	Kind             string         `json:"kind"`
	RelatedInvoiceID *string        `json:"related_invoice_id,omitempty"`
	OriginalNumber   string         `json:"original_number,omitempty"`
	ClientID         string         `json:"client_id"`
	ClientName       string         `json:"client_name,omitempty"`
	IssueDate        string         `json:"issue_date"`
	IssueTime        *string        `json:"issue_time,omitempty"`
	DueDate          string         `json:"due_date"`
	Subtotal         string         `json:"subtotal"`
	TaxRate          string         `json:"tax_rate"`
	VATAmount        string         `json:"vat_amount"`
	TotalAmount      string         `json:"total_amount"`
	SignedTotal      string         `json:"signed_total"`
	Status           Status         `json:"status"`
	DisplayStatus    Status         `json:"display_status"`
	Notes            string         `json:"notes,omitempty"`
	Items            []ItemResponse `json:"items,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func toResponse(inv Invoice, now time.Time) Response {
	out := Response{
		ID:            inv.ID.String(),
		Number:        inv.Number,
		Type:          string(inv.Type),
		Kind:          string(inv.Kind),
		ClientID:      inv.ClientID.String(),
		IssueDate:     inv.IssueDate.Format(dateLayout),
		IssueTime:     inv.IssueTime,
		DueDate:       inv.DueDate.Format(dateLayout),
		Subtotal:      totals.Fixed(inv.Subtotal),
		TaxRate:       inv.TaxRate.String(),
		VATAmount:     totals.Fixed(inv.VATAmount),
		TotalAmount:   totals.Fixed(inv.TotalAmount),
		SignedTotal:   totals.Fixed(inv.SignedTotal()),
		Status:        inv.Status,
		DisplayStatus: inv.DisplayStatus(now),
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	if inv.RelatedInvoiceID != nil {
		id := inv.RelatedInvoiceID.String()
		out.RelatedInvoiceID = &id
	}
	return out
}

func withItems(r Response, items []Item) Response {
	r.Items = make([]ItemResponse, 0, len(items))
	for _, it := range items {
		r.Items = append(r.Items, ItemResponse{
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   totals.Price(it.UnitPrice),
			Total:       totals.Fixed(it.Total),
		})
	}
	return r
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

func filterFromQuery(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	f := ListFilter{
		Search:  q.Get("search"),
		Sort:    q.Get("sort"),
		Page:    page,
		PerPage: perPage,
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if Status(raw) == StatusOverdue {
			st, ok = StatusOverdue, true
		}
		if !ok {
			return ListFilter{}, shared.Invalid("status", "oneof=draft sent paid cancelled overdue")
		}
		f.Status = st
	}
	if raw := q.Get("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return ListFilter{}, shared.Invalid("client_id", "uuid")
		}
		f.ClientID = &id
	}
	if raw := q.Get("type"); raw != "" {
		t, err := taxrule.ParseInvoiceType(raw)
		if err != nil {
			return ListFilter{}, shared.Invalid("type", "oneof=standard_tax simplified_tax non_tax")
		}
		f.Type = t
	}
	if raw := q.Get("kind"); raw != "" {
		k, err := taxrule.ParseDocumentKind(raw)
		if err != nil {
			return ListFilter{}, shared.Invalid("kind", "oneof=invoice credit_note")
		}
		f.Kind = k
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return ListFilter{}, shared.Invalid(p.name, "datetime")
		}
		*p.dst = &t
	}
	if f.Sort != "" {
		if _, ok := SortColumns[f.Sort]; !ok {
			return ListFilter{}, shared.Invalid("sort", "oneof")
		}
	}
	return f, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	f, err := filterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, page, err := h.service.List(r.Context(), tenantID, f)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	now := h.service.Now()
	out := listResponse{Data: make([]Response, 0, len(rows)), Pagination: page}
	for _, row := range rows {
		resp := toResponse(row.Invoice, now)
		resp.ClientName = row.ClientName
		resp.OriginalNumber = row.OriginalNumber
		out.Data = append(out.Data, resp)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.IdempotencyKey = r.Header.Get("Idempotency-Key")
	inv, err := h.service.Create(r.Context(), tenantID, in)
	if err != nil {
		h.logger.Warn("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(inv, h.service.Now()))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	inv, items, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, withItems(toResponse(inv, h.service.Now()), items))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Update(r.Context(), tenantID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv, h.service.Now()))
}

func (h *Handler) replaceItems(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	var in ReplaceItemsInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.ReplaceItems(r.Context(), tenantID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv, h.service.Now()))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	var in StatusInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.UpdateStatus(r.Context(), tenantID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv, h.service.Now()))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), tenantID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createCreditNote(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	var in CreditNoteInput
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	in.IdempotencyKey = r.Header.Get("Idempotency-Key")
	inv, err := h.service.CreateCreditNote(r.Context(), tenantID, id, in)
	if err != nil {
		h.logger.Warn("create credit note", slog.String("original_id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(inv, h.service.Now()))
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	rd, err := h.documents.Readiness(r.Context(), tenantID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rd)
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	format := Format(r.URL.Query().Get("format"))
	if format == "" {
		format = FormatPDF
	}
	doc, err := h.documents.Render(r.Context(), tenantID, id, format)
	if err != nil {
		h.logger.Warn("render document", slog.String("invoice_id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	if format == FormatPDF {
		w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	}
	if len(doc.Warnings) > 0 {
		w.Header().Set("X-Document-Warning", strconv.Itoa(len(doc.Warnings)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

func (h *Handler) qr(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := tenantAndID(w, r)
	if !ok {
		return
	}
	png, payload, err := h.documents.QR(r.Context(), tenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "payload" {
		httpx.JSON(w, http.StatusOK, map[string]string{"payload": payload})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTenantRequired)
		return
	}
	f, err := filterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.ExportRows(r.Context(), tenantID, f)
	if err != nil {
		h.logger.Error("export invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	var buf bytes.Buffer
	switch r.URL.Query().Get("format") {
	case "xlsx":
		err = export.WriteInvoicesXLSX(&buf, rows)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename=invoices.xlsx")
	case "", "csv":
		err = export.WriteInvoicesCSV(&buf, rows)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename=invoices.csv")
	default:
		httpx.RespondError(w, shared.Invalid("format", "oneof=csv xlsx"))
		return
	}
	if err != nil {
		w.Header().Del("Content-Disposition")
		h.logger.Error("serialize invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
