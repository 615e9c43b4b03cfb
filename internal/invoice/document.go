package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/fatoora/internal/clients"
	"github.com/odyssey-erp/fatoora/internal/invoice/render"
	"github.com/odyssey-erp/fatoora/internal/platform/httpx"
	"github.com/odyssey-erp/fatoora/internal/settings"
	"github.com/odyssey-erp/fatoora/internal/shared"
	"github.com/odyssey-erp/fatoora/internal/zatca"
)

// Format is a downloadable document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// QRImageSize is the edge length of the standalone QR PNG.
const QRImageSize = 256

var (
	// ErrSettingsNotReady blocks document output until the seller profile has
	// a name and VAT number.
	ErrSettingsNotReady = shared.NewError(httpx.ErrConflict, "invoice: seller profile incomplete",
		"يرجى إكمال بيانات المنشأة (الاسم والرقم الضريبي) لإصدار المستندات")
	// ErrUnknownFormat is returned for unsupported download formats.
	ErrUnknownFormat = shared.NewError(httpx.ErrValidation, "invoice: unknown document format", "صيغة المستند غير مدعومة")
	// ErrNoQR means the document carries no QR code.
	ErrNoQR = shared.NewError(httpx.ErrNotFound, "invoice: document has no qr code", "لا يحتوي هذا المستند على رمز استجابة سريعة")
)

// PDFEngine turns a laid-out document into PDF bytes.
type PDFEngine interface {
	RenderPDF(ctx context.Context, doc render.Document) ([]byte, error)
}

// DocumentCache stores rendered bodies.
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
}

// DocumentMetrics records rendering outcomes.
type DocumentMetrics interface {
	DocumentRendered(format, template string)
	QRFailed()
}

// Rendered is a finished document.
type Rendered struct {
	Body        []byte
	ContentType string
	Filename    string
	Warnings    []string
}

// Readiness tells clients whether documents can be produced.
type Readiness struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message,omitempty"`
}

// DocumentService fetches an invoice with its collaborators and renders it.
type DocumentService struct {
	repo     RepositoryPort
	clients  ClientDirectory
	settings SettingsProvider
	zatca    bool

	builder *render.Builder
	html    *render.HTMLRenderer
	pdf     PDFEngine
	engine  string

	cache   DocumentCache
	metrics DocumentMetrics
	group   singleflight.Group
	logger  *slog.Logger
}

// NewDocumentService wires rendering onto the invoice service's collaborators.
// engine names the PDF engine and is part of every cache key.
func NewDocumentService(svc *Service, html *render.HTMLRenderer, pdf PDFEngine, engine string, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		repo:     svc.repo,
		clients:  svc.clients,
		settings: svc.settings,
		zatca:    svc.zatcaEnabled,
		builder:  render.NewBuilder(nil).WithClock(svc.now),
		html:     html,
		pdf:      pdf,
		engine:   engine,
		logger:   logger,
	}
}

// WithCache enables the rendered document cache.
func (s *DocumentService) WithCache(c DocumentCache) *DocumentService {
	s.cache = c
	return s
}

// WithMetrics enables render metrics.
func (s *DocumentService) WithMetrics(m DocumentMetrics) *DocumentService {
	s.metrics = m
	return s
}

// Readiness reports whether the tenant profile can back documents.
func (s *DocumentService) Readiness(ctx context.Context, tenantID uuid.UUID) (Readiness, error) {
	st, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return Readiness{}, err
	}
	if st.Ready() {
		return Readiness{Ready: true}, nil
	}
	return Readiness{Message: ErrSettingsNotReady.UserMessage()}, nil
}

type source struct {
	inv      Invoice
	items    []Item
	client   clients.Client
	settings settings.Settings
	original string
}

func (s *DocumentService) load(ctx context.Context, tenantID, id uuid.UUID) (source, error) {
	var src source
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		inv, err := s.repo.Get(gctx, tenantID, id)
		src.inv = inv
		return err
	})
	g.Go(func() error {
		items, err := s.repo.Items(gctx, tenantID, id)
		src.items = items
		return err
	})
	g.Go(func() error {
		st, err := s.settings.Get(gctx, tenantID)
		src.settings = st
		return err
	})
	if err := g.Wait(); err != nil {
		return source{}, err
	}
	if !src.settings.Ready() {
		return source{}, ErrSettingsNotReady
	}

	client, err := s.clients.Get(ctx, tenantID, src.inv.ClientID)
	if err != nil {
		return source{}, fmt.Errorf("invoice: load client: %w", err)
	}
	src.client = client
	if src.inv.RelatedInvoiceID != nil {
		orig, err := s.repo.Get(ctx, tenantID, *src.inv.RelatedInvoiceID)
		if err != nil {
			return source{}, fmt.Errorf("invoice: load original: %w", err)
		}
		src.original = orig.Number
	}
	return src, nil
}

func (s *DocumentService) build(src source) (render.Document, error) {
	st := src.settings
	in := render.Input{
		Number:         src.inv.Number,
		Type:           src.inv.Type,
		Kind:           src.inv.Kind,
		IssueDate:      src.inv.IssueDate,
		DueDate:        src.inv.DueDate,
		TaxRate:        src.inv.TaxRate,
		Items:          Lines(src.items),
		Notes:          src.inv.Notes,
		OriginalNumber: src.original,
		Seller: render.Seller{
			Name:       st.SellerName,
			VATNumber:  st.VATNumber,
			CRNumber:   st.CRNumber,
			Address:    st.Address,
			City:       st.City,
			IBAN:       st.IBAN,
			LogoURL:    st.LogoURL,
			FooterText: st.FooterText,
		},
		Buyer: &render.Buyer{
			Name:        src.client.Name,
			CompanyName: src.client.CompanyName,
			TaxNumber:   src.client.TaxNumber,
			Address:     src.client.Address,
			City:        src.client.City,
			Email:       src.client.Email,
			Phone:       src.client.Phone,
		},
		Currency:     st.Currency,
		Location:     st.Location(),
		ZATCAEnabled: s.zatca,
	}
	if src.inv.IssueTime != nil {
		in.IssueTime = *src.inv.IssueTime
	}
	doc, err := s.builder.Build(in)
	if errors.Is(err, render.ErrSettingsIncomplete) {
		return render.Document{}, ErrSettingsNotReady
	}
	return doc, err
}

func (s *DocumentService) cacheKey(src source, format Format) string {
	return fmt.Sprintf("invoice:doc:%s:%s:%d:%d:%d:%s:%s",
		src.inv.TenantID, src.inv.ID, src.inv.UpdatedAt.UnixNano(), src.settings.UpdatedAt.UnixNano(),
		src.client.UpdatedAt.UnixNano(), format, s.engine)
}

// Render produces the invoice document in format. Identical concurrent
// requests share one render, and documents without warnings are cached until
// the invoice, client or settings change.
func (s *DocumentService) Render(ctx context.Context, tenantID, id uuid.UUID, format Format) (Rendered, error) {
	if format != FormatPDF && format != FormatHTML {
		return Rendered{}, ErrUnknownFormat
	}
	src, err := s.load(ctx, tenantID, id)
	if err != nil {
		return Rendered{}, err
	}
	out := Rendered{Filename: fileName(src.inv.Number, format), ContentType: contentType(format)}
	key := s.cacheKey(src, format)

	v, err, _ := s.group.Do(key, func() (any, error) {
		// The render is shared with every waiting caller, so it must not
		// stop when the first caller goes away. The PDF engine carries its
		// own timeout.
		ctx := context.WithoutCancel(ctx)
		if s.cache != nil {
			body, ok, err := s.cache.Get(ctx, key)
			if err != nil {
				s.logger.Warn("document cache read", slog.String("key", key), slog.Any("error", err))
			} else if ok {
				return Rendered{Body: body}, nil
			}
		}
		doc, err := s.build(src)
		if err != nil {
			return nil, err
		}
		body, err := s.renderBody(ctx, doc, format)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.DocumentRendered(string(format), string(doc.Mode.Template))
			if doc.QRError != nil {
				s.metrics.QRFailed()
			}
		}
		if doc.QRError != nil {
			s.logger.Warn("qr payload not built", slog.String("invoice_id", id.String()), slog.Any("error", doc.QRError))
		}
		if s.cache != nil && len(doc.Warnings) == 0 {
			if err := s.cache.Set(ctx, key, body); err != nil {
				s.logger.Warn("document cache write", slog.String("key", key), slog.Any("error", err))
			}
		}
		return Rendered{Body: body, Warnings: doc.Warnings}, nil
	})
	if err != nil {
		return Rendered{}, err
	}
	r := v.(Rendered)
	out.Body = r.Body
	out.Warnings = r.Warnings
	return out, nil
}

func (s *DocumentService) renderBody(ctx context.Context, doc render.Document, format Format) ([]byte, error) {
	if format == FormatHTML {
		page, err := s.html.Render(doc)
		if err != nil {
			return nil, err
		}
		return []byte(page), nil
	}
	return s.pdf.RenderPDF(ctx, doc)
}

// QR returns the PNG image and payload of the invoice QR code.
func (s *DocumentService) QR(ctx context.Context, tenantID, id uuid.UUID) ([]byte, string, error) {
	src, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.build(src)
	if err != nil {
		return nil, "", err
	}
	if doc.QRPayload == "" {
		return nil, "", ErrNoQR
	}
	png, err := zatca.PNG(doc.QRPayload, QRImageSize)
	if err != nil {
		return nil, "", err
	}
	return png, doc.QRPayload, nil
}

// Warm renders the PDF so the next download is served from cache.
func (s *DocumentService) Warm(ctx context.Context, tenantID, id uuid.UUID) error {
	_, err := s.Render(ctx, tenantID, id, FormatPDF)
	return err
}

func contentType(f Format) string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "application/pdf"
}

func fileName(number string, f Format) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' {
			return '-'
		}
		return r
	}, number)
	return name + "." + string(f)
}
