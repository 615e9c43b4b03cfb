// Package render lays out invoice documents and turns them into HTML or PDF.
package render

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/fatoora/internal/hijri"
	"github.com/odyssey-erp/fatoora/internal/invoice/taxrule"
	"github.com/odyssey-erp/fatoora/internal/invoice/totals"
	"github.com/odyssey-erp/fatoora/internal/zatca"
)

// ErrSettingsIncomplete is returned when the seller profile lacks a name or
// VAT number. No document is produced in that case.
var ErrSettingsIncomplete = errors.New("render: seller profile incomplete")

// QRWarning is shown in place of the QR code when it cannot be built.
const QRWarning = "يرجى إكمال بيانات المنشأة لإظهار رمز الاستجابة السريعة"

// CashCustomer labels a simplified invoice with no identified buyer.
const CashCustomer = "عميل نقدي"

const dateLayout = "2006-01-02"

// HijriConverter formats the Hijri equivalent of a date.
type HijriConverter interface {
	Format(t time.Time) string
}

// Seller is the tenant's billing profile.
type Seller struct {
	Name       string
	VATNumber  string
	CRNumber   string
	Address    string
	City       string
	IBAN       string
	LogoURL    string
	FooterText string
}

// Ready reports whether the profile can back a tax document.
func (s Seller) Ready() bool {
	return strings.TrimSpace(s.Name) != "" && strings.TrimSpace(s.VATNumber) != ""
}

// Buyer identifies the client. A nil Buyer is a cash sale.
type Buyer struct {
	Name        string
	CompanyName string
	TaxNumber   string
	Address     string
	City        string
	Email       string
	Phone       string
}

// Input is everything needed to lay out one document.
type Input struct {
	Number         string
	Type           taxrule.InvoiceType
	Kind           taxrule.DocumentKind
	IssueDate      time.Time
	IssueTime      string
	DueDate        time.Time
	TaxRate        decimal.Decimal
	Items          []totals.Line
	Notes          string
	OriginalNumber string
	Seller         Seller
	Buyer          *Buyer
	Currency       string
	Location       *time.Location
	ZATCAEnabled   bool
}

// Header is the top block of the document.
type Header struct {
	Title          string
	TitleAR        string
	Number         string
	IssueDate      string
	IssueDateHijri string
	IssueTime      string
	DueDate        string
	DueDateHijri   string
	IssuedAt       time.Time
}

// Party is a seller or buyer block.
type Party struct {
	Name        string
	CompanyName string
	VATNumber   string
	CRNumber    string
	Address     string
	City        string
	Email       string
	Phone       string
	LogoURL     string
}

// BuyerBlock adds presentation flags to the buyer party.
type BuyerBlock struct {
	Party
	Cash     bool
	Optional bool
	ShowVAT  bool
}

// Columns controls which line table columns are visible.
type Columns struct {
	TaxRate        bool
	VAT            bool
	InclusivePrice bool
}

// LineRow is one formatted line of the item table.
type LineRow struct {
	Index       int
	Description string
	Quantity    string
	UnitPrice   string
	Net         string
	TaxRate     string
	VAT         string
	Total       string
}

// TotalsBlock holds formatted invoice totals.
type TotalsBlock struct {
	Subtotal string
	VAT      string
	Total    string
	TaxRate  string
	ShowVAT  bool
}

// Footer is the fixed bottom block.
type Footer struct {
	Text     string
	IBAN     string
	CRNumber string
}

// Document is a laid-out invoice ready for an output renderer.
type Document struct {
	Mode          taxrule.Mode
	Header        Header
	Seller        Party
	Buyer         BuyerBlock
	Columns       Columns
	Lines         []LineRow
	Totals        TotalsBlock
	Amounts       totals.Totals
	Notes         string
	Footer        Footer
	CreditNoteRef string
	Currency      string
	QRPayload     string
	// QRError is set when the mode asks for a QR code that could not be built.
	QRError  error
	Warnings []string
}

// Builder lays out documents.
type Builder struct {
	hijri HijriConverter
	now   func() time.Time
}

// NewBuilder constructs a Builder. A nil converter selects the tabular calendar.
func NewBuilder(conv HijriConverter) *Builder {
	if conv == nil {
		conv = hijri.Tabular{}
	}
	return &Builder{hijri: conv, now: time.Now}
}

// WithClock overrides the clock used when the invoice has no issue time.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

var defaultBuilder = NewBuilder(nil)

// Build lays out in with the default builder.
func Build(in Input) (Document, error) {
	return defaultBuilder.Build(in)
}

// Build resolves the tax mode, computes totals, builds the QR payload and
// formats every block.
func (b *Builder) Build(in Input) (Document, error) {
	if !in.Seller.Ready() {
		return Document{}, ErrSettingsIncomplete
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	mode := taxrule.Resolve(taxrule.Input{
		Type:           in.Type,
		Kind:           in.Kind,
		BuyerTaxNumber: buyerTaxNumber(in.Buyer),
		ZATCAEnabled:   in.ZATCAEnabled,
	})
	amounts := totals.Compute(in.Items, in.TaxRate, mode.ShowsTax, mode.Negates())
	money := newMoneyFormatter(in.Currency)

	issuedAt, err := b.issueInstant(in.IssueDate, in.IssueTime, loc)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		Mode:     mode,
		Amounts:  amounts,
		Currency: money.code,
		Notes:    strings.TrimSpace(in.Notes),
		Header: Header{
			Title:          mode.Title,
			TitleAR:        mode.TitleAR,
			Number:         in.Number,
			IssueDate:      issuedAt.Format(dateLayout),
			IssueDateHijri: b.hijri.Format(issuedAt),
			IssueTime:      issuedAt.Format("15:04:05"),
			IssuedAt:       issuedAt,
		},
		Seller: Party{
			Name:      in.Seller.Name,
			VATNumber: in.Seller.VATNumber,
			CRNumber:  in.Seller.CRNumber,
			Address:   in.Seller.Address,
			City:      in.Seller.City,
			LogoURL:   in.Seller.LogoURL,
		},
		Buyer:   buyerBlock(in.Buyer, mode),
		Columns: columnsFor(mode),
		Footer: Footer{
			Text:     in.Seller.FooterText,
			IBAN:     in.Seller.IBAN,
			CRNumber: in.Seller.CRNumber,
		},
	}
	if !in.DueDate.IsZero() {
		due := in.DueDate.In(loc)
		doc.Header.DueDate = due.Format(dateLayout)
		doc.Header.DueDateHijri = b.hijri.Format(due)
	}
	if in.Kind == taxrule.KindCreditNote {
		doc.CreditNoteRef = in.OriginalNumber
	}

	// Amounts stay magnitudes; credit notes display every money value negated.
	signed := func(d decimal.Decimal) decimal.Decimal {
		if mode.Negates() {
			return d.Neg()
		}
		return d
	}
	rate := formatRate(in.TaxRate)
	doc.Lines = make([]LineRow, len(in.Items))
	for i, item := range in.Items {
		la := amounts.Lines[i]
		unit := item.UnitPrice
		if doc.Columns.InclusivePrice {
			unit = la.UnitPriceInclusive
		}
		doc.Lines[i] = LineRow{
			Index:       i + 1,
			Description: item.Description,
			Quantity:    formatQuantity(item.Quantity),
			UnitPrice:   money.Format(signed(unit)),
			Net:         money.Format(signed(la.Net)),
			TaxRate:     rate,
			VAT:         money.Format(signed(la.VAT)),
			Total:       money.Format(la.Total),
		}
	}
	doc.Totals = TotalsBlock{
		Subtotal: money.Format(signed(amounts.Subtotal)),
		VAT:      money.Format(signed(amounts.VAT)),
		Total:    money.Format(amounts.Total),
		TaxRate:  rate,
		ShowVAT:  mode.ShowsTax,
	}

	if mode.ShowsQR {
		fields := zatca.FieldsFor(in.Seller.Name, in.Seller.VATNumber, issuedAt, amounts.Total, amounts.VAT)
		payload, err := zatca.BuildQR(fields)
		if err != nil {
			doc.QRError = err
			doc.Warnings = append(doc.Warnings, QRWarning)
		} else {
			doc.QRPayload = payload
		}
	}
	return doc, nil
}

// issueInstant combines the issue date with the stored time of day, falling
// back to the current wall clock in loc.
func (b *Builder) issueInstant(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	y, m, d := date.Date()
	clock = strings.TrimSpace(clock)
	if clock == "" {
		now := b.now().In(loc)
		return time.Date(y, m, d, now.Hour(), now.Minute(), now.Second(), 0, loc), nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("render: invalid issue time %q", clock)
}

func buyerTaxNumber(b *Buyer) string {
	if b == nil {
		return ""
	}
	return b.TaxNumber
}

func buyerBlock(b *Buyer, mode taxrule.Mode) BuyerBlock {
	block := BuyerBlock{
		Optional: mode.BaseTemplate == taxrule.VariantSimplifiedTax,
		ShowVAT:  mode.ShowsBuyerVAT,
	}
	if b == nil || strings.TrimSpace(b.Name) == "" {
		block.Cash = true
		block.Name = CashCustomer
		return block
	}
	block.Party = Party{
		Name:        b.Name,
		CompanyName: b.CompanyName,
		Address:     b.Address,
		City:        b.City,
		Email:       b.Email,
		Phone:       b.Phone,
	}
	if block.ShowVAT {
		block.VATNumber = b.TaxNumber
	}
	return block
}

func columnsFor(mode taxrule.Mode) Columns {
	if !mode.ShowsTax {
		return Columns{}
	}
	switch mode.BaseTemplate {
	case taxrule.VariantSimplifiedTax:
		return Columns{InclusivePrice: true}
	default:
		return Columns{TaxRate: true, VAT: true}
	}
}
