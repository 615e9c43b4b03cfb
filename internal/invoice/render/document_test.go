package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/fatoora/internal/invoice/taxrule"
	"github.com/odyssey-erp/fatoora/internal/invoice/totals"
	"github.com/odyssey-erp/fatoora/internal/zatca"
)

func fixedClock() time.Time {
	return time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
}

func sampleInput() Input {
	return Input{
		Number:    "INV-000001",
		Type:      taxrule.StandardTax,
		Kind:      taxrule.KindInvoice,
		IssueDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IssueTime: "10:00:00",
		DueDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		TaxRate:   decimal.NewFromInt(15),
		Items: []totals.Line{
			{Description: "Consulting", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)},
			{Description: "Support", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
		Seller: Seller{
			Name:       "Acme",
			VATNumber:  "300000000000003",
			CRNumber:   "1010010000",
			IBAN:       "SA0380000000608010167519",
			FooterText: "Thank you",
		},
		Buyer:        &Buyer{Name: "Client Co", TaxNumber: "311111111111113", City: "Riyadh"},
		Currency:     "SAR",
		Location:     time.UTC,
		ZATCAEnabled: true,
	}
}

func newTestBuilder() *Builder {
	return NewBuilder(nil).WithClock(fixedClock)
}

func TestBuildStandardTax(t *testing.T) {
	doc, err := newTestBuilder().Build(sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "Tax Invoice", doc.Header.Title)
	assert.Equal(t, "فاتورة ضريبية", doc.Header.TitleAR)
	assert.Equal(t, "2024-01-01", doc.Header.IssueDate)
	assert.Equal(t, "1445/06/19", doc.Header.IssueDateHijri)
	assert.Equal(t, "2024-01-31", doc.Header.DueDate)
	assert.Equal(t, Columns{TaxRate: true, VAT: true}, doc.Columns)
	assert.True(t, doc.Buyer.ShowVAT)
	assert.Equal(t, "311111111111113", doc.Buyer.VATNumber)

	assert.Equal(t, "SAR 200.00", doc.Totals.Subtotal)
	assert.Equal(t, "SAR 30.00", doc.Totals.VAT)
	assert.Equal(t, "SAR 230.00", doc.Totals.Total)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "SAR 115.00", doc.Lines[0].Total)
	assert.Equal(t, "15%", doc.Lines[0].TaxRate)

	assert.Equal(t, "AQRBY21lAg8zMDAwMDAwMDAwMDAwMDMDFDIwMjQtMDEtMDFUMTA6MDA6MDBaBAYyMzAuMDAFBTMwLjAw", doc.QRPayload)
	assert.Empty(t, doc.Warnings)
	assert.Equal(t, "Thank you", doc.Footer.Text)
}

func TestBuildSimplifiedCashSale(t *testing.T) {
	in := sampleInput()
	in.Type = taxrule.SimplifiedTax
	in.Buyer = nil

	doc, err := newTestBuilder().Build(in)
	require.NoError(t, err)
	assert.True(t, doc.Buyer.Cash)
	assert.True(t, doc.Buyer.Optional)
	assert.Equal(t, CashCustomer, doc.Buyer.Name)
	assert.False(t, doc.Buyer.ShowVAT)
	assert.Equal(t, Columns{InclusivePrice: true}, doc.Columns)
	assert.Equal(t, "SAR 57.50", doc.Lines[0].UnitPrice)
	assert.NotEmpty(t, doc.QRPayload)
}

func TestBuildNonTax(t *testing.T) {
	in := sampleInput()
	in.Type = taxrule.NonTax

	doc, err := newTestBuilder().Build(in)
	require.NoError(t, err)
	assert.Equal(t, Columns{}, doc.Columns)
	assert.False(t, doc.Buyer.ShowVAT)
	assert.Empty(t, doc.Buyer.VATNumber)
	assert.Empty(t, doc.QRPayload)
	assert.Equal(t, "SAR 200.00", doc.Totals.Total)
	assert.False(t, doc.Totals.ShowVAT)
}

func TestBuildCreditNote(t *testing.T) {
	in := sampleInput()
	in.Kind = taxrule.KindCreditNote
	in.OriginalNumber = "INV-000001"
	in.Number = "INV-000002"

	doc, err := newTestBuilder().Build(in)
	require.NoError(t, err)
	assert.Equal(t, "Credit Note", doc.Header.Title)
	assert.Equal(t, "إشعار دائن", doc.Header.TitleAR)
	assert.Equal(t, "INV-000001", doc.CreditNoteRef)
	assert.Equal(t, "SAR -200.00", doc.Totals.Subtotal)
	assert.Equal(t, "SAR -30.00", doc.Totals.VAT)
	assert.Equal(t, "SAR -230.00", doc.Totals.Total)
	assert.Equal(t, "SAR -115.00", doc.Lines[0].Total)
	assert.True(t, doc.Amounts.Subtotal.IsPositive())

	records, err := zatca.DecodeQR(doc.QRPayload)
	require.NoError(t, err)
	total, _ := zatca.Lookup(records, zatca.TagInvoiceTotal)
	assert.Equal(t, "-230.00", total)
}

func TestBuildCreditNoteNegatesEveryAmount(t *testing.T) {
	in := sampleInput()
	in.Kind = taxrule.KindCreditNote
	in.OriginalNumber = "INV-000001"
	in.Items = []totals.Line{{Description: "Consulting", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)}}

	doc, err := newTestBuilder().Build(in)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	line := doc.Lines[0]
	assert.Equal(t, "2", line.Quantity)
	assert.Equal(t, "SAR -100.00", line.UnitPrice)
	assert.Equal(t, "SAR -200.00", line.Net)
	assert.Equal(t, "SAR -30.00", line.VAT)
	assert.Equal(t, "SAR -230.00", line.Total)
	assert.Equal(t, "SAR -200.00", doc.Totals.Subtotal)
	assert.Equal(t, "SAR -30.00", doc.Totals.VAT)
	assert.Equal(t, "SAR -230.00", doc.Totals.Total)

	assert.Equal(t, "200", doc.Amounts.Subtotal.String())
	assert.Equal(t, "30", doc.Amounts.VAT.String())
}

func TestBuildZATCADisabled(t *testing.T) {
	in := sampleInput()
	in.ZATCAEnabled = false

	doc, err := newTestBuilder().Build(in)
	require.NoError(t, err)
	assert.Equal(t, "Invoice", doc.Header.Title)
	assert.Empty(t, doc.QRPayload)
	assert.Equal(t, "SAR 200.00", doc.Totals.Total)
}

func TestBuildRequiresReadySeller(t *testing.T) {
	in := sampleInput()
	in.Seller.VATNumber = " "
	_, err := newTestBuilder().Build(in)
	require.ErrorIs(t, err, ErrSettingsIncomplete)
}

func TestBuildQRFailureDegradesToWarning(t *testing.T) {
	in := sampleInput()
	in.Seller.Name = strings.Repeat("x", 300)

	doc, err := newTestBuilder().Build(in)
	require.NoError(t, err)
	assert.Empty(t, doc.QRPayload)
	assert.True(t, errors.Is(doc.QRError, zatca.ErrValueTooLong))
	assert.Equal(t, []string{QRWarning}, doc.Warnings)
}

func TestBuildDefaultsIssueTimeToClock(t *testing.T) {
	in := sampleInput()
	in.IssueTime = ""
	in.Location = time.FixedZone("AST", 3*60*60)

	doc, err := newTestBuilder().Build(in)
	require.NoError(t, err)
	assert.Equal(t, "10:00:00", doc.Header.IssueTime)
	assert.Equal(t, "2024-01-01T07:00:00Z", doc.Header.IssuedAt.UTC().Format(zatca.TimestampLayout))
}

func TestBuildRejectsMalformedIssueTime(t *testing.T) {
	in := sampleInput()
	in.IssueTime = "ten o'clock"
	_, err := newTestBuilder().Build(in)
	require.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "SAR 1,234,567.89", FormatMoney(decimal.RequireFromString("1234567.891"), "sar"))
	assert.Equal(t, "USD 0.50", FormatMoney(decimal.RequireFromString("0.5"), "USD"))
	assert.Equal(t, "SAR 10.00", FormatMoney(decimal.NewFromInt(10), ""))
	assert.Equal(t, "SAR -1,000.00", FormatMoney(decimal.NewFromInt(-1000), "SAR"))
	assert.Equal(t, "SAR 999.00", FormatMoney(decimal.NewFromInt(999), "SAR"))
}

func TestFormatMoneyKeepsEveryDigitOfLargeAmounts(t *testing.T) {
	d := decimal.RequireFromString("12345678901234567.89")
	assert.Equal(t, "SAR 12,345,678,901,234,567.89", FormatMoney(d, "SAR"))
	assert.Equal(t, "SAR -12,345,678,901,234,567.89", FormatMoney(d.Neg(), "SAR"))
}

func TestHTMLRendererVariants(t *testing.T) {
	html, err := NewHTMLRenderer()
	require.NoError(t, err)

	doc, err := newTestBuilder().Build(sampleInput())
	require.NoError(t, err)
	page, err := html.Render(doc)
	require.NoError(t, err)
	assert.Contains(t, page, `dir="rtl"`)
	assert.Contains(t, page, "فاتورة ضريبية")
	assert.Contains(t, page, "data:image/png;base64,")
	assert.Contains(t, page, "SAR 230.00")
	assert.Contains(t, page, "311111111111113")

	in := sampleInput()
	in.Type = taxrule.SimplifiedTax
	in.Buyer = nil
	doc, err = newTestBuilder().Build(in)
	require.NoError(t, err)
	page, err = html.Render(doc)
	require.NoError(t, err)
	assert.Contains(t, page, CashCustomer)
	assert.NotContains(t, page, "311111111111113")

	in = sampleInput()
	in.Type = taxrule.NonTax
	doc, err = newTestBuilder().Build(in)
	require.NoError(t, err)
	page, err = html.Render(doc)
	require.NoError(t, err)
	assert.NotContains(t, page, "data:image/png")
	assert.NotContains(t, page, "300000000000003")

	in = sampleInput()
	in.Kind = taxrule.KindCreditNote
	in.OriginalNumber = "INV-000001"
	doc, err = newTestBuilder().Build(in)
	require.NoError(t, err)
	page, err = html.Render(doc)
	require.NoError(t, err)
	assert.Contains(t, page, "إشعار دائن")
	assert.Contains(t, page, "SAR -230.00")
}

func TestHTMLRendererShowsWarning(t *testing.T) {
	html, err := NewHTMLRenderer()
	require.NoError(t, err)

	in := sampleInput()
	in.Seller.Name = strings.Repeat("x", 300)
	doc, err := newTestBuilder().Build(in)
	require.NoError(t, err)
	page, err := html.Render(doc)
	require.NoError(t, err)
	assert.Contains(t, page, QRWarning)
}

func TestPDFRenderer(t *testing.T) {
	for _, typ := range []taxrule.InvoiceType{taxrule.StandardTax, taxrule.SimplifiedTax, taxrule.NonTax} {
		in := sampleInput()
		in.Type = typ
		in.Notes = "Paid by transfer"
		doc, err := newTestBuilder().Build(in)
		require.NoError(t, err)

		pdf, err := NewPDFRenderer("Acme").Render(doc)
		require.NoError(t, err, typ)
		assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")), typ)
	}
}

func TestPDFRendererEmbedsUnicodeFontForArabic(t *testing.T) {
	in := sampleInput()
	in.Seller.Name = "شركة أكمي"
	in.Items = []totals.Line{{Description: "استشارات", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)}}
	doc, err := newTestBuilder().Build(in)
	require.NoError(t, err)

	pdf, err := NewPDFRenderer("Acme").Render(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Contains(t, string(pdf), "/Encoding /Identity-H")
	assert.Contains(t, string(pdf), "/Subtype /CIDFontType2")
}

type fakePDFClient struct {
	html string
	err  error
}

func (f *fakePDFClient) RenderHTML(_ context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

func TestGotenbergRenderer(t *testing.T) {
	html, err := NewHTMLRenderer()
	require.NoError(t, err)
	client := &fakePDFClient{}
	g, err := NewGotenbergRenderer(html, client)
	require.NoError(t, err)

	doc, err := newTestBuilder().Build(sampleInput())
	require.NoError(t, err)
	pdf, err := g.RenderPDF(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-fake"), pdf)
	assert.Contains(t, client.html, "INV-000001")

	client.err = errors.New("boom")
	_, err = g.RenderPDF(context.Background(), doc)
	require.Error(t, err)

	_, err = NewGotenbergRenderer(nil, client)
	require.Error(t, err)
}
