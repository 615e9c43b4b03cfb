package render

import (
	"context"
	"fmt"
	"sync"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"

	"github.com/odyssey-erp/fatoora/web"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// fontFamily names the embedded DejaVu Sans faces inside generated PDFs.
const fontFamily = "dejavu-sans"

var loadFonts = sync.OnceValues(func() ([]*entity.CustomFont, error) {
	regular, err := web.Fonts.ReadFile("fonts/DejaVuSans.ttf")
	if err != nil {
		return nil, err
	}
	bold, err := web.Fonts.ReadFile("fonts/DejaVuSans-Bold.ttf")
	if err != nil {
		return nil, err
	}
	return repository.New().
		AddUTF8FontFromBytes(fontFamily, fontstyle.Normal, regular).
		AddUTF8FontFromBytes(fontFamily, fontstyle.Bold, bold).
		AddUTF8FontFromBytes(fontFamily, fontstyle.Italic, regular).
		AddUTF8FontFromBytes(fontFamily, fontstyle.BoldItalic, bold).
		Load()
})

// PDFRenderer lays out documents with maroto using an embedded Unicode font.
// Arabic text is shaped into presentation forms and laid out right to left
// before it reaches the engine, which only places glyphs left to right.
type PDFRenderer struct {
	author string
}

// NewPDFRenderer constructs the in-process renderer.
func NewPDFRenderer(author string) *PDFRenderer {
	return &PDFRenderer{author: author}
}

// RenderPDF implements the PDF engine contract. The context is unused since
// layout happens in process.
func (r *PDFRenderer) RenderPDF(_ context.Context, doc Document) ([]byte, error) {
	return r.Render(doc)
}

// Render produces an A4 PDF.
func (r *PDFRenderer) Render(doc Document) ([]byte, error) {
	fonts, err := loadFonts()
	if err != nil {
		return nil, fmt.Errorf("render: load fonts: %w", err)
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithCustomFonts(fonts).
		WithDefaultFont(&props.Font{Family: fontFamily, Size: 9}).
		WithTitle(doc.Header.Title+" "+doc.Header.Number, true).
		WithAuthor(r.author, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(pdfHeader(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(pdfParties(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(pdfTableHeader(doc.Columns))
	m.AddRows(pdfTableRows(doc)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(pdfTotals(doc))
	m.AddRows(pdfFooter(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render: generate pdf: %w", err)
	}
	return out.GetBytes(), nil
}

func pdfHeader(doc Document) core.Row {
	right := []core.Component{
		label(doc.Header.TitleAR+" / "+doc.Header.Title, props.Text{Style: fontstyle.Bold, Size: 13, Align: align.Right, Color: colorPrimary, Top: 1}),
		label("No. "+doc.Header.Number, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 8}),
		label(fmt.Sprintf("Issued %s %s (Hijri %s)", doc.Header.IssueDate, doc.Header.IssueTime, doc.Header.IssueDateHijri),
			props.Text{Size: 8, Align: align.Right, Top: 14, Color: colorGray}),
	}
	if doc.Header.DueDate != "" {
		right = append(right, label("Due "+doc.Header.DueDate, props.Text{Size: 8, Align: align.Right, Top: 18, Color: colorGray}))
	}
	if doc.CreditNoteRef != "" {
		right = append(right, label("Original invoice "+doc.CreditNoteRef, props.Text{Size: 8, Align: align.Right, Top: 22, Color: colorGray}))
	}

	left := col.New(4)
	if doc.QRPayload != "" {
		left.Add(code.NewQr(doc.QRPayload, props.Rect{Percent: 95, Center: true}))
	} else if len(doc.Warnings) > 0 {
		left.Add(label("Complete the business profile to show the QR code.", props.Text{Size: 7, Top: 4, Color: colorGray}))
	}
	return row.New(40).Add(left, col.New(8).Add(right...))
}

func pdfParties(doc Document) core.Row {
	seller := []core.Component{
		label("SELLER", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		label(doc.Seller.Name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
	}
	if doc.Mode.ShowsTax {
		seller = append(seller, label("VAT: "+doc.Seller.VATNumber, props.Text{Size: 8, Top: 12, Color: colorGray}))
	}
	seller = append(seller, label(joinNonEmpty(doc.Seller.Address, doc.Seller.City), props.Text{Size: 8, Top: 17, Color: colorGray}))

	buyerName := doc.Buyer.Name
	if doc.Buyer.Cash {
		buyerName = CashCustomer
	}
	buyer := []core.Component{
		label("BUYER", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		label(buyerName, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
	}
	if doc.Buyer.ShowVAT {
		buyer = append(buyer, label("VAT: "+doc.Buyer.VATNumber, props.Text{Size: 8, Top: 12, Color: colorGray}))
	}
	if !doc.Buyer.Cash {
		buyer = append(buyer, label(joinNonEmpty(doc.Buyer.Address, doc.Buyer.City), props.Text{Size: 8, Top: 17, Color: colorGray}))
	}
	return row.New(24).Add(col.New(6).Add(seller...), col.New(6).Add(buyer...))
}

type pdfColumn struct {
	label string
	size  int
	align align.Type
	value func(LineRow) string
}

func pdfColumns(c Columns) []pdfColumn {
	cols := []pdfColumn{
		{"#", 1, align.Center, func(l LineRow) string { return fmt.Sprint(l.Index) }},
	}
	price := "Unit price"
	if c.InclusivePrice {
		price = "Price incl. VAT"
	}
	switch {
	case c.TaxRate && c.VAT:
		cols = append(cols,
			pdfColumn{"Description", 3, align.Left, func(l LineRow) string { return l.Description }},
			pdfColumn{"Qty", 1, align.Center, func(l LineRow) string { return l.Quantity }},
			pdfColumn{price, 2, align.Right, func(l LineRow) string { return l.UnitPrice }},
			pdfColumn{"Rate", 1, align.Center, func(l LineRow) string { return l.TaxRate }},
			pdfColumn{"VAT", 2, align.Right, func(l LineRow) string { return l.VAT }},
		)
	default:
		cols = append(cols,
			pdfColumn{"Description", 6, align.Left, func(l LineRow) string { return l.Description }},
			pdfColumn{"Qty", 1, align.Center, func(l LineRow) string { return l.Quantity }},
			pdfColumn{price, 2, align.Right, func(l LineRow) string { return l.UnitPrice }},
		)
	}
	return append(cols, pdfColumn{"Total", 2, align.Right, func(l LineRow) string { return l.Total }})
}

func pdfTableHeader(c Columns) core.Row {
	r := row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
	for _, pc := range pdfColumns(c) {
		r.Add(col.New(pc.size).Add(label(pc.label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: pc.align, Color: colorWhite, Top: 2, Left: 1, Right: 1,
		})))
	}
	return r
}

func pdfTableRows(doc Document) []core.Row {
	cols := pdfColumns(doc.Columns)
	rows := make([]core.Row, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		r := row.New(7)
		for _, pc := range cols {
			r.Add(col.New(pc.size).Add(label(pc.value(l), props.Text{Size: 8, Align: pc.align, Top: 1, Left: 1, Right: 1})))
		}
		rows = append(rows, r)
	}
	return rows
}

func pdfTotals(doc Document) core.Row {
	labels := []core.Component{label("Subtotal:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})}
	values := []core.Component{label(doc.Totals.Subtotal, props.Text{Size: 9, Align: align.Right, Right: 1})}
	top := 5.0
	if doc.Totals.ShowVAT {
		labels = append(labels, label("VAT "+doc.Totals.TaxRate+":", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top}))
		values = append(values, label(doc.Totals.VAT, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top}))
		top += 5
	}
	labels = append(labels, label("TOTAL:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: top}))
	values = append(values, label(doc.Totals.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: top}))

	return row.New(20).Add(col.New(6), col.New(3).Add(labels...), col.New(3).Add(values...))
}

func pdfFooter(doc Document) []core.Row {
	var rows []core.Row
	if doc.Notes != "" {
		rows = append(rows, labelRow(10, "Notes: "+doc.Notes, props.Text{Size: 8, Top: 3}))
	}
	rows = append(rows, line.NewRow(4, props.Line{Color: colorGray, Thickness: 0.3}))
	if doc.Footer.Text != "" {
		rows = append(rows, labelRow(6, doc.Footer.Text, props.Text{Size: 7, Color: colorGray, Align: align.Center}))
	}
	if meta := joinNonEmpty(prefixed("IBAN ", doc.Footer.IBAN), prefixed("CR ", doc.Footer.CRNumber)); meta != "" {
		rows = append(rows, labelRow(6, meta, props.Text{Size: 7, Color: colorGray, Align: align.Center}))
	}
	return rows
}

// label builds a text component, shaping Arabic content first.
func label(s string, p props.Text) core.Component {
	return text.New(visual(s), p)
}

func labelRow(height float64, s string, p props.Text) core.Row {
	return text.NewRow(height, visual(s), p)
}

func prefixed(prefix, v string) string {
	if v == "" {
		return ""
	}
	return prefix + v
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " | "
		}
		out += p
	}
	return out
}
