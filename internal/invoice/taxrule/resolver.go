// Package taxrule decides how an invoice is presented for VAT purposes.
//
// The invoice classification is a closed set: values outside it are rejected
// when parsed, so Resolve never has to guess.
package taxrule

import (
	"errors"
	"fmt"
	"strings"
)

// InvoiceType classifies an invoice for ZATCA purposes.
type InvoiceType string

const (
	StandardTax   InvoiceType = "standard_tax"
	SimplifiedTax InvoiceType = "simplified_tax"
	NonTax        InvoiceType = "non_tax"
)

// DocumentKind distinguishes invoices from credit notes.
type DocumentKind string

const (
	KindInvoice    DocumentKind = "invoice"
	KindCreditNote DocumentKind = "credit_note"
)

// Variant names one of the fixed document templates.
type Variant string

const (
	VariantStandardTax   Variant = "standard_tax"
	VariantSimplifiedTax Variant = "simplified_tax"
	VariantNonTax        Variant = "non_tax"
	VariantCreditNote    Variant = "credit_note"
)

var (
	// ErrUnknownInvoiceType is returned for invoice_type tags outside the enum.
	ErrUnknownInvoiceType = errors.New("taxrule: unknown invoice type")
	// ErrUnknownDocumentKind is returned for document_kind tags outside the enum.
	ErrUnknownDocumentKind = errors.New("taxrule: unknown document kind")
)

// ParseInvoiceType converts a stored or submitted tag into an InvoiceType.
func ParseInvoiceType(raw string) (InvoiceType, error) {
	switch t := InvoiceType(strings.TrimSpace(raw)); t {
	case StandardTax, SimplifiedTax, NonTax:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownInvoiceType, raw)
	}
}

// ParseDocumentKind converts a stored or submitted tag into a DocumentKind.
// An empty tag means a plain invoice.
func ParseDocumentKind(raw string) (DocumentKind, error) {
	switch k := DocumentKind(strings.TrimSpace(raw)); k {
	case "":
		return KindInvoice, nil
	case KindInvoice, KindCreditNote:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDocumentKind, raw)
	}
}

// Valid reports whether t belongs to the enum.
func (t InvoiceType) Valid() bool {
	_, err := ParseInvoiceType(string(t))
	return err == nil
}

// Valid reports whether k belongs to the enum.
func (k DocumentKind) Valid() bool {
	return k == KindInvoice || k == KindCreditNote
}

// Input carries everything the resolver looks at.
type Input struct {
	Type           InvoiceType
	Kind           DocumentKind
	BuyerTaxNumber string
	// ZATCAEnabled is the deployment-wide switch. When false every invoice
	// is presented as non_tax.
	ZATCAEnabled bool
}

// Mode describes which tax elements a document must show.
type Mode struct {
	ShowsTax      bool
	ShowsBuyerVAT bool
	ShowsQR       bool
	// Template is the layout to render. Credit notes get VariantCreditNote;
	// BaseTemplate then names the layout family they borrow from.
	Template     Variant
	BaseTemplate Variant
	Title        string
	TitleAR      string
}

// Negates reports whether monetary values carry a negative sign.
func (m Mode) Negates() bool {
	return m.Template == VariantCreditNote
}

// Resolve maps an invoice classification onto a presentation mode.
func Resolve(in Input) Mode {
	effective := in.Type
	if !in.ZATCAEnabled {
		effective = NonTax
	}

	var m Mode
	switch effective {
	case StandardTax:
		m = Mode{ShowsTax: true, Template: VariantStandardTax, Title: "Tax Invoice", TitleAR: "فاتورة ضريبية"}
	case SimplifiedTax:
		m = Mode{ShowsTax: true, Template: VariantSimplifiedTax, Title: "Simplified Tax Invoice", TitleAR: "فاتورة ضريبية مبسطة"}
	case NonTax:
		m = Mode{Template: VariantNonTax, Title: "Invoice", TitleAR: "فاتورة"}
	default:
		panic(fmt.Sprintf("taxrule: resolve called with unparsed invoice type %q", in.Type))
	}
	m.BaseTemplate = m.Template
	m.ShowsQR = m.ShowsTax
	m.ShowsBuyerVAT = m.ShowsTax && strings.TrimSpace(in.BuyerTaxNumber) != ""

	if in.Kind == KindCreditNote {
		m.Template = VariantCreditNote
		m.Title = "Credit Note"
		m.TitleAR = "إشعار دائن"
	}
	return m
}
