package export

import (
	"bufio"
	"io"
	"strings"
)

const bom = "\ufeff"

// csvWriter quotes every field, which encoding/csv cannot be told to do.
// Embedded quotes are doubled. CR and LF inside a field are written as is;
// the surrounding quotes keep them in the field, so a multi-line address
// stays one cell. Records end with CRLF.
type csvWriter struct {
	w   *bufio.Writer
	err error
}

func newCSVWriter(w io.Writer) *csvWriter {
	cw := &csvWriter{w: bufio.NewWriter(w)}
	_, cw.err = cw.w.WriteString(bom)
	return cw
}

func (c *csvWriter) write(fields []string) {
	if c.err != nil {
		return
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	_, c.err = c.w.WriteString(b.String())
}

func (c *csvWriter) flush() error {
	if c.err != nil {
		return c.err
	}
	return c.w.Flush()
}

// safeText neutralises values a spreadsheet would evaluate as a formula.
func safeText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteInvoicesCSV writes a UTF-8 CSV with BOM so Excel detects the encoding.
func WriteInvoicesCSV(w io.Writer, rows []InvoiceRow) error {
	cw := newCSVWriter(w)
	cw.write(invoiceHeader)
	for _, r := range rows {
		cw.write([]string{
			safeText(r.Number),
			r.Type,
			r.Kind,
			r.Status,
			safeText(r.ClientName),
			safeText(r.ClientTaxNumber),
			formatDate(r.IssueDate),
			formatDate(r.DueDate),
			r.Subtotal.StringFixed(2),
			r.VAT.StringFixed(2),
			r.Total.StringFixed(2),
			r.Currency,
		})
	}
	return cw.flush()
}

// WriteClientsCSV writes the client list.
func WriteClientsCSV(w io.Writer, rows []ClientRow) error {
	cw := newCSVWriter(w)
	cw.write(clientHeader)
	for _, r := range rows {
		cw.write([]string{
			safeText(r.Name),
			safeText(r.CompanyName),
			safeText(r.TaxNumber),
			safeText(r.Email),
			safeText(r.Phone),
			safeText(r.City),
			r.Status,
			formatDate(r.CreatedAt),
		})
	}
	return cw.flush()
}
