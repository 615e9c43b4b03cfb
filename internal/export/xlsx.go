package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Built-in number format "#,##0.00".
const moneyNumFmt = 4

type sheetWriter struct {
	f     *excelize.File
	sheet string
	money int
}

func newSheet(name string, header []string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, err
	}
	rtl := true
	if err := f.SetSheetView(name, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return nil, err
	}
	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"00467F"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return nil, err
	}

	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &cells); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(name, "A1", last, headStyle); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetColWidth(name, "A", lastCol, 20); err != nil {
		return nil, err
	}
	return &sheetWriter{f: f, sheet: name, money: money}, nil
}

func (s *sheetWriter) row(n int, values []any, moneyCols ...int) error {
	start, _ := excelize.CoordinatesToCellName(1, n)
	if err := s.f.SetSheetRow(s.sheet, start, &values); err != nil {
		return err
	}
	for _, c := range moneyCols {
		cell, _ := excelize.CoordinatesToCellName(c, n)
		if err := s.f.SetCellStyle(s.sheet, cell, cell, s.money); err != nil {
			return err
		}
	}
	return nil
}

func (s *sheetWriter) finish(w io.Writer) error {
	defer func() { _ = s.f.Close() }()
	if err := s.f.Write(w); err != nil {
		return fmt.Errorf("export: write xlsx: %w", err)
	}
	return nil
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// WriteInvoicesXLSX writes a right-to-left workbook with one invoices sheet.
func WriteInvoicesXLSX(w io.Writer, rows []InvoiceRow) error {
	s, err := newSheet("Invoices", invoiceHeader)
	if err != nil {
		return fmt.Errorf("export: new sheet: %w", err)
	}
	for i, r := range rows {
		values := []any{
			r.Number, r.Type, r.Kind, r.Status, r.ClientName, r.ClientTaxNumber,
			formatDate(r.IssueDate), formatDate(r.DueDate),
			amount(r.Subtotal), amount(r.VAT), amount(r.Total), r.Currency,
		}
		if err := s.row(i+2, values, 9, 10, 11); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}
	return s.finish(w)
}

// WriteClientsXLSX writes the client list workbook.
func WriteClientsXLSX(w io.Writer, rows []ClientRow) error {
	s, err := newSheet("Clients", clientHeader)
	if err != nil {
		return fmt.Errorf("export: new sheet: %w", err)
	}
	for i, r := range rows {
		values := []any{
			r.Name, r.CompanyName, r.TaxNumber, r.Email, r.Phone, r.City, r.Status, formatDate(r.CreatedAt),
		}
		if err := s.row(i+2, values); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}
	return s.finish(w)
}
