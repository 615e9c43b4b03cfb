// Package export serializes invoice and client listings for spreadsheets.
//
// Rows carry amounts already computed by the invoice service; nothing here
// recalculates totals.
package export

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceRow is one invoice in an export.
type InvoiceRow struct {
	Number          string
	Type            string
	Kind            string
	Status          string
	ClientName      string
	ClientTaxNumber string
	IssueDate       time.Time
	DueDate         time.Time
	Subtotal        decimal.Decimal
	VAT             decimal.Decimal
	// Total is signed: credit notes are negative.
	Total    decimal.Decimal
	Currency string
}

// ClientRow is one client in an export.
type ClientRow struct {
	Name        string
	CompanyName string
	TaxNumber   string
	Email       string
	Phone       string
	City        string
	Status      string
	CreatedAt   time.Time
}

const dateLayout = "2006-01-02"

var invoiceHeader = []string{
	"رقم الفاتورة / Number",
	"النوع / Type",
	"نوع المستند / Kind",
	"الحالة / Status",
	"العميل / Client",
	"الرقم الضريبي / VAT number",
	"تاريخ الإصدار / Issue date",
	"تاريخ الاستحقاق / Due date",
	"المجموع الفرعي / Subtotal",
	"الضريبة / VAT",
	"الإجمالي / Total",
	"العملة / Currency",
}

var clientHeader = []string{
	"الاسم / Name",
	"الشركة / Company",
	"الرقم الضريبي / VAT number",
	"البريد / Email",
	"الهاتف / Phone",
	"المدينة / City",
	"الحالة / Status",
	"تاريخ الإنشاء / Created",
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
