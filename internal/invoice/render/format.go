package render

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is used when the tenant has not configured one.
const DefaultCurrency = "SAR"

// moneyFormatter prints amounts with Latin digits, thousands grouping and two
// decimals, prefixed by the ISO currency code.
type moneyFormatter struct {
	code string
}

func newMoneyFormatter(code string) moneyFormatter {
	code = strings.ToUpper(strings.TrimSpace(code))
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	} else {
		code = DefaultCurrency
	}
	return moneyFormatter{code: code}
}

// Format renders d, e.g. "SAR 1,234.50".
func (f moneyFormatter) Format(d decimal.Decimal) string {
	return f.code + " " + f.Amount(d)
}

// Amount renders d without the currency code. It works on the exact decimal
// string so large amounts keep every digit.
func (f moneyFormatter) Amount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatMoney is the package level helper used by templates and exports.
func FormatMoney(d decimal.Decimal, code string) string {
	return newMoneyFormatter(code).Format(d)
}

func formatRate(rate decimal.Decimal) string {
	return rate.Round(2).String() + "%"
}

func formatQuantity(q decimal.Decimal) string {
	return q.Round(3).String()
}
