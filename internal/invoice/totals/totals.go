// Package totals computes line and invoice amounts. Every read site (document
// rendering, list views, exports and the write path) goes through Compute so
// the numbers never disagree.
//
// Rounding happens once per line: the net and the VAT of each line are
// rounded to two decimals, the invoice subtotal and VAT are sums of those
// rounded amounts and the total is subtotal plus VAT. Nothing is rounded
// again afterwards, so stored and rendered totals are identical.
package totals

import (
	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimals kept on unit prices.
const PriceScale = 6

var hundred = decimal.NewFromInt(100)

// Line is a normalized line item.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// LineAmounts holds the computed amounts for one line.
type LineAmounts struct {
	Net decimal.Decimal
	VAT decimal.Decimal
	// Total is signed: negative on credit notes.
	Total decimal.Decimal
	// UnitPriceInclusive is the unit price with VAT folded in, used by the
	// simplified layout.
	UnitPriceInclusive decimal.Decimal
}

// Totals is the result of Compute.
type Totals struct {
	Lines []LineAmounts
	// Subtotal and VAT are magnitudes.
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	// Total carries the credit note sign.
	Total decimal.Decimal
}

// Compute derives per-line and invoice totals. It is pure: the same inputs
// always give the same outputs and items is not modified.
func Compute(items []Line, taxRate decimal.Decimal, showsTax, negate bool) Totals {
	out := Totals{
		Lines:    make([]LineAmounts, len(items)),
		Subtotal: decimal.Zero,
		VAT:      decimal.Zero,
	}
	rate := decimal.Zero
	if showsTax {
		rate = taxRate.Div(hundred)
	}

	for i, item := range items {
		net := LineNet(item.Quantity, item.UnitPrice)
		vat := Round(net.Mul(rate))
		total := net.Add(vat)
		if negate {
			total = total.Neg()
		}
		out.Lines[i] = LineAmounts{
			Net:                net,
			VAT:                vat,
			Total:              total,
			UnitPriceInclusive: Round(item.UnitPrice.Add(item.UnitPrice.Mul(rate))),
		}
		out.Subtotal = out.Subtotal.Add(net)
		out.VAT = out.VAT.Add(vat)
	}

	out.Total = out.Subtotal.Add(out.VAT)
	if negate {
		out.Total = out.Total.Neg()
	}
	return out
}

// LineNet is the rounded net amount of a line.
func LineNet(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return Round(qty.Mul(unitPrice))
}

// Round rounds an amount to two decimals, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Price formats a unit price with two decimals, or more when the price has
// sub-cent precision.
func Price(d decimal.Decimal) string {
	if d.Equal(Round(d)) {
		return Fixed(d)
	}
	return d.String()
}

// Fixed formats an amount with exactly two decimals.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}
