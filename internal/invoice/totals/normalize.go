package totals

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// RawLine is a line item as submitted or read from a loosely typed source.
type RawLine struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// Adjustment records one coercion applied by Normalize.
type Adjustment struct {
	Index  int
	Field  string
	Raw    float64
	Reason string
}

func (a Adjustment) String() string {
	return fmt.Sprintf("line %d %s=%v coerced to 0 (%s)", a.Index, a.Field, a.Raw, a.Reason)
}

// Normalize converts raw lines into exact decimal lines. Prices keep
// PriceScale decimals. Non-finite quantities or prices and negative prices
// become zero; each coercion is reported so the caller can log it.
func Normalize(raw []RawLine) ([]Line, []Adjustment) {
	lines := make([]Line, len(raw))
	var adjustments []Adjustment

	for i, r := range raw {
		qty, reason := coerce(r.Quantity, false)
		if reason != "" {
			adjustments = append(adjustments, Adjustment{Index: i, Field: "quantity", Raw: r.Quantity, Reason: reason})
		}
		price, reason := coerce(r.UnitPrice, true)
		if reason != "" {
			adjustments = append(adjustments, Adjustment{Index: i, Field: "unit_price", Raw: r.UnitPrice, Reason: reason})
		}
		lines[i] = Line{
			Description: r.Description,
			Quantity:    qty,
			UnitPrice:   price.Round(PriceScale),
		}
	}
	return lines, adjustments
}

func coerce(v float64, rejectNegative bool) (decimal.Decimal, string) {
	switch {
	case math.IsNaN(v):
		return decimal.Zero, "not a number"
	case math.IsInf(v, 0):
		return decimal.Zero, "infinite"
	case rejectNegative && v < 0:
		return decimal.Zero, "negative"
	}
	return decimal.NewFromFloat(v), ""
}
