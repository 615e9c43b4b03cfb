package totals

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleLines() []Line {
	return []Line{
		{Description: "Consulting", Quantity: dec("2"), UnitPrice: dec("50")},
		{Description: "Support", Quantity: dec("1"), UnitPrice: dec("100")},
	}
}

func TestComputeStandardTax(t *testing.T) {
	got := Compute(sampleLines(), dec("15"), true, false)

	assert.Equal(t, "200.00", Fixed(got.Subtotal))
	assert.Equal(t, "30.00", Fixed(got.VAT))
	assert.Equal(t, "230.00", Fixed(got.Total))
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "100.00", Fixed(got.Lines[0].Net))
	assert.Equal(t, "15.00", Fixed(got.Lines[0].VAT))
	assert.Equal(t, "115.00", Fixed(got.Lines[0].Total))
	assert.Equal(t, "57.50", Fixed(got.Lines[0].UnitPriceInclusive))
}

func TestComputeNonTaxIgnoresRate(t *testing.T) {
	got := Compute(sampleLines(), dec("15"), false, false)

	assert.Equal(t, "200.00", Fixed(got.Subtotal))
	assert.True(t, got.VAT.IsZero())
	assert.Equal(t, "200.00", Fixed(got.Total))
	for _, l := range got.Lines {
		assert.True(t, l.VAT.IsZero())
		assert.True(t, l.Net.Equal(l.Total))
	}
}

func TestComputeCreditNoteSignsTotalsOnly(t *testing.T) {
	got := Compute(sampleLines(), dec("15"), true, true)

	assert.Equal(t, "200.00", Fixed(got.Subtotal))
	assert.Equal(t, "30.00", Fixed(got.VAT))
	assert.Equal(t, "-230.00", Fixed(got.Total))
	assert.Equal(t, "-115.00", Fixed(got.Lines[0].Total))
	assert.Equal(t, "-115.00", Fixed(got.Lines[1].Total))
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil, dec("15"), true, false)
	assert.True(t, got.Subtotal.IsZero())
	assert.True(t, got.VAT.IsZero())
	assert.True(t, got.Total.IsZero())
	assert.Empty(t, got.Lines)
}

func TestComputeIsIdempotent(t *testing.T) {
	lines := sampleLines()
	first := Compute(lines, dec("15"), true, false)
	second := Compute(lines, dec("15"), true, false)
	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, lines[0].UnitPrice.Equal(dec("50")))
}

func TestComputeRoundsEachLineOnce(t *testing.T) {
	lines := []Line{{Quantity: dec("3"), UnitPrice: dec("0.335")}}
	got := Compute(lines, dec("15"), true, false)

	assert.Equal(t, "1.01", got.Subtotal.String())
	assert.Equal(t, "0.15", got.VAT.String())
	assert.Equal(t, "1.16", got.Total.String())
}

func TestComputeTotalIsSumOfRoundedParts(t *testing.T) {
	lines := []Line{{Quantity: dec("1"), UnitPrice: dec("99.995")}}
	got := Compute(lines, dec("15"), true, false)

	assert.Equal(t, "100", got.Subtotal.String())
	assert.Equal(t, "15", got.VAT.String())
	assert.Equal(t, "115", got.Total.String())
	assert.True(t, got.Total.Equal(Round(got.Subtotal).Add(Round(got.VAT))))
	assert.True(t, got.Lines[0].Net.Equal(LineNet(dec("1"), dec("99.995"))))
}

func TestComputeSumsRoundedLines(t *testing.T) {
	lines := []Line{
		{Quantity: dec("1"), UnitPrice: dec("0.333")},
		{Quantity: dec("1"), UnitPrice: dec("0.333")},
		{Quantity: dec("1"), UnitPrice: dec("0.333")},
	}
	got := Compute(lines, dec("15"), true, false)

	assert.Equal(t, "0.99", Fixed(got.Subtotal))
	assert.Equal(t, "0.15", Fixed(got.VAT))
	assert.Equal(t, "1.14", Fixed(got.Total))
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "2.35", Round(dec("2.345")).StringFixed(2))
	assert.Equal(t, "-2.35", Round(dec("-2.345")).StringFixed(2))
}

func TestNormalizeCoercesInvalidNumbers(t *testing.T) {
	lines, adjustments := Normalize([]RawLine{
		{Description: "ok", Quantity: 2, UnitPrice: 10.5},
		{Description: "nan", Quantity: math.NaN(), UnitPrice: math.Inf(1)},
		{Description: "negative", Quantity: 1, UnitPrice: -4},
	})

	require.Len(t, lines, 3)
	assert.Equal(t, "21.00", Fixed(LineNet(lines[0].Quantity, lines[0].UnitPrice)))
	assert.True(t, lines[1].Quantity.IsZero())
	assert.True(t, lines[1].UnitPrice.IsZero())
	assert.True(t, lines[2].UnitPrice.IsZero())

	require.Len(t, adjustments, 3)
	assert.Equal(t, 1, adjustments[0].Index)
	assert.Equal(t, "quantity", adjustments[0].Field)
	assert.True(t, math.IsNaN(adjustments[0].Raw))
	assert.Equal(t, "not a number", adjustments[0].Reason)
	assert.Equal(t, "unit_price", adjustments[1].Field)
	assert.Equal(t, "infinite", adjustments[1].Reason)
	assert.Equal(t, 2, adjustments[2].Index)
	assert.Equal(t, "negative", adjustments[2].Reason)
	assert.Contains(t, adjustments[2].String(), "line 2 unit_price=-4")
}

func TestNormalizeCleanInputHasNoAdjustments(t *testing.T) {
	lines, adjustments := Normalize([]RawLine{{Quantity: 1, UnitPrice: 0}})
	require.Len(t, lines, 1)
	assert.Empty(t, adjustments)
}

func TestNormalizeKeepsSubCentPrices(t *testing.T) {
	lines, adjustments := Normalize([]RawLine{{Description: "fuel", Quantity: 1, UnitPrice: 99.995}, {Quantity: 1, UnitPrice: 1.23456789}})

	assert.Empty(t, adjustments)
	assert.Equal(t, "99.995", lines[0].UnitPrice.String())
	assert.Equal(t, "1.234568", lines[1].UnitPrice.String())
}

func TestPriceKeepsSubCentDigits(t *testing.T) {
	assert.Equal(t, "50.00", Price(dec("50")))
	assert.Equal(t, "99.995", Price(dec("99.995")))
}
