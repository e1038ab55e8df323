package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateLineNoDiscountNoTax(t *testing.T) {
	cases := []struct {
		qty, price float64
		want       float64
	}{
		{1, 0, 0},
		{3, 19.99, 59.97},
		{2.5, 10, 25},
		{7, 0.333, 2.33},
	}
	for _, tc := range cases {
		res := CalculateLine(LineInput{Quantity: tc.qty, UnitPrice: tc.price})
		require.InDelta(t, tc.want, res.Total, 0.001)
	}
}

func TestCalculateLinePercentageDiscount(t *testing.T) {
	// quantity=2, price=100, discount=10% -> 180; tax 15% -> 207.00
	res := CalculateLine(LineInput{
		Quantity:       2,
		UnitPrice:      100,
		DiscountValue:  10,
		DiscountKind:   DiscountPercent,
		TaxRatePercent: 15,
	})
	require.InDelta(t, 200.0, res.Subtotal, 0.001)
	require.InDelta(t, 20.0, res.DiscountAmount, 0.001)
	require.InDelta(t, 27.0, res.TaxAmount, 0.001)
	require.InDelta(t, 207.0, res.Total, 0.001)
}

func TestCalculateLineFixedDiscount(t *testing.T) {
	// quantity=1, price=50, fixed discount=5, no tax -> 45.00
	res := CalculateLine(LineInput{
		Quantity:      1,
		UnitPrice:     50,
		DiscountValue: 5,
		DiscountKind:  DiscountFixed,
	})
	require.InDelta(t, 45.0, res.Total, 0.001)
}

func TestCalculateLineFixedDiscountMayGoNegative(t *testing.T) {
	// Oversized fixed discounts are not clamped; the caller is expected to
	// reject them through ExceedsSubtotal.
	in := LineInput{Quantity: 1, UnitPrice: 30, DiscountValue: 50, DiscountKind: DiscountFixed}
	res := CalculateLine(in)
	require.InDelta(t, -20.0, res.Total, 0.001)
	require.True(t, ExceedsSubtotal(in))

	require.False(t, ExceedsSubtotal(LineInput{Quantity: 1, UnitPrice: 30, DiscountValue: 100, DiscountKind: DiscountPercent}))
}

func TestCalculateLinePercentBounds(t *testing.T) {
	full := CalculateLine(LineInput{Quantity: 4, UnitPrice: 25, DiscountValue: 100, DiscountKind: DiscountPercent})
	require.InDelta(t, 0.0, full.Total, 0.001)

	none := CalculateLine(LineInput{Quantity: 4, UnitPrice: 25, DiscountValue: 0, DiscountKind: DiscountPercent})
	require.InDelta(t, 100.0, none.Total, 0.001)
}

func TestComposeDocumentLineTaxIndependentOfDocumentDiscount(t *testing.T) {
	lines := []LineInput{
		{Quantity: 2, UnitPrice: 100, DiscountValue: 10, DiscountKind: DiscountPercent, TaxRatePercent: 15},
		{Quantity: 1, UnitPrice: 50, DiscountValue: 5, DiscountKind: DiscountFixed},
	}

	noDocDiscount := ComposeDocument(lines, 0, "")
	withDocDiscount := ComposeDocument(lines, 25, DiscountFixed)

	// Document discount changes the total but never the per-line tax sum.
	require.InDelta(t, noDocDiscount.TotalTax, withDocDiscount.TotalTax, 0.001)
	require.InDelta(t, 250.0, withDocDiscount.Subtotal, 0.001)
	require.InDelta(t, 25.0, withDocDiscount.LineDiscount, 0.001)
	require.InDelta(t, 25.0, withDocDiscount.DocumentDiscount, 0.001)
	require.InDelta(t, 50.0, withDocDiscount.TotalDiscount(), 0.001)
	require.InDelta(t, 27.0, withDocDiscount.TotalTax, 0.001)
	// 250 gross subtotal - 25 document discount + 27 tax; line discounts
	// already shaped the tax and are reported, not subtracted again.
	require.InDelta(t, 252.0, withDocDiscount.TotalAmount, 0.001)

	// without the document discount the gross subtotal stands as-is
	require.InDelta(t, 277.0, noDocDiscount.TotalAmount, 0.001)
}

func TestComposeDocumentPercentDocumentDiscount(t *testing.T) {
	lines := []LineInput{
		{Quantity: 10, UnitPrice: 10},
		{Quantity: 5, UnitPrice: 20, TaxRatePercent: 10},
	}
	res := ComposeDocument(lines, 10, DiscountPercent)
	require.InDelta(t, 200.0, res.Subtotal, 0.001)
	require.InDelta(t, 20.0, res.DocumentDiscount, 0.001)
	require.InDelta(t, 10.0, res.TotalTax, 0.001)
	require.InDelta(t, 190.0, res.TotalAmount, 0.001)
}

func TestComposeDocumentIdempotent(t *testing.T) {
	lines := []LineInput{
		{Quantity: 3, UnitPrice: 33.33, DiscountValue: 7.5, DiscountKind: DiscountPercent, TaxRatePercent: 14},
		{Quantity: 1, UnitPrice: 120, DiscountValue: 12, DiscountKind: DiscountFixed, TaxRatePercent: 5},
	}
	first := ComposeDocument(lines, 5, DiscountPercent)
	second := ComposeDocument(lines, 5, DiscountPercent)
	require.Equal(t, first, second)
}
