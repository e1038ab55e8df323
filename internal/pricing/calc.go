// Package pricing holds the pure invoice arithmetic shared by sales and
// procurement documents: per-line totals and document-level composition.
package pricing

import "math"

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	// DiscountPercent treats the value as a percentage of the subtotal.
	DiscountPercent DiscountKind = "PERCENT"
	// DiscountFixed treats the value as an absolute amount.
	DiscountFixed DiscountKind = "FIXED"
)

// LineInput carries the raw fields of one document line.
type LineInput struct {
	Quantity       float64
	UnitPrice      float64
	DiscountValue  float64
	DiscountKind   DiscountKind
	TaxRatePercent float64
}

// LineResult is the derived breakdown of a single line.
type LineResult struct {
	Subtotal       float64
	DiscountAmount float64
	TaxAmount      float64
	Total          float64
}

// CalculateLine derives one line's total from quantity, price, discount and
// tax. A fixed discount larger than the subtotal yields a negative total;
// callers decide whether to reject that (see ExceedsSubtotal).
func CalculateLine(in LineInput) LineResult {
	subtotal := in.Quantity * in.UnitPrice
	discount := discountAmount(subtotal, in.DiscountValue, in.DiscountKind)
	afterDiscount := subtotal - discount
	tax := afterDiscount * (in.TaxRatePercent / 100)
	return LineResult{
		Subtotal:       Round2(subtotal),
		DiscountAmount: Round2(discount),
		TaxAmount:      Round2(tax),
		Total:          Round2(afterDiscount + tax),
	}
}

// DocumentResult aggregates line results into document totals.
type DocumentResult struct {
	Subtotal         float64
	LineDiscount     float64
	DocumentDiscount float64
	TotalTax         float64
	TotalAmount      float64
}

// TotalDiscount is the combined line and document discount.
func (r DocumentResult) TotalDiscount() float64 {
	return Round2(r.LineDiscount + r.DocumentDiscount)
}

// ComposeDocument folds an ordered line sequence plus an optional
// document-level discount into document totals. Line tax is computed on the
// line's own discounted amount and is not affected by the document discount.
// The grand total subtracts only the document discount from the gross
// subtotal; line discounts are reported but already reflected in line tax.
// The function is pure; recomputation over the same lines yields the same
// totals.
func ComposeDocument(lines []LineInput, docDiscountValue float64, docDiscountKind DiscountKind) DocumentResult {
	var subtotal, lineDiscounts, totalTax float64
	for _, line := range lines {
		lineSubtotal := line.Quantity * line.UnitPrice
		lineDiscount := discountAmount(lineSubtotal, line.DiscountValue, line.DiscountKind)
		subtotal += lineSubtotal
		lineDiscounts += lineDiscount
		totalTax += (lineSubtotal - lineDiscount) * (line.TaxRatePercent / 100)
	}
	docDiscount := discountAmount(subtotal, docDiscountValue, docDiscountKind)
	return DocumentResult{
		Subtotal:         Round2(subtotal),
		LineDiscount:     Round2(lineDiscounts),
		DocumentDiscount: Round2(docDiscount),
		TotalTax:         Round2(totalTax),
		TotalAmount:      Round2(subtotal - docDiscount + totalTax),
	}
}

// ExceedsSubtotal reports whether a fixed discount is larger than the line
// subtotal, which would drive the line total negative.
func ExceedsSubtotal(in LineInput) bool {
	if in.DiscountKind != DiscountFixed {
		return false
	}
	return in.DiscountValue > in.Quantity*in.UnitPrice
}

// Round2 rounds a monetary amount to two decimals.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func discountAmount(subtotal, value float64, kind DiscountKind) float64 {
	switch kind {
	case DiscountPercent:
		return subtotal * (value / 100)
	case DiscountFixed:
		return value
	default:
		return 0
	}
}
