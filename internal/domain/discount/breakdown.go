package discount

import "github.com/shopspring/decimal"

// ItemPriceBreakdown is the evaluation result for one basket product.
type ItemPriceBreakdown struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	// OriginalPrice is UnitPrice * Quantity.
	OriginalPrice decimal.Decimal
	// Discount is the effective fraction in [0, 1].
	Discount decimal.Decimal
	// Descriptions lists the rules that fired, innermost first.
	Descriptions []string
}

// FinalPrice returns OriginalPrice * (1 - Discount).
func (b ItemPriceBreakdown) FinalPrice() decimal.Decimal {
	return b.OriginalPrice.Mul(decimal.NewFromInt(1).Sub(b.Discount))
}

// Saved returns the amount taken off OriginalPrice.
func (b ItemPriceBreakdown) Saved() decimal.Decimal {
	return b.OriginalPrice.Sub(b.FinalPrice())
}
