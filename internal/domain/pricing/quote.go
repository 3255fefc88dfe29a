package pricing

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

// Quote is a priced basket.
type Quote struct {
	StoreID string
	// Lines are ordered by product id.
	Lines    []discount.ItemPriceBreakdown
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Quote prices a basket and totals the result. Amounts are rounded to two
// decimal places and the total is floored at zero.
func (s *Service) Quote(ctx context.Context, b *discount.Basket) (*Quote, error) {
	breakdowns, err := s.ComputePrice(ctx, b)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		StoreID:  b.StoreID,
		Lines:    make([]discount.ItemPriceBreakdown, 0, len(breakdowns)),
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
	}
	for _, bd := range breakdowns {
		q.Lines = append(q.Lines, bd)
		q.Subtotal = q.Subtotal.Add(bd.OriginalPrice)
		q.Discount = q.Discount.Add(bd.Saved())
	}
	slices.SortFunc(q.Lines, func(a, b discount.ItemPriceBreakdown) int {
		return strings.Compare(a.ProductID, b.ProductID)
	})

	// Total = subtotal - discount, floored at zero and rounded to 2 decimal places.
	total := q.Subtotal.Sub(q.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	q.Total = total.Round(2)
	q.Subtotal = q.Subtotal.Round(2)
	q.Discount = q.Discount.Round(2)
	return q, nil
}
