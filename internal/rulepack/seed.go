package rulepack

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-discounts/internal/domain/discount"
	"github.com/xenking/kart-discounts/internal/domain/product"
	"github.com/xenking/kart-discounts/internal/domain/rulespec"
)

// RuleWriter persists discount trees built from specs.
type RuleWriter interface {
	CreateDiscount(ctx context.Context, spec rulespec.DiscountSpec) (discount.Discount, error)
}

// Stats counts what a Seeder wrote.
type Stats struct {
	Products  int
	Discounts int
}

// Seeder writes pack contents to a catalog and a rule store.
type Seeder struct {
	Catalog product.Repository
	Rules   RuleWriter
}

// Apply writes the products and then the discounts of every pack, in order.
// Discounts carrying an id replace the stored tree of that id.
func (s Seeder) Apply(ctx context.Context, packs ...*Pack) (Stats, error) {
	lg := zctx.From(ctx)

	var stats Stats
	for _, p := range packs {
		for _, prod := range p.Products {
			if err := s.Catalog.Save(ctx, prod); err != nil {
				return stats, errors.Wrapf(err, "save product %s of %s", prod.ID, p.Source)
			}
			stats.Products++
		}
		for i, spec := range p.Discounts {
			d, err := s.Rules.CreateDiscount(ctx, spec)
			if err != nil {
				return stats, errors.Wrapf(err, "create discount %d of %s", i, p.Source)
			}
			stats.Discounts++
			lg.Debug("Seeded discount",
				zap.String("source", p.Source),
				zap.String("id", d.Metadata().ID),
				zap.String("store_id", d.Metadata().StoreID),
				zap.String("type", string(d.Kind())),
			)
		}
		lg.Info("Applied rule pack",
			zap.String("source", p.Source),
			zap.Int("products", len(p.Products)),
			zap.Int("discounts", len(p.Discounts)),
		)
	}
	return stats, nil
}
