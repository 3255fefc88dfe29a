package discount

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Basket is the read-only view of a shopping basket supplied by checkout.
type Basket struct {
	StoreID string
	// Orders maps product id to quantity.
	Orders map[string]int
}

// Product describes what a qualifier can see of a catalog product.
type Product struct {
	ID         string
	Categories []string
}

// Item is a catalog entry as returned by an ItemLookup.
type Item struct {
	Product
	Price decimal.Decimal
}

// ItemLookup resolves a product of a store to its catalog item. It is passed
// to every evaluation call and never retained by rule nodes.
type ItemLookup interface {
	LookupItem(ctx context.Context, storeID, productID string) (Item, error)
}

// ItemLookupFunc adapts a function to ItemLookup.
type ItemLookupFunc func(ctx context.Context, storeID, productID string) (Item, error)

// LookupItem calls f.
func (f ItemLookupFunc) LookupItem(ctx context.Context, storeID, productID string) (Item, error) {
	return f(ctx, storeID, productID)
}

// ItemBatchLookup is an ItemLookup that can resolve every product of a
// basket in one call. Products missing from the catalog are left out of the
// returned map.
type ItemBatchLookup interface {
	ItemLookup
	LookupItems(ctx context.Context, storeID string, productIDs []string) (map[string]Item, error)
}

// KindProduct is the NotFoundError.Kind of a basket product missing from the
// catalog.
const KindProduct = "product"

type line struct {
	item     Item
	quantity int
}

func (l line) total() decimal.Decimal {
	return l.item.Price.Mul(decimal.NewFromInt(int64(l.quantity)))
}

// cart is a basket resolved against the catalog once per evaluation call.
// Lines are ordered by product id.
type cart struct {
	storeID string
	lines   []line
	qty     map[string]int
}

func resolve(ctx context.Context, b *Basket, lookup ItemLookup) (*cart, error) {
	if b == nil {
		return nil, Invalidf("basket is required")
	}
	if b.StoreID == "" {
		return nil, Invalidf("basket store id is required")
	}
	if lookup == nil {
		return nil, Invalidf("item lookup is required")
	}

	ids := make([]string, 0, len(b.Orders))
	for id, q := range b.Orders {
		if id == "" {
			return nil, Invalidf("basket product id is empty")
		}
		if q < 0 {
			return nil, Invalidf("negative quantity %d for product %s", q, id)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	items, err := lookupItems(ctx, b.StoreID, ids, lookup)
	if err != nil {
		return nil, err
	}

	c := &cart{
		storeID: b.StoreID,
		lines:   make([]line, 0, len(ids)),
		qty:     make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		item := items[id]
		if item.ID == "" {
			item.ID = id
		}
		c.lines = append(c.lines, line{item: item, quantity: b.Orders[id]})
		c.qty[id] = b.Orders[id]
	}
	return c, nil
}

// lookupItems resolves ids in one call when lookup supports batches and
// one id at a time otherwise.
func lookupItems(ctx context.Context, storeID string, ids []string, lookup ItemLookup) (map[string]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if batch, ok := lookup.(ItemBatchLookup); ok {
		items, err := batch.LookupItems(ctx, storeID, ids)
		if err != nil {
			return nil, errors.Wrap(err, "lookup items")
		}
		for _, id := range ids {
			if _, ok := items[id]; !ok {
				return nil, errors.Wrapf(&NotFoundError{Kind: KindProduct, ID: id}, "lookup item %s", id)
			}
		}
		return items, nil
	}

	items := make(map[string]Item, len(ids))
	for _, id := range ids {
		item, err := lookup.LookupItem(ctx, storeID, id)
		if err != nil {
			return nil, errors.Wrapf(err, "lookup item %s", id)
		}
		items[id] = item
	}
	return items, nil
}

// subtotal returns the sum of price * quantity across all lines. An empty
// basket totals zero.
func (c *cart) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.total())
	}
	return sum
}

// quantity returns the basket quantity of a product, 0 when absent.
func (c *cart) quantity(productID string) int {
	return c.qty[productID]
}
