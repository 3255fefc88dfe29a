package discount

import (
	"context"

	"github.com/shopspring/decimal"
)

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type catalog map[string]Item

func (c catalog) LookupItem(_ context.Context, _, productID string) (Item, error) {
	item, ok := c[productID]
	if !ok {
		return Item{}, &NotFoundError{Kind: KindProduct, ID: productID}
	}
	return item, nil
}

// batchCatalog counts lookups to check that baskets resolve in one call.
type batchCatalog struct {
	catalog
	single, batch int
}

func (c *batchCatalog) LookupItem(ctx context.Context, storeID, productID string) (Item, error) {
	c.single++
	return c.catalog.LookupItem(ctx, storeID, productID)
}

func (c *batchCatalog) LookupItems(_ context.Context, _ string, productIDs []string) (map[string]Item, error) {
	c.batch++
	out := make(map[string]Item, len(productIDs))
	for _, id := range productIDs {
		if it, ok := c.catalog[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func item(id, price string, categories ...string) Item {
	return Item{Product: Product{ID: id, Categories: categories}, Price: d(price)}
}

func basket(orders map[string]int) *Basket {
	return &Basket{StoreID: "S", Orders: orders}
}

func mustSimple(id, pct string, q Qualifier, c Condition) *SimpleDiscount {
	s, err := NewSimpleDiscount(Meta{ID: id, StoreID: "S", Description: id, Condition: c}, d(pct), q)
	if err != nil {
		panic(err)
	}
	return s
}

func mustMinQty(id, productID string, t int) *MinQuantityCondition {
	c, err := NewMinQuantityCondition(id, productID, t)
	if err != nil {
		panic(err)
	}
	return c
}
