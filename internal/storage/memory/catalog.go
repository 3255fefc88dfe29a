package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/xenking/kart-discounts/internal/domain/product"
)

var _ product.Repository = (*Catalog)(nil)

// Catalog is a concurrent product.Repository keyed by store and product id.
type Catalog struct {
	mu       sync.RWMutex
	products map[catalogKey]product.Product
}

type catalogKey struct {
	storeID string
	id      string
}

// NewCatalog returns a catalog holding the given products.
func NewCatalog(products ...product.Product) *Catalog {
	c := &Catalog{products: make(map[catalogKey]product.Product, len(products))}
	for _, p := range products {
		c.products[catalogKey{storeID: p.StoreID, id: p.ID}] = p
	}
	return c
}

// List returns the products of a store ordered by id.
func (c *Catalog) List(_ context.Context, storeID string) ([]product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []product.Product
	for k, p := range c.products {
		if k.storeID == storeID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b product.Product) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// GetByID returns a store product or product.ErrNotFound.
func (c *Catalog) GetByID(_ context.Context, storeID, id string) (*product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[catalogKey{storeID: storeID, id: id}]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns the store products matching any of ids, in the order of
// ids. Unknown ids are skipped.
func (c *Catalog) GetByIDs(_ context.Context, storeID string, ids []string) ([]product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.products[catalogKey{storeID: storeID, id: id}]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Save inserts or replaces a product.
func (c *Catalog) Save(_ context.Context, p product.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.products[catalogKey{storeID: p.StoreID, id: p.ID}] = p
	return nil
}
