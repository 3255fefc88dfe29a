package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item a store sells.
type Product struct {
	ID         string          `yaml:"id"`
	StoreID    string          `yaml:"storeId"`
	Name       string          `yaml:"name"`
	Price      decimal.Decimal `yaml:"price"`
	Categories []string        `yaml:"categories,omitempty"`
}

// Validate checks the fields a catalog entry must carry.
func (p Product) Validate() error {
	switch {
	case p.ID == "":
		return discount.Invalidf("product id is required")
	case p.StoreID == "":
		return discount.Invalidf("product %s: store id is required", p.ID)
	case p.Price.IsNegative():
		return discount.Invalidf("product %s: negative price %s", p.ID, p.Price)
	}
	return nil
}

// Item returns the view of p the discount engine evaluates.
func (p Product) Item() discount.Item {
	return discount.Item{
		Product: discount.Product{ID: p.ID, Categories: p.Categories},
		Price:   p.Price,
	}
}

// Repository defines operations on a store catalog.
type Repository interface {
	List(ctx context.Context, storeID string) ([]Product, error)
	GetByID(ctx context.Context, storeID, id string) (*Product, error)
	// GetByIDs returns the store products matching any of ids. Unknown ids
	// are skipped.
	GetByIDs(ctx context.Context, storeID string, ids []string) ([]Product, error)
	Save(ctx context.Context, p Product) error
}

// Lookup adapts a Repository to discount.ItemLookup.
type Lookup struct {
	Repo Repository
}

var _ discount.ItemBatchLookup = Lookup{}

// LookupItem returns the catalog item of a store product. Unknown products
// yield a *discount.NotFoundError.
func (l Lookup) LookupItem(ctx context.Context, storeID, productID string) (discount.Item, error) {
	p, err := l.Repo.GetByID(ctx, storeID, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return discount.Item{}, &discount.NotFoundError{Kind: discount.KindProduct, ID: productID}
		}
		return discount.Item{}, errors.Wrap(err, "get product")
	}
	return p.Item(), nil
}

// LookupItems fetches every requested product of a store in one repository
// call. Unknown products are absent from the result.
func (l Lookup) LookupItems(ctx context.Context, storeID string, productIDs []string) (map[string]discount.Item, error) {
	products, err := l.Repo.GetByIDs(ctx, storeID, productIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	items := make(map[string]discount.Item, len(products))
	for _, p := range products {
		items[p.ID] = p.Item()
	}
	return items, nil
}
