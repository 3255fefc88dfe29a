package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/product"
)

const (
	productsTable = "products"

	listProductsSQL = `SELECT store_id, id, name, price, categories
		FROM products WHERE store_id = $1 ORDER BY id`

	getProductByIDSQL = `SELECT store_id, id, name, price, categories
		FROM products WHERE store_id = $1 AND id = $2`

	getProductsByIDsSQL = `SELECT store_id, id, name, price, categories
		FROM products WHERE store_id = $1 AND id = ANY($2) ORDER BY id`

	upsertProductSQL = `INSERT INTO products (store_id, id, name, price, categories)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (store_id, id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, categories = EXCLUDED.categories`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the catalog of a store ordered by ID.
func (r *ProductRepository) List(ctx context.Context, storeID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing products of store %q: %w", storeID, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single store product.
func (r *ProductRepository) GetByID(ctx context.Context, storeID, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, storeID, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns the store products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, storeID string, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, storeID, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products of store %q by ids: %w", storeID, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Save inserts or replaces a product.
func (r *ProductRepository) Save(ctx context.Context, p product.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	categories := p.Categories
	if categories == nil {
		categories = []string{}
	}
	if _, err := r.pool.Exec(ctx, upsertProductSQL, p.StoreID, p.ID, p.Name, p.Price, categories); err != nil {
		return fmt.Errorf("saving product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.StoreID, &p.ID, &p.Name, &price, &p.Categories)
	p.Price = price
	if len(p.Categories) == 0 {
		p.Categories = nil
	}
	return p, err
}
