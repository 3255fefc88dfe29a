// Package postgres implements the catalog and rule stores on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-discounts/db"
)

const applicationName = "kart-discounts"

// schemaTables are created by db.Schema and used by the stores of this
// package.
var schemaTables = []string{productsTable, conditionsTable, discountsTable}

// NewPool connects to the database holding the catalog and rule tables.
// NUMERIC prices and thresholds scan into decimal.Decimal. The connection is
// checked before the pool is returned.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog and rule database url: %w", err)
	}
	if cfg.ConnConfig.RuntimeParams["application_name"] == "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating catalog and rule pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to catalog and rule database: %w", err)
	}
	return pool, nil
}

// RunMigrations applies the embedded schema and checks that every catalog
// and rule table exists afterwards.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return fmt.Errorf("creating tables %v: %w", schemaTables, err)
	}
	for _, table := range schemaTables {
		var ok bool
		if err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&ok); err != nil {
			return fmt.Errorf("checking table %s: %w", table, err)
		}
		if !ok {
			return fmt.Errorf("table %s is missing after migration", table)
		}
	}
	return nil
}
