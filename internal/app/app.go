package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/kart-discounts/internal/domain/discount"
	"github.com/xenking/kart-discounts/internal/domain/pricing"
	"github.com/xenking/kart-discounts/internal/domain/product"
	"github.com/xenking/kart-discounts/internal/rulepack"
	"github.com/xenking/kart-discounts/internal/storage/memory"
	"github.com/xenking/kart-discounts/internal/storage/postgres"
)

// Runtime is the wired set of stores and the pricing facade.
type Runtime struct {
	Conditions discount.ConditionStore
	Discounts  discount.DiscountStore
	Catalog    product.Repository
	Pricing    *pricing.Service

	close func()
}

// Close releases the storage backend.
func (r *Runtime) Close() {
	if r.close != nil {
		r.close()
	}
}

// Open creates the configured storage backend, the pricing service on top of
// it, and applies the configured rule packs. m may be nil, in which case the
// global telemetry providers are used.
func Open(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) (*Runtime, error) {
	lg.Info("Initializing", zap.String("storage", cfg.Storage))

	rt := &Runtime{}
	switch cfg.Storage {
	case StorageMemory:
		rt.Conditions = memory.NewConditionStore()
		rt.Discounts = memory.NewDiscountStore()
		rt.Catalog = memory.NewCatalog()
	case StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		rt.close = pool.Close

		if cfg.Migrate {
			if err := postgres.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, errors.Wrap(err, "run migrations")
			}
		}
		rt.Conditions = postgres.NewConditionStore(pool)
		rt.Discounts = postgres.NewDiscountStore(pool)
		rt.Catalog = postgres.NewProductRepository(pool)
	default:
		return nil, errors.Errorf("unknown storage %q", cfg.Storage)
	}

	var opts []pricing.Option
	if m != nil {
		opts = append(opts,
			pricing.WithTracerProvider(m.TracerProvider()),
			pricing.WithMeterProvider(m.MeterProvider()),
		)
	}
	svc, err := pricing.NewService(rt.Conditions, rt.Discounts, product.Lookup{Repo: rt.Catalog}, opts...)
	if err != nil {
		rt.Close()
		return nil, errors.Wrap(err, "create pricing service")
	}
	rt.Pricing = svc

	if len(cfg.RulePacks) > 0 {
		if _, err := rt.Seed(ctx, cfg.RulePacks...); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

// Seed loads rule packs from paths and writes them to the runtime stores.
func (r *Runtime) Seed(ctx context.Context, paths ...string) (rulepack.Stats, error) {
	packs, err := rulepack.Load(ctx, paths...)
	if err != nil {
		return rulepack.Stats{}, errors.Wrap(err, "load rule packs")
	}
	stats, err := rulepack.Seeder{Catalog: r.Catalog, Rules: r.Pricing}.Apply(ctx, packs...)
	if err != nil {
		return stats, errors.Wrap(err, "apply rule packs")
	}
	return stats, nil
}
