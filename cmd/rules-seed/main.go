// Command rules-seed validates rule packs and writes their products and
// discount trees to the configured storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/kart-discounts/internal/app"
	"github.com/xenking/kart-discounts/internal/rulepack"
)

func main() {
	var (
		storage     string
		databaseURL string
		dryRun      bool
	)
	flag.StringVar(&storage, "storage", "", "storage backend, overrides DISCOUNTS_STORAGE")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL, overrides DISCOUNTS_DATABASE_URL")
	flag.BoolVar(&dryRun, "dry-run", false, "validate packs without writing them")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] PACK...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		if storage != "" {
			cfg.Storage = storage
		}
		if databaseURL != "" {
			cfg.DatabaseURL = databaseURL
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		paths := append(cfg.RulePacks, flag.Args()...)
		if len(paths) == 0 {
			return errors.New("no rule packs given")
		}

		if dryRun {
			packs, err := rulepack.Load(ctx, paths...)
			if err != nil {
				return err
			}
			for _, p := range packs {
				lg.Info("Rule pack is valid",
					zap.String("source", p.Source),
					zap.Int("products", len(p.Products)),
					zap.Int("discounts", len(p.Discounts)),
				)
			}
			return nil
		}

		// Packs are applied explicitly below, not on open.
		cfg.RulePacks = nil
		rt, err := appkg.Open(ctx, lg, m, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.Seed(ctx, paths...)
		if err != nil {
			return err
		}
		lg.Info("Seed completed",
			zap.Int("products", stats.Products),
			zap.Int("discounts", stats.Discounts),
		)
		return nil
	})
}
