// Command price-basket prices a basket against the stored discounts of a
// store and prints the quote as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/kart-discounts/internal/app"
	"github.com/xenking/kart-discounts/internal/domain/discount"
)

func main() {
	var (
		storeID     string
		storage     string
		databaseURL string
		packs       string
	)
	flag.StringVar(&storeID, "store", "", "store id")
	flag.StringVar(&storage, "storage", "", "storage backend, overrides DISCOUNTS_STORAGE")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL, overrides DISCOUNTS_DATABASE_URL")
	flag.StringVar(&packs, "packs", "", "comma-separated rule packs applied before pricing")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s -store ID [flags] PRODUCT=QTY...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		if storeID == "" {
			return errors.New("store is required")
		}
		orders, err := parseOrders(flag.Args())
		if err != nil {
			return err
		}

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
		if packs != "" {
			cfg.RulePacks = append(cfg.RulePacks, strings.Split(packs, ",")...)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		rt, err := appkg.Open(ctx, lg, m, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		q, err := rt.Pricing.Quote(ctx, &discount.Basket{StoreID: storeID, Orders: orders})
		if err != nil {
			return errors.Wrap(err, "quote")
		}

		var e jx.Encoder
		e.SetIdent(2)
		encodeQuote(&e, q)
		if _, err := os.Stdout.Write(append(e.Bytes(), '\n')); err != nil {
			return errors.Wrap(err, "write quote")
		}
		return nil
	})
}
