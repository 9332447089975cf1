package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"github.com/angelmondragon/ecofinds-storefront/pkg/docstore"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

//go:embed products.yaml
var defaultFixtures []byte

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	file := flag.String("file", "", "YAML fixture file (defaults to the built-in sample catalog)")
	dryRun := flag.Bool("dry-run", false, "validate fixtures without writing")
	flag.Parse()

	products, err := loadFixtures(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid fixtures: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		fmt.Printf("%d fixtures valid\n", len(products))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"docstore": cfg.DocStore.Driver,
	})

	store, err := docstore.Open(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open docstore", err)
		os.Exit(1)
	}
	defer store.Close()

	written, err := catalog.Seed(ctx, catalog.NewRepository(store), products)
	ctx = logg.WithField(ctx, "written", written)
	if err != nil {
		logg.Error(ctx, "seeding stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "catalog seeded")
}

func loadFixtures(path string) ([]catalog.Product, error) {
	var r io.Reader = bytes.NewReader(defaultFixtures)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return catalog.LoadFixtures(r)
}
