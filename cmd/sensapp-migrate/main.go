package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pv/sensapp/internal/config"
	"github.com/pv/sensapp/internal/storage/clickhouse"
	"github.com/pv/sensapp/internal/storage/postgres"
	"github.com/pv/sensapp/internal/storage/sqlite"
)

func main() {
	var configYAML string
	var vacuum bool
	flag.StringVar(&configYAML, "config-yaml", "", "path to YAML file with default config values")
	flag.BoolVar(&vacuum, "vacuum", false, "run backend compaction after migrating")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Creates or migrates the schema for STORAGE_CONNECTION_STRING, then exits.")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configYAML)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	src := cfg.StorageConnectionString

	switch {
	case postgres.IsSource(src):
		store, err := postgres.New(ctx, postgres.Config{ConnString: src})
		if err != nil {
			logger.Error("postgres", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		runMigration(ctx, logger, store, vacuum)

	case sqlite.IsSource(src):
		store, err := sqlite.New(ctx, sqlite.Config{
			Source: sqlite.NormalizeSource(src),
			Pragmas: sqlite.Pragmas{
				CacheMB:    100,
				WAL:        true,
				TempMemory: true,
			},
		})
		if err != nil {
			logger.Error("sqlite", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		runMigration(ctx, logger, store, vacuum)

	case clickhouse.IsSource(src):
		store, err := clickhouse.New(ctx, clickhouse.Config{DSN: src})
		if err != nil {
			logger.Error("clickhouse", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		runMigration(ctx, logger, store, vacuum)

	default:
		logger.Error("unsupported STORAGE_CONNECTION_STRING", "value", src)
		os.Exit(1)
	}
}

// migrator is the subset of storage.Storage this tool drives.
type migrator interface {
	CreateOrMigrate(ctx context.Context) error
	Vacuum(ctx context.Context) error
}

func runMigration(ctx context.Context, logger *slog.Logger, store migrator, vacuum bool) {
	if err := store.CreateOrMigrate(ctx); err != nil {
		logger.Error("create or migrate", "error", err)
		os.Exit(1)
	}
	logger.Info("schema is up to date")

	if !vacuum {
		return
	}
	if err := store.Vacuum(ctx); err != nil {
		logger.Error("vacuum", "error", err)
		os.Exit(1)
	}
	logger.Info("vacuum complete")
}
