package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pv/sensapp/internal/api"
	"github.com/pv/sensapp/internal/bus"
	"github.com/pv/sensapp/internal/config"
	"github.com/pv/sensapp/internal/storage"
	"github.com/pv/sensapp/internal/storage/clickhouse"
	"github.com/pv/sensapp/internal/storage/postgres"
	"github.com/pv/sensapp/internal/storage/sqlite"
)

const version = "0.1.0-dev"

func main() {
	var configYAML string
	var printVersion bool
	flag.StringVar(&configYAML, "config-yaml", "", "path to YAML file with default config values")
	flag.BoolVar(&printVersion, "version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Sensor ingestion and query server. Configured via environment variables;")
		fmt.Fprintln(flag.CommandLine.Output(), "see STORAGE_CONNECTION_STRING, PORT, ENDPOINT, BATCH_SIZE, SENSOR_SALT,")
		fmt.Fprintln(flag.CommandLine.Output(), "HTTP_BODY_LIMIT, STORAGE_SYNC_TIMEOUT_SECONDS, INSTANCE_ID.")
		flag.PrintDefaults()
	}
	flag.Parse()

	if printVersion {
		fmt.Println("sensapp", version)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configYAML)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, closer, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Error("storage", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer()
	}

	if err := store.CreateOrMigrate(ctx); err != nil {
		logger.Error("storage: create or migrate", "error", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := bus.NewEventBus("sensapp", bus.DefaultCapacity)
	eventBus.AttachStorage(runCtx, store, logger)
	server := api.NewServer(store, eventBus, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Endpoint, cfg.Port)
	logger.Info("starting sensapp", "addr", addr, "instance_id", cfg.InstanceID, "storage", cfg.StorageConnectionString)
	if err := server.Listen(runCtx, addr); err != nil && err != context.Canceled {
		logger.Error("http server", "error", err)
		os.Exit(1)
	}
}

// openStorage selects a backend by the scheme of STORAGE_CONNECTION_STRING,
// mirroring the teacher's initStorage scheme-dispatch in cmd/timemachine.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	src := cfg.StorageConnectionString

	if postgres.IsSource(src) {
		store, err := postgres.New(ctx, postgres.Config{ConnString: src})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return store, store.Close, nil
	}

	if sqlite.IsSource(src) {
		store, err := sqlite.New(ctx, sqlite.Config{
			Source: sqlite.NormalizeSource(src),
			Pragmas: sqlite.Pragmas{
				CacheMB:    100,
				WAL:        true,
				SyncOff:    false,
				TempMemory: true,
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}

	if clickhouse.IsSource(src) {
		store, err := clickhouse.New(ctx, clickhouse.Config{DSN: src})
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unsupported STORAGE_CONNECTION_STRING: %s", src)
}
