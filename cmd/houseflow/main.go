// Houseflow - Home Automation Control Plane
//
// This is the main entry point for the Houseflow server. Houseflow
// brokers access between end-user clients and the devices connected to
// it over a persistent WebSocket session, authenticating both sides and
// dispatching fulfillment requests between them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/houseflow/houseflow/internal/api"
	"github.com/houseflow/houseflow/internal/clerk"
	"github.com/houseflow/houseflow/internal/codec"
	"github.com/houseflow/houseflow/internal/config"
	"github.com/houseflow/houseflow/internal/database"
	"github.com/houseflow/houseflow/internal/logging"
	"github.com/houseflow/houseflow/internal/registry"
	"github.com/houseflow/houseflow/internal/sqlitex"
	"github.com/houseflow/houseflow/internal/store"
	"github.com/houseflow/houseflow/internal/telemetry"
	"github.com/houseflow/houseflow/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const defaultConfigPath = "/etc/houseflow/config.toml"

func main() {
	fmt.Printf("Houseflow %s (%s) built %s\n", version, commit, date)
	fmt.Println("Home Automation Control Plane")
	fmt.Println("---")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getConfigPath() string {
	if v := os.Getenv("HOUSEFLOW_CONFIG"); v != "" {
		return v
	}
	return defaultConfigPath
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	fmt.Println("Starting Houseflow...")

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(cfg.Logging, version)
	logger.Info("configuration loaded", "listen_address", cfg.Server.ListenAddress)

	storeDB, err := sqlitex.Open(sqlitex.Config{
		Path:        cfg.RefreshStore.Path,
		BusyTimeout: cfg.RefreshStore.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening refresh-token store: %w", err)
	}
	defer storeDB.Close()
	if err := storeDB.Migrate(ctx, migrations.StoreFS, "store"); err != nil {
		return fmt.Errorf("migrating refresh-token store: %w", err)
	}

	databaseDB, err := sqlitex.Open(sqlitex.Config{Path: cfg.Database.DSN})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer databaseDB.Close()
	if err := databaseDB.Migrate(ctx, migrations.DatabaseFS, "database"); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	rec, err := telemetry.Connect(ctx, cfg.Telemetry.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting telemetry: %w", err)
	}
	defer rec.Close()

	srv, err := api.New(api.Deps{
		Config:        cfg,
		Logger:        logger,
		AccessCodec:   codec.NewAccessCodec(cfg.Secrets.AccessKey),
		RefreshCodec:  codec.NewRefreshCodec(cfg.Secrets.RefreshKey),
		AuthCodeCodec: codec.NewAuthorizationCodeCodec(cfg.Secrets.AuthorizationCodeKey),
		Store:         store.New(storeDB),
		Clerk: clerk.New(clerk.Config{
			CodeLength:   cfg.Clerk.CodeLength,
			LimitPerUser: cfg.Clerk.LimitPerUser,
			TTL:          cfg.ClerkTTL(),
		}),
		Registry:  registry.New(),
		Database:  database.NewSQLite(databaseDB),
		Telemetry: rec,
		Mailer:    api.NewLogMailer(logger),
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("constructing server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	fmt.Println("Initialisation complete. Waiting for shutdown signal...")

	<-ctx.Done()

	fmt.Println("\nShutdown signal received. Cleaning up...")

	if err := srv.Close(); err != nil {
		logger.Error("error during shutdown", "error", err)
	}

	fmt.Println("Houseflow stopped.")
	return nil
}
