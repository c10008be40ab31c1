package graphmigrate

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/backend/postgres"
	"github.com/loykin/graphmigrate/internal/backend/sqlite"
	imig "github.com/loykin/graphmigrate/internal/migration"
	"github.com/loykin/graphmigrate/internal/pool"
	"github.com/loykin/graphmigrate/internal/transfer"
	"github.com/loykin/graphmigrate/internal/validate"
	"github.com/loykin/graphmigrate/pkg/status"
)

// Re-export commonly used types for public API

// Adapter is the storage backend contract shared by all drivers.
type Adapter = backend.Adapter

// Config is a driver-discriminated backend configuration.
type Config = backend.Config

// DriverConfig is the backend-kind-specific half of a Config.
type DriverConfig = backend.DriverConfig

// SqliteConfig configures the embedded backend.
type SqliteConfig = sqlite.Config

// PostgresConfig configures the network backend.
type PostgresConfig = postgres.Config

// Migration is one versioned schema change with per-backend procedures.
type Migration = imig.Migration

// ApplyResult summarizes a forward migration run.
type ApplyResult = imig.ApplyResult

// RollbackResult summarizes a rollback run.
type RollbackResult = imig.RollbackResult

// TransferResult is the outcome of one transfer operation.
type TransferResult = transfer.Result

// ValidationReport compares record populations between two backends.
type ValidationReport = validate.Report

// StatusInfo is a snapshot of a backend's migration state.
type StatusInfo = status.Info

// PoolManager owns named connection pools with health checks and recovery.
type PoolManager = pool.Manager

// ErrUnknownDriver is returned for a Config naming no registered driver.
var ErrUnknownDriver = backend.ErrUnknownDriver

// NewAdapter builds the storage adapter named by the config's driver. This
// is the single place the driver kind is dispatched.
func NewAdapter(cfg Config) (Adapter, error) {
	switch cfg.Kind() {
	case backend.KindSQLite:
		c, ok := cfg.DriverConfig.(*sqlite.Config)
		if !ok {
			c = &sqlite.Config{}
		}
		return sqlite.New(*c), nil
	case backend.KindPostgres:
		c, ok := cfg.DriverConfig.(*postgres.Config)
		if !ok {
			return nil, fmt.Errorf("postgres driver requires a postgres config")
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return postgres.New(*c), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// NewAdapterFromMap builds an adapter from a driver name and an untyped
// settings map, as produced by viper or deserialized documents.
func NewAdapterFromMap(driver string, spec map[string]interface{}) (Adapter, error) {
	switch backend.Kind(driver) {
	case backend.KindSQLite:
		var c sqlite.Config
		if err := mapstructure.Decode(spec, &c); err != nil {
			return nil, fmt.Errorf("failed to decode sqlite config: %w", err)
		}
		return sqlite.New(c), nil
	case backend.KindPostgres:
		var c postgres.Config
		if err := mapstructure.Decode(spec, &c); err != nil {
			return nil, fmt.Errorf("failed to decode postgres config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return postgres.New(c), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// NewPoolManager creates a connection pool manager with default settings.
func NewPoolManager() *PoolManager { return pool.NewManager() }

// MigrateUp applies all pending built-in migrations to the backend.
func MigrateUp(ctx context.Context, ad Adapter) (ApplyResult, error) {
	return imig.NewExecutor(imig.Default()).Apply(ctx, ad)
}

// MigrateDown rolls back applied migrations down to targetVersion.
func MigrateDown(ctx context.Context, ad Adapter, targetVersion int) (RollbackResult, error) {
	return imig.NewExecutor(imig.Default()).Rollback(ctx, ad, targetVersion)
}

// Status reports the backend's current version plus applied and pending
// migrations from the built-in catalog.
func Status(ctx context.Context, ad Adapter) (StatusInfo, error) {
	return status.FromAdapter(ctx, ad, imig.NewExecutor(imig.Default()))
}

// Transfer copies all record kinds from source to target and returns one
// result per operation. A nil embedder disables vector regeneration.
func Transfer(ctx context.Context, source, target Adapter, embedder transfer.Embedder) []TransferResult {
	catalog := transfer.Catalog(source, target, transfer.CatalogOptions{Embedder: embedder})
	return transfer.NewOrchestrator().Run(ctx, catalog)
}

// Validate compares record counts between source and target.
func Validate(ctx context.Context, source, target Adapter) (ValidationReport, error) {
	return validate.Compare(ctx, source, target)
}
