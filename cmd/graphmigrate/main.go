package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/loykin/graphmigrate"
	"github.com/loykin/graphmigrate/internal/backend/postgres"
	"github.com/loykin/graphmigrate/internal/pool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "graphmigrate",
	Short: "Migrate graph and vector schemas and move data between backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// loadConfig reads the YAML document named by the config flag and applies
// its logging settings.
func loadConfig() (*ConfigDoc, error) {
	v := viper.GetViper()
	configPath := strings.TrimSpace(v.GetString("config"))
	if configPath == "" {
		return nil, fmt.Errorf("a config file is required (--config)")
	}
	var doc ConfigDoc
	if err := doc.Load(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}
	if err := doc.SetupLogging(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// openAdapter connects the backend described by cfg. Network backends are
// opened through the pool manager so the vector feature probe runs before
// any migration touches the database. The returned closer releases
// whichever resource was opened.
func openAdapter(ctx context.Context, mgr *pool.Manager, name string, cfg graphmigrate.Config) (graphmigrate.Adapter, func(), error) {
	if pgCfg, ok := cfg.DriverConfig.(*postgres.Config); ok && cfg.Driver == "postgres" {
		if err := pgCfg.Validate(); err != nil {
			return nil, nil, err
		}
		p, err := mgr.CreatePool(ctx, name, *pgCfg)
		if err != nil {
			return nil, nil, err
		}
		ad := postgres.NewWithPool(*pgCfg, p)
		return ad, func() { _ = mgr.ClosePool(name) }, nil
	}

	ad, err := graphmigrate.NewAdapter(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := ad.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return ad, func() { _ = ad.Close() }, nil
}

// backendFlag reads a command's own backend selector. The flag is read from
// the command's flag set rather than a shared viper key so commands that
// declare the same flag name do not clobber each other.
func backendFlag(cmd *cobra.Command) string {
	side, err := cmd.Flags().GetString("backend")
	if err != nil {
		return "target"
	}
	return side
}

// openSide resolves a source/target selector against the config document
// and connects it.
func openSide(ctx context.Context, mgr *pool.Manager, doc *ConfigDoc, side string) (graphmigrate.Adapter, func(), error) {
	cfg, err := doc.backendFor(side)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Driver == "" {
		return nil, nil, fmt.Errorf("%s backend has no driver configured", side)
	}
	return openAdapter(ctx, mgr, side, cfg)
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", "./config/config.yaml")
	v.SetDefault("to", 0)
	v.SetDefault("backend", "target")

	// Environment variables support: GRAPHMIGRATE_CONFIG, ...
	v.SetEnvPrefix("GRAPHMIGRATE")
	v.AutomaticEnv()

	// Bind the shared config flag to Viper. Per-command flags (backend, to)
	// are read from each command's own flag set in its RunE.
	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml describing source/target backends")
	migrateCmd.Flags().String("backend", v.GetString("backend"), "which configured backend to migrate (source or target)")
	rollbackCmd.Flags().Int("to", v.GetInt("to"), "target version to roll back to (0 = everything)")
	rollbackCmd.Flags().String("backend", v.GetString("backend"), "which configured backend to roll back (source or target)")
	statusCmd.Flags().String("backend", v.GetString("backend"), "which configured backend to inspect (source or target)")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}
