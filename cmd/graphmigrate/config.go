package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/graphmigrate"
	"github.com/loykin/graphmigrate/internal/backend/postgres"
	"github.com/loykin/graphmigrate/internal/backend/sqlite"
	"github.com/loykin/graphmigrate/internal/common"
	"gopkg.in/yaml.v3"
)

type BackendConfig struct {
	Driver   string          `mapstructure:"driver"`
	SQLite   sqlite.Config   `mapstructure:"sqlite"`
	Postgres postgres.Config `mapstructure:"postgres"`
}

// ToConfig converts the YAML form into the driver-discriminated config the
// library consumes.
func (b *BackendConfig) ToConfig() graphmigrate.Config {
	cfg := graphmigrate.Config{Driver: strings.TrimSpace(strings.ToLower(b.Driver))}
	switch cfg.Driver {
	case "sqlite":
		c := b.SQLite
		cfg.DriverConfig = &c
	case "postgres":
		c := b.Postgres
		cfg.DriverConfig = &c
	}
	return cfg
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // error, warn, info, debug
	Format string `mapstructure:"format"` // text, json, color
}

type ConfigDoc struct {
	Source  BackendConfig `mapstructure:"source"`
	Target  BackendConfig `mapstructure:"target"`
	Logging LoggingConfig `mapstructure:"logging"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user/CI; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	// Decode through a generic map so the driver configs' snake_case keys
	// and duration strings resolve via their mapstructure tags.
	var raw map[string]interface{}
	if err := yaml.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     c,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level := common.ParseLogLevel(c.Logging.Level)

	var logger *common.Logger
	switch strings.TrimSpace(strings.ToLower(c.Logging.Format)) {
	case "json":
		logger = common.NewJSONLogger(level)
	case "color", "colour":
		logger = common.NewColorLogger(level)
	case "text", "":
		logger = common.NewLogger(level)
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	common.SetDefaultLogger(logger)
	return nil
}

// backendFor returns the named side of the config document.
func (c *ConfigDoc) backendFor(side string) (graphmigrate.Config, error) {
	switch strings.TrimSpace(strings.ToLower(side)) {
	case "source":
		return c.Source.ToConfig(), nil
	case "target", "":
		return c.Target.ToConfig(), nil
	default:
		return graphmigrate.Config{}, fmt.Errorf("invalid backend selector: %s (valid: source, target)", side)
	}
}
