package sqlite

import (
	"fmt"

	"github.com/loykin/graphmigrate/internal/constants"
)

// Config holds the embedded backend settings: a database file path and the
// write-ahead-log toggle.
type Config struct {
	Path string `mapstructure:"path"`
	WAL  bool   `mapstructure:"wal"`
}

func (c *Config) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"path": c.Path,
		"wal":  c.WAL,
	}
}

// DSN builds the sqlite connection string for the configured path.
func (c *Config) DSN() string {
	path := c.Path
	if path == "" {
		path = ":memory:"
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_fk=1", path, constants.SQLiteBusyTimeoutMS)
}
