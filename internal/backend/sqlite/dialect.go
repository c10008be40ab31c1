package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loykin/graphmigrate/internal/constants"
	_ "modernc.org/sqlite"
)

// Dialect implements SQL dialect details for SQLite
type Dialect struct{}

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// Placeholder returns SQLite-style placeholders (?)
func (s *Dialect) Placeholder(_ int) string {
	return "?"
}

// ConvertTimeToStorage converts time to SQLite storage format (RFC3339Nano string)
func (s *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC().Format(time.RFC3339Nano)
}

// ConvertTimeFromStorage converts SQLite string storage back to time.Time
func (s *Dialect) ConvertTimeFromStorage(val string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Connect establishes a connection to SQLite
func (s *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(constants.DefaultSQLiteMaxConnections)
	db.SetMaxIdleConns(constants.DefaultSQLiteMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultSQLiteLifetime)
	db.SetConnMaxIdleTime(constants.DefaultSQLiteIdleTime)

	return db, nil
}

// DriverName returns the driver name for logging
func (s *Dialect) DriverName() string {
	return "sqlite"
}
