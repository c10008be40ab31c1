package postgres

import (
	"fmt"
	"time"
)

// Dialect implements SQL dialect details for PostgreSQL
type Dialect struct{}

// NewDialect creates a new PostgreSQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// Placeholder returns PostgreSQL-style placeholders ($1, $2, etc.)
func (p *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// ConvertTimeToStorage converts time to PostgreSQL storage format (native time.Time)
func (p *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC()
}

// DriverName returns the driver name for logging
func (p *Dialect) DriverName() string {
	return "postgres"
}
