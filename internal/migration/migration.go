package migration

import (
	"context"
	"errors"

	"github.com/loykin/graphmigrate/internal/backend"
)

var (
	// ErrNonReversible is returned when a rollback selects a migration
	// that has no revert procedure for the target backend.
	ErrNonReversible = errors.New("non-reversible migration")
	// ErrDuplicateVersion is returned when a registry is built with two
	// migrations sharing a version number.
	ErrDuplicateVersion = errors.New("duplicate migration version")
)

// Procedure is one backend-specific schema change executed inside a
// transaction. A procedure may be an intentional skip that only logs.
type Procedure func(ctx context.Context, tx backend.Tx) error

// Migration is one versioned schema change with backend-specific forward
// and optional backward procedures. Migrations are defined at build time
// and immutable at runtime.
type Migration struct {
	Version     int
	Description string
	Procedures  map[backend.Kind]Procedure
	Reverts     map[backend.Kind]Procedure
}

// Reversible reports whether the migration can be rolled back on the
// given backend.
func (m Migration) Reversible(kind backend.Kind) bool {
	_, ok := m.Reverts[kind]
	return ok
}

// Applied summarizes one migration touched by an apply or rollback call.
type Applied struct {
	Version     int
	Description string
}

// ApplyResult reports the outcome of one apply invocation.
type ApplyResult struct {
	Applied     int
	NewVersion  int
	AppliedList []Applied
}

// RollbackResult reports the outcome of one rollback invocation.
type RollbackResult struct {
	RolledBack     int
	NewVersion     int
	RolledBackList []Applied
}
