package migration

import (
	"context"
	"fmt"
	"sort"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/common"
	"github.com/loykin/graphmigrate/internal/constants"
)

// Registry is the ordered catalog of migration definitions. Build one
// explicitly and pass it to the executor; there is no process-wide instance.
type Registry struct {
	migrations []Migration
}

// NewRegistry validates and orders the given migrations by version.
func NewRegistry(migrations ...Migration) (*Registry, error) {
	seen := make(map[int]bool, len(migrations))
	for _, m := range migrations {
		if m.Version < 1 {
			return nil, fmt.Errorf("migration %q: version must be >= 1, got %d", m.Description, m.Version)
		}
		if seen[m.Version] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateVersion, m.Version)
		}
		seen[m.Version] = true
		if len(m.Procedures) == 0 {
			return nil, fmt.Errorf("migration v%d: no apply procedures defined", m.Version)
		}
	}
	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })
	return &Registry{migrations: ordered}, nil
}

// All returns the migrations in ascending version order.
func (r *Registry) All() []Migration {
	out := make([]Migration, len(r.migrations))
	copy(out, r.migrations)
	return out
}

// ByVersion returns the migration with the given version.
func (r *Registry) ByVersion(version int) (Migration, bool) {
	for _, m := range r.migrations {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}

// After returns migrations with a version greater than cur, ascending.
func (r *Registry) After(cur int) []Migration {
	var out []Migration
	for _, m := range r.migrations {
		if m.Version > cur {
			out = append(out, m)
		}
	}
	return out
}

// Latest returns the highest registered version, or 0 when empty.
func (r *Registry) Latest() int {
	if len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].Version
}

func execProcedure(sql string) Procedure {
	return func(ctx context.Context, tx backend.Tx) error {
		return tx.Exec(ctx, sql)
	}
}

func execProcedures(sqls ...string) Procedure {
	return func(ctx context.Context, tx backend.Tx) error {
		for _, q := range sqls {
			if err := tx.Exec(ctx, q); err != nil {
				return err
			}
		}
		return nil
	}
}

func skipProcedure(version int, reason string) Procedure {
	return func(ctx context.Context, _ backend.Tx) error {
		common.GetLogger().WithComponent("migration").WithVersion(version).
			Info("skipping migration on this backend", "reason", reason)
		return nil
	}
}

// Default returns the built-in registry describing the graph store schema
// on both backends.
func Default() *Registry {
	vectorCol := fmt.Sprintf("ALTER TABLE chunks ADD COLUMN IF NOT EXISTS embedding vector(%d)", constants.DefaultVectorDim)

	r, err := NewRegistry(
		Migration{
			Version:     1,
			Description: "create graph tables",
			Procedures: map[backend.Kind]Procedure{
				backend.KindSQLite: execProcedures(
					`CREATE TABLE IF NOT EXISTS nodes (
						id TEXT PRIMARY KEY,
						label TEXT NOT NULL,
						kind TEXT NOT NULL,
						properties TEXT,
						created_at TEXT NOT NULL
					)`,
					`CREATE TABLE IF NOT EXISTS edges (
						id TEXT PRIMARY KEY,
						source_id TEXT NOT NULL,
						target_id TEXT NOT NULL,
						rel_type TEXT NOT NULL,
						weight REAL NOT NULL DEFAULT 1.0,
						properties TEXT,
						created_at TEXT NOT NULL
					)`,
				),
				backend.KindPostgres: execProcedures(
					`CREATE TABLE IF NOT EXISTS nodes (
						id TEXT PRIMARY KEY,
						label TEXT NOT NULL,
						kind TEXT NOT NULL,
						properties TEXT,
						created_at TIMESTAMPTZ NOT NULL
					)`,
					`CREATE TABLE IF NOT EXISTS edges (
						id TEXT PRIMARY KEY,
						source_id TEXT NOT NULL,
						target_id TEXT NOT NULL,
						rel_type TEXT NOT NULL,
						weight DOUBLE PRECISION NOT NULL DEFAULT 1.0,
						properties TEXT,
						created_at TIMESTAMPTZ NOT NULL
					)`,
				),
			},
			Reverts: map[backend.Kind]Procedure{
				backend.KindSQLite:   execProcedures("DROP TABLE IF EXISTS edges", "DROP TABLE IF EXISTS nodes"),
				backend.KindPostgres: execProcedures("DROP TABLE IF EXISTS edges", "DROP TABLE IF EXISTS nodes"),
			},
		},
		Migration{
			Version:     2,
			Description: "create document tables",
			Procedures: map[backend.Kind]Procedure{
				backend.KindSQLite: execProcedures(
					`CREATE TABLE IF NOT EXISTS documents (
						id TEXT PRIMARY KEY,
						title TEXT NOT NULL,
						content TEXT NOT NULL,
						metadata TEXT,
						created_at TEXT NOT NULL
					)`,
					`CREATE TABLE IF NOT EXISTS chunks (
						id TEXT PRIMARY KEY,
						document_id TEXT NOT NULL,
						position INTEGER NOT NULL,
						content TEXT NOT NULL,
						created_at TEXT NOT NULL
					)`,
					"CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)",
				),
				backend.KindPostgres: execProcedures(
					`CREATE TABLE IF NOT EXISTS documents (
						id TEXT PRIMARY KEY,
						title TEXT NOT NULL,
						content TEXT NOT NULL,
						metadata TEXT,
						created_at TIMESTAMPTZ NOT NULL
					)`,
					`CREATE TABLE IF NOT EXISTS chunks (
						id TEXT PRIMARY KEY,
						document_id TEXT NOT NULL,
						position INTEGER NOT NULL,
						content TEXT NOT NULL,
						created_at TIMESTAMPTZ NOT NULL
					)`,
					"CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)",
				),
			},
			Reverts: map[backend.Kind]Procedure{
				backend.KindSQLite:   execProcedures("DROP TABLE IF EXISTS chunks", "DROP TABLE IF EXISTS documents"),
				backend.KindPostgres: execProcedures("DROP TABLE IF EXISTS chunks", "DROP TABLE IF EXISTS documents"),
			},
		},
		Migration{
			Version:     3,
			Description: "add embedding storage",
			Procedures: map[backend.Kind]Procedure{
				// SQLite has no vector type; embeddings live in a JSON text column
				backend.KindSQLite: execProcedure("ALTER TABLE chunks ADD COLUMN embedding TEXT"),
				backend.KindPostgres: execProcedures(
					"CREATE EXTENSION IF NOT EXISTS vector",
					vectorCol,
				),
			},
			Reverts: map[backend.Kind]Procedure{
				backend.KindSQLite:   execProcedure("ALTER TABLE chunks DROP COLUMN embedding"),
				backend.KindPostgres: execProcedure("ALTER TABLE chunks DROP COLUMN IF EXISTS embedding"),
			},
		},
		Migration{
			Version:     4,
			Description: "create vector similarity index",
			Procedures: map[backend.Kind]Procedure{
				backend.KindSQLite: skipProcedure(4, "no native vector index on the embedded backend"),
				backend.KindPostgres: execProcedure(
					"CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)",
				),
			},
			Reverts: map[backend.Kind]Procedure{
				backend.KindSQLite:   skipProcedure(4, "no native vector index on the embedded backend"),
				backend.KindPostgres: execProcedure("DROP INDEX IF EXISTS idx_chunks_embedding"),
			},
		},
	)
	if err != nil {
		// The built-in catalog is validated by tests; a failure here is a
		// programmer error.
		panic(err)
	}
	return r
}
