package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/common"
	"github.com/loykin/graphmigrate/internal/constants"
)

// Adapter is the embedded backend implementation on top of modernc sqlite.
type Adapter struct {
	cfg     Config
	dialect *Dialect
	db      *sql.DB
}

// New creates an unconnected SQLite adapter for the given configuration.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:     cfg,
		dialect: NewDialect(),
	}
}

// Kind returns the embedded backend kind.
func (a *Adapter) Kind() backend.Kind {
	return backend.KindSQLite
}

// Connect opens the database file and applies the journal-mode setting.
func (a *Adapter) Connect(ctx context.Context) error {
	db, err := a.dialect.Connect(a.cfg.DSN())
	if err != nil {
		return err
	}
	if a.cfg.WAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	a.db = db

	logger := common.GetLogger().WithBackend(a.dialect.DriverName())
	logger.Info("SQLite database connection established", "path", a.cfg.Path, "wal", a.cfg.WAL)
	return nil
}

// Close closes the database connection
func (a *Adapter) Close() error {
	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		return err
	}
	return nil
}

// Ping verifies the connection is usable.
func (a *Adapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return backend.ErrNotConnected
	}
	return a.db.PingContext(ctx)
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

func (t *sqlTx) QueryRow(ctx context.Context, query string, args ...any) backend.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// WithTx runs fn inside one transaction, committing on nil and rolling back
// on error.
func (a *Adapter) WithTx(ctx context.Context, fn func(backend.Tx) error) error {
	if a.db == nil {
		return backend.ErrNotConnected
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&sqlTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EnsureLedger creates the version ledger table when missing.
func (a *Adapter) EnsureLedger(ctx context.Context) error {
	if a.db == nil {
		return backend.ErrNotConnected
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`, constants.LedgerTable)
	if _, err := a.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to ensure ledger table: %w", err)
	}
	return nil
}

// LedgerEntries returns applied migrations sorted ascending by version.
func (a *Adapter) LedgerEntries(ctx context.Context) ([]backend.LedgerEntry, error) {
	if a.db == nil {
		return nil, backend.ErrNotConnected
	}
	q := fmt.Sprintf("SELECT version, description, applied_at FROM %s ORDER BY version ASC", constants.LedgerTable)
	rows, err := a.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []backend.LedgerEntry
	for rows.Next() {
		var e backend.LedgerEntry
		var appliedAt string
		if err := rows.Scan(&e.Version, &e.Description, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.AppliedAt = a.dialect.ConvertTimeFromStorage(appliedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertLedgerEntry records an applied version inside the given transaction.
func (a *Adapter) InsertLedgerEntry(ctx context.Context, tx backend.Tx, e backend.LedgerEntry) error {
	q := fmt.Sprintf("INSERT INTO %s(version, description, applied_at) VALUES(?, ?, ?)", constants.LedgerTable)
	return tx.Exec(ctx, q, e.Version, e.Description, a.dialect.ConvertTimeToStorage(e.AppliedAt))
}

// DeleteLedgerEntry removes a version row inside the given transaction.
func (a *Adapter) DeleteLedgerEntry(ctx context.Context, tx backend.Tx, version int) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE version = ?", constants.LedgerTable)
	return tx.Exec(ctx, q, version)
}

// UpsertNode inserts or overwrites a node keyed by its ID.
func (a *Adapter) UpsertNode(ctx context.Context, n backend.Node) error {
	if a.db == nil {
		return backend.ErrNotConnected
	}
	if err := n.Validate(); err != nil {
		return err
	}
	_, err := a.db.ExecContext(ctx, `INSERT INTO nodes(id, label, kind, properties, created_at) VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET label = excluded.label, kind = excluded.kind, properties = excluded.properties`,
		n.ID, n.Label, n.Kind, n.Properties, a.dialect.ConvertTimeToStorage(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", n.ID, err)
	}
	return nil
}

// ListNodes returns all nodes ordered by ID.
func (a *Adapter) ListNodes(ctx context.Context) ([]backend.Node, error) {
	if a.db == nil {
		return nil, backend.ErrNotConnected
	}
	rows, err := a.db.QueryContext(ctx, `SELECT id, label, kind, COALESCE(properties, ''), created_at FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []backend.Node
	for rows.Next() {
		var n backend.Node
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Label, &n.Kind, &n.Properties, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.CreatedAt = a.dialect.ConvertTimeFromStorage(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpsertEdge inserts or overwrites an edge keyed by its ID.
func (a *Adapter) UpsertEdge(ctx context.Context, e backend.Edge) error {
	if a.db == nil {
		return backend.ErrNotConnected
	}
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := a.db.ExecContext(ctx, `INSERT INTO edges(id, source_id, target_id, rel_type, weight, properties, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET source_id = excluded.source_id, target_id = excluded.target_id, rel_type = excluded.rel_type, weight = excluded.weight, properties = excluded.properties`,
		e.ID, e.SourceID, e.TargetID, e.RelType, e.Weight, e.Properties, a.dialect.ConvertTimeToStorage(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert edge %s: %w", e.ID, err)
	}
	return nil
}

// ListEdges returns all edges ordered by ID.
func (a *Adapter) ListEdges(ctx context.Context) ([]backend.Edge, error) {
	if a.db == nil {
		return nil, backend.ErrNotConnected
	}
	rows, err := a.db.QueryContext(ctx, `SELECT id, source_id, target_id, rel_type, weight, COALESCE(properties, ''), created_at FROM edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []backend.Edge
	for rows.Next() {
		var e backend.Edge
		var createdAt string
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.RelType, &e.Weight, &e.Properties, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.CreatedAt = a.dialect.ConvertTimeFromStorage(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertDocument inserts or overwrites a document keyed by its ID.
func (a *Adapter) UpsertDocument(ctx context.Context, d backend.Document) error {
	if a.db == nil {
		return backend.ErrNotConnected
	}
	if err := d.Validate(); err != nil {
		return err
	}
	_, err := a.db.ExecContext(ctx, `INSERT INTO documents(id, title, content, metadata, created_at) VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, content = excluded.content, metadata = excluded.metadata`,
		d.ID, d.Title, d.Content, d.Metadata, a.dialect.ConvertTimeToStorage(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", d.ID, err)
	}
	return nil
}

// ListDocuments returns all documents ordered by ID.
func (a *Adapter) ListDocuments(ctx context.Context) ([]backend.Document, error) {
	if a.db == nil {
		return nil, backend.ErrNotConnected
	}
	rows, err := a.db.QueryContext(ctx, `SELECT id, title, content, COALESCE(metadata, ''), created_at FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []backend.Document
	for rows.Next() {
		var d backend.Document
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.CreatedAt = a.dialect.ConvertTimeFromStorage(createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertChunk inserts or overwrites a chunk keyed by its ID. The embedding is
// stored as bracketed JSON text since SQLite has no vector type.
func (a *Adapter) UpsertChunk(ctx context.Context, c backend.Chunk) error {
	if a.db == nil {
		return backend.ErrNotConnected
	}
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := a.db.ExecContext(ctx, `INSERT INTO chunks(id, document_id, position, content, embedding, created_at) VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document_id = excluded.document_id, position = excluded.position, content = excluded.content, embedding = excluded.embedding`,
		c.ID, c.DocumentID, c.Position, c.Content, backend.EncodeVector(c.Embedding), a.dialect.ConvertTimeToStorage(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
	}
	return nil
}

// ListChunks returns all chunks ordered by document and position.
func (a *Adapter) ListChunks(ctx context.Context) ([]backend.Chunk, error) {
	if a.db == nil {
		return nil, backend.ErrNotConnected
	}
	rows, err := a.db.QueryContext(ctx, `SELECT id, document_id, position, content, COALESCE(embedding, ''), created_at FROM chunks ORDER BY document_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []backend.Chunk
	for rows.Next() {
		var c backend.Chunk
		var embedding, createdAt string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Position, &c.Content, &embedding, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.Embedding = backend.ParseVector(embedding)
		c.CreatedAt = a.dialect.ConvertTimeFromStorage(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats counts records across all four tables.
func (a *Adapter) Stats(ctx context.Context) (backend.Stats, error) {
	if a.db == nil {
		return backend.Stats{}, backend.ErrNotConnected
	}
	var st backend.Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"nodes", &st.Nodes},
		{"edges", &st.Edges},
		{"documents", &st.Documents},
		{"chunks", &st.Chunks},
	}
	for _, c := range counts {
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)
		if err := a.db.QueryRowContext(ctx, q).Scan(c.dest); err != nil {
			return backend.Stats{}, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	return st, nil
}

// VectorDim returns 0: embeddings are stored free-form as JSON text.
func (a *Adapter) VectorDim() int {
	return 0
}
