package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/common"
	"github.com/loykin/graphmigrate/internal/constants"
)

// Adapter is the network backend implementation on top of a pgx pool.
type Adapter struct {
	cfg     Config
	dialect *Dialect
	pool    *pgxpool.Pool
	// external pools are owned by the pool manager, not by this adapter
	external bool
}

// New creates an unconnected PostgreSQL adapter that will own its pool.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:     cfg,
		dialect: NewDialect(),
	}
}

// NewWithPool creates an adapter over a pool owned by someone else, usually
// the connection pool manager. Close leaves such pools open.
func NewWithPool(cfg Config, pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		cfg:      cfg,
		dialect:  NewDialect(),
		pool:     pool,
		external: true,
	}
}

// Kind returns the network backend kind.
func (a *Adapter) Kind() backend.Kind {
	return backend.KindPostgres
}

// Connect builds the pool from configuration unless one was injected, then
// verifies connectivity.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.pool == nil {
		pc, err := a.cfg.PoolConfig()
		if err != nil {
			return err
		}
		pool, err := pgxpool.NewWithConfig(ctx, pc)
		if err != nil {
			return fmt.Errorf("failed to create postgres pool: %w", err)
		}
		a.pool = pool
	}
	if err := a.pool.Ping(ctx); err != nil {
		if !a.external {
			a.pool.Close()
			a.pool = nil
		}
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger := common.GetLogger().WithBackend(a.dialect.DriverName())
	logger.Info("PostgreSQL connection established", "host", a.cfg.Host, "dbname", a.cfg.DBName)
	return nil
}

// Close releases the pool when the adapter owns it.
func (a *Adapter) Close() error {
	if a.pool != nil && !a.external {
		a.pool.Close()
	}
	a.pool = nil
	return nil
}

// Ping verifies the connection is usable.
func (a *Adapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return backend.ErrNotConnected
	}
	return a.pool.Ping(ctx)
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.Exec(ctx, query, args...)
	return err
}

func (t *pgxTx) QueryRow(ctx context.Context, query string, args ...any) backend.Row {
	return t.tx.QueryRow(ctx, query, args...)
}

// WithTx runs fn inside one transaction, committing on nil and rolling back
// on error.
func (a *Adapter) WithTx(ctx context.Context, fn func(backend.Tx) error) error {
	if a.pool == nil {
		return backend.ErrNotConnected
	}
	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&pgxTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EnsureLedger creates the version ledger table when missing.
func (a *Adapter) EnsureLedger(ctx context.Context) error {
	if a.pool == nil {
		return backend.ErrNotConnected
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL
	)`, constants.LedgerTable)
	if _, err := a.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("failed to ensure ledger table: %w", err)
	}
	return nil
}

// LedgerEntries returns applied migrations sorted ascending by version.
func (a *Adapter) LedgerEntries(ctx context.Context) ([]backend.LedgerEntry, error) {
	if a.pool == nil {
		return nil, backend.ErrNotConnected
	}
	q := fmt.Sprintf("SELECT version, description, applied_at FROM %s ORDER BY version ASC", constants.LedgerTable)
	rows, err := a.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []backend.LedgerEntry
	for rows.Next() {
		var e backend.LedgerEntry
		if err := rows.Scan(&e.Version, &e.Description, &e.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertLedgerEntry records an applied version inside the given transaction.
func (a *Adapter) InsertLedgerEntry(ctx context.Context, tx backend.Tx, e backend.LedgerEntry) error {
	q := fmt.Sprintf("INSERT INTO %s(version, description, applied_at) VALUES($1, $2, $3)", constants.LedgerTable)
	return tx.Exec(ctx, q, e.Version, e.Description, a.dialect.ConvertTimeToStorage(e.AppliedAt))
}

// DeleteLedgerEntry removes a version row inside the given transaction.
func (a *Adapter) DeleteLedgerEntry(ctx context.Context, tx backend.Tx, version int) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE version = $1", constants.LedgerTable)
	return tx.Exec(ctx, q, version)
}

// UpsertNode inserts or overwrites a node keyed by its ID.
func (a *Adapter) UpsertNode(ctx context.Context, n backend.Node) error {
	if a.pool == nil {
		return backend.ErrNotConnected
	}
	if err := n.Validate(); err != nil {
		return err
	}
	_, err := a.pool.Exec(ctx, `INSERT INTO nodes(id, label, kind, properties, created_at) VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, kind = EXCLUDED.kind, properties = EXCLUDED.properties`,
		n.ID, n.Label, n.Kind, n.Properties, a.dialect.ConvertTimeToStorage(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", n.ID, err)
	}
	return nil
}

// ListNodes returns all nodes ordered by ID.
func (a *Adapter) ListNodes(ctx context.Context) ([]backend.Node, error) {
	if a.pool == nil {
		return nil, backend.ErrNotConnected
	}
	rows, err := a.pool.Query(ctx, `SELECT id, label, kind, COALESCE(properties, ''), created_at FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var out []backend.Node
	for rows.Next() {
		var n backend.Node
		if err := rows.Scan(&n.ID, &n.Label, &n.Kind, &n.Properties, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpsertEdge inserts or overwrites an edge keyed by its ID.
func (a *Adapter) UpsertEdge(ctx context.Context, e backend.Edge) error {
	if a.pool == nil {
		return backend.ErrNotConnected
	}
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := a.pool.Exec(ctx, `INSERT INTO edges(id, source_id, target_id, rel_type, weight, properties, created_at) VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET source_id = EXCLUDED.source_id, target_id = EXCLUDED.target_id, rel_type = EXCLUDED.rel_type, weight = EXCLUDED.weight, properties = EXCLUDED.properties`,
		e.ID, e.SourceID, e.TargetID, e.RelType, e.Weight, e.Properties, a.dialect.ConvertTimeToStorage(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert edge %s: %w", e.ID, err)
	}
	return nil
}

// ListEdges returns all edges ordered by ID.
func (a *Adapter) ListEdges(ctx context.Context) ([]backend.Edge, error) {
	if a.pool == nil {
		return nil, backend.ErrNotConnected
	}
	rows, err := a.pool.Query(ctx, `SELECT id, source_id, target_id, rel_type, weight, COALESCE(properties, ''), created_at FROM edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	var out []backend.Edge
	for rows.Next() {
		var e backend.Edge
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.RelType, &e.Weight, &e.Properties, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertDocument inserts or overwrites a document keyed by its ID.
func (a *Adapter) UpsertDocument(ctx context.Context, d backend.Document) error {
	if a.pool == nil {
		return backend.ErrNotConnected
	}
	if err := d.Validate(); err != nil {
		return err
	}
	_, err := a.pool.Exec(ctx, `INSERT INTO documents(id, title, content, metadata, created_at) VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, content = EXCLUDED.content, metadata = EXCLUDED.metadata`,
		d.ID, d.Title, d.Content, d.Metadata, a.dialect.ConvertTimeToStorage(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", d.ID, err)
	}
	return nil
}

// ListDocuments returns all documents ordered by ID.
func (a *Adapter) ListDocuments(ctx context.Context) ([]backend.Document, error) {
	if a.pool == nil {
		return nil, backend.ErrNotConnected
	}
	rows, err := a.pool.Query(ctx, `SELECT id, title, content, COALESCE(metadata, ''), created_at FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []backend.Document
	for rows.Next() {
		var d backend.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Metadata, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertChunk inserts or overwrites a chunk keyed by its ID. The embedding is
// cast into the pgvector column; an absent embedding stores NULL.
func (a *Adapter) UpsertChunk(ctx context.Context, c backend.Chunk) error {
	if a.pool == nil {
		return backend.ErrNotConnected
	}
	if err := c.Validate(); err != nil {
		return err
	}
	var embedding any
	if len(c.Embedding) > 0 {
		embedding = backend.EncodeVector(c.Embedding)
	}
	_, err := a.pool.Exec(ctx, `INSERT INTO chunks(id, document_id, position, content, embedding, created_at) VALUES($1, $2, $3, $4, $5::vector, $6)
		ON CONFLICT (id) DO UPDATE SET document_id = EXCLUDED.document_id, position = EXCLUDED.position, content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
		c.ID, c.DocumentID, c.Position, c.Content, embedding, a.dialect.ConvertTimeToStorage(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
	}
	return nil
}

// ListChunks returns all chunks ordered by document and position.
func (a *Adapter) ListChunks(ctx context.Context) ([]backend.Chunk, error) {
	if a.pool == nil {
		return nil, backend.ErrNotConnected
	}
	rows, err := a.pool.Query(ctx, `SELECT id, document_id, position, content, COALESCE(embedding::text, ''), created_at FROM chunks ORDER BY document_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var out []backend.Chunk
	for rows.Next() {
		var c backend.Chunk
		var embedding string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Position, &c.Content, &embedding, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.Embedding = backend.ParseVector(embedding)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats counts records across all four tables.
func (a *Adapter) Stats(ctx context.Context) (backend.Stats, error) {
	if a.pool == nil {
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
		if err := a.pool.QueryRow(ctx, q).Scan(c.dest); err != nil {
			return backend.Stats{}, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	return st, nil
}

// VectorDim is the embedding width enforced by the pgvector columns.
func (a *Adapter) VectorDim() int {
	if a.cfg.VectorDim > 0 {
		return a.cfg.VectorDim
	}
	return constants.DefaultVectorDim
}
