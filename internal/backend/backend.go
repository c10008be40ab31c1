package backend

import (
	"context"
	"errors"
)

// Kind identifies which storage engine a configuration or adapter targets.
type Kind string

const (
	// KindSQLite is the embedded single-writer engine.
	KindSQLite Kind = "sqlite"
	// KindPostgres is the network relational server with the pgvector extension.
	KindPostgres Kind = "postgres"
)

var (
	// ErrNotConnected is returned when an adapter is used before Connect.
	ErrNotConnected = errors.New("adapter is not connected")
	// ErrUnknownDriver is returned for an unrecognized backend kind.
	ErrUnknownDriver = errors.New("unknown backend driver")
)

// Row is the minimal single-row scan surface shared by database/sql and pgx.
type Row interface {
	Scan(dest ...any) error
}

// Tx is the transactional execution surface handed to migration procedures.
// Statements are written in the dialect of the backend that opened the
// transaction.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) error
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Adapter is the storage capability consumed by the migration executor and
// the transfer orchestrator. Open/close is the caller's responsibility;
// components borrow adapters and never own their lifecycle.
type Adapter interface {
	Kind() Kind
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// WithTx runs fn inside a single transaction, committing on nil and
	// rolling back on error.
	WithTx(ctx context.Context, fn func(Tx) error) error

	// Version ledger access. EnsureLedger creates the ledger table,
	// InsertLedgerEntry/DeleteLedgerEntry run inside the supplied
	// transaction so the ledger update is atomic with the schema change.
	EnsureLedger(ctx context.Context) error
	LedgerEntries(ctx context.Context) ([]LedgerEntry, error)
	InsertLedgerEntry(ctx context.Context, tx Tx, e LedgerEntry) error
	DeleteLedgerEntry(ctx context.Context, tx Tx, version int) error

	// Typed CRUD with upsert semantics keyed by record ID.
	UpsertNode(ctx context.Context, n Node) error
	ListNodes(ctx context.Context) ([]Node, error)
	UpsertEdge(ctx context.Context, e Edge) error
	ListEdges(ctx context.Context) ([]Edge, error)
	UpsertDocument(ctx context.Context, d Document) error
	ListDocuments(ctx context.Context) ([]Document, error)
	UpsertChunk(ctx context.Context, c Chunk) error
	ListChunks(ctx context.Context) ([]Chunk, error)

	// Stats reports aggregate record counts.
	Stats(ctx context.Context) (Stats, error)

	// VectorDim is the embedding width enforced by the backend, or 0 when
	// embeddings are stored free-form.
	VectorDim() int
}
