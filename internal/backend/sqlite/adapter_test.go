package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/migration"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a := New(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	exec := migration.NewExecutor(migration.Default())
	if _, err := exec.Apply(ctx, a); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return a
}

func TestAdapterNotConnected(t *testing.T) {
	a := New(Config{Path: filepath.Join(t.TempDir(), "unused.db")})
	ctx := context.Background()

	if err := a.Ping(ctx); !errors.Is(err, backend.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := a.UpsertNode(ctx, backend.Node{ID: "n1", Label: "x"}); !errors.Is(err, backend.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if _, err := a.Stats(ctx); !errors.Is(err, backend.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestNodeUpsertAndList(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	n := backend.Node{ID: "n1", Label: "Person", Kind: "entity", Properties: `{"name":"alice"}`, CreatedAt: time.Now()}
	if err := a.UpsertNode(ctx, n); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Second upsert with the same ID overwrites instead of duplicating.
	n.Label = "Human"
	if err := a.UpsertNode(ctx, n); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	nodes, err := a.ListNodes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].Label != "Human" {
		t.Fatalf("expected overwritten label, got %q", nodes[0].Label)
	}
	if nodes[0].Properties != `{"name":"alice"}` {
		t.Fatalf("unexpected properties: %q", nodes[0].Properties)
	}
}

func TestUpsertNodeRejectsInvalid(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.UpsertNode(context.Background(), backend.Node{ID: "n1", Label: "x", Properties: "{broken"}); err == nil {
		t.Fatalf("expected validation error for malformed properties")
	}
}

func TestEdgeUpsertAndList(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	e := backend.Edge{ID: "e1", SourceID: "n1", TargetID: "n2", RelType: "KNOWS", Weight: 0.75, CreatedAt: time.Now()}
	if err := a.UpsertEdge(ctx, e); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	edges, err := a.ListEdges(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].Weight != 0.75 || edges[0].RelType != "KNOWS" {
		t.Fatalf("unexpected edge: %+v", edges[0])
	}
}

func TestDocumentUpsertAndList(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	d := backend.Document{ID: "d1", Title: "intro", Content: "hello world", Metadata: `{"lang":"en"}`, CreatedAt: time.Now()}
	if err := a.UpsertDocument(ctx, d); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	docs, err := a.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 || docs[0].Content != "hello world" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
}

func TestChunkEmbeddingRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	c := backend.Chunk{
		ID:         "c1",
		DocumentID: "d1",
		Position:   0,
		Content:    "fragment",
		Embedding:  []float32{0.1, 0.2, 0.3},
		CreatedAt:  time.Now(),
	}
	if err := a.UpsertChunk(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	chunks, err := a.ListChunks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	got := chunks[0].Embedding
	if len(got) != 3 || got[0] != 0.1 || got[2] != 0.3 {
		t.Fatalf("embedding round trip mismatch: %v", got)
	}
}

func TestChunkWithoutEmbedding(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	c := backend.Chunk{ID: "c1", DocumentID: "d1", Content: "no vector", CreatedAt: time.Now()}
	if err := a.UpsertChunk(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	chunks, err := a.ListChunks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if chunks[0].Embedding != nil {
		t.Fatalf("expected nil embedding, got %v", chunks[0].Embedding)
	}
}

func TestChunkOrdering(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	for _, c := range []backend.Chunk{
		{ID: "c3", DocumentID: "d2", Position: 0, Content: "x"},
		{ID: "c2", DocumentID: "d1", Position: 1, Content: "y"},
		{ID: "c1", DocumentID: "d1", Position: 0, Content: "z"},
	} {
		if err := a.UpsertChunk(ctx, c); err != nil {
			t.Fatalf("upsert %s: %v", c.ID, err)
		}
	}
	chunks, err := a.ListChunks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if chunks[0].ID != "c1" || chunks[1].ID != "c2" || chunks[2].ID != "c3" {
		t.Fatalf("expected document/position ordering, got %v, %v, %v", chunks[0].ID, chunks[1].ID, chunks[2].ID)
	}
}

func TestStats(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_ = a.UpsertNode(ctx, backend.Node{ID: "n1", Label: "x"})
	_ = a.UpsertNode(ctx, backend.Node{ID: "n2", Label: "y"})
	_ = a.UpsertEdge(ctx, backend.Edge{ID: "e1", SourceID: "n1", TargetID: "n2", RelType: "r"})
	_ = a.UpsertDocument(ctx, backend.Document{ID: "d1"})

	st, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Nodes != 2 || st.Edges != 1 || st.Documents != 1 || st.Chunks != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	wantErr := errors.New("boom")
	err := a.WithTx(ctx, func(tx backend.Tx) error {
		if err := tx.Exec(ctx, `INSERT INTO nodes(id, label, kind, properties, created_at) VALUES('n1', 'x', '', '', '')`); err != nil {
			t.Fatalf("exec inside tx: %v", err)
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected boom, got %v", err)
	}

	st, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Nodes != 0 {
		t.Fatalf("expected rollback to discard the insert, got %d nodes", st.Nodes)
	}
}

func TestLedgerEntries(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	entries, err := a.LedgerEntries(ctx)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected applied migrations in the ledger")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Version <= entries[i-1].Version {
			t.Fatalf("expected ascending versions: %+v", entries)
		}
	}
	if entries[0].AppliedAt.IsZero() {
		t.Fatalf("expected applied_at to round trip")
	}
}

func TestDSNDefaultsToMemory(t *testing.T) {
	c := Config{}
	dsn := c.DSN()
	if dsn != "file::memory:?_busy_timeout=5000&_fk=1" {
		t.Fatalf("unexpected dsn: %q", dsn)
	}
}
