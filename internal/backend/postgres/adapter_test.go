package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/migration"
)

// newLiveAdapter connects to the server named by the GRAPHMIGRATE_TEST_PG_*
// environment variables, skipping when none is configured.
func newLiveAdapter(t *testing.T) *Adapter {
	t.Helper()
	host := os.Getenv("GRAPHMIGRATE_TEST_PG_HOST")
	if host == "" {
		t.Skip("skipping: GRAPHMIGRATE_TEST_PG_HOST not set")
	}
	cfg := Config{
		Host:     host,
		User:     envOr("GRAPHMIGRATE_TEST_PG_USER", "postgres"),
		Password: envOr("GRAPHMIGRATE_TEST_PG_PASSWORD", "postgres"),
		DBName:   envOr("GRAPHMIGRATE_TEST_PG_DBNAME", "postgres"),
	}
	a := New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Connect(ctx); err != nil {
		t.Skipf("skipping: postgres not reachable: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestAdapterNotConnected(t *testing.T) {
	a := New(Config{Host: "localhost", User: "u", DBName: "d"})
	ctx := context.Background()

	if err := a.Ping(ctx); !errors.Is(err, backend.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := a.UpsertNode(ctx, backend.Node{ID: "n1", Label: "x"}); !errors.Is(err, backend.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestVectorDimDefaults(t *testing.T) {
	a := New(Config{Host: "h", User: "u", DBName: "d"})
	if a.VectorDim() != 768 {
		t.Fatalf("expected default dim 768, got %d", a.VectorDim())
	}
	a = New(Config{Host: "h", User: "u", DBName: "d", VectorDim: 1536})
	if a.VectorDim() != 1536 {
		t.Fatalf("expected configured dim 1536, got %d", a.VectorDim())
	}
}

func TestLiveMigrateAndRoundTrip(t *testing.T) {
	a := newLiveAdapter(t)
	ctx := context.Background()

	exec := migration.NewExecutor(migration.Default())
	if _, err := exec.Apply(ctx, a); err != nil {
		t.Fatalf("apply: %v", err)
	}

	n := backend.Node{ID: "pg-test-n1", Label: "Person", Kind: "entity", CreatedAt: time.Now()}
	if err := a.UpsertNode(ctx, n); err != nil {
		t.Fatalf("upsert node: %v", err)
	}
	nodes, err := a.ListNodes(ctx)
	if err != nil {
		t.Fatalf("list nodes: %v", err)
	}
	found := false
	for _, got := range nodes {
		if got.ID == n.ID && got.Label == n.Label {
			found = true
		}
	}
	if !found {
		t.Fatalf("node did not round trip: %+v", nodes)
	}

	d := backend.Document{ID: "pg-test-d1", Title: "t", Content: "c", CreatedAt: time.Now()}
	if err := a.UpsertDocument(ctx, d); err != nil {
		t.Fatalf("upsert document: %v", err)
	}
	emb := make([]float32, a.VectorDim())
	for i := range emb {
		emb[i] = float32(i) / 100
	}
	c := backend.Chunk{ID: "pg-test-c1", DocumentID: d.ID, Content: "frag", Embedding: emb, CreatedAt: time.Now()}
	if err := a.UpsertChunk(ctx, c); err != nil {
		t.Fatalf("upsert chunk: %v", err)
	}
	chunks, err := a.ListChunks(ctx)
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	found = false
	for _, got := range chunks {
		if got.ID == c.ID && len(got.Embedding) == len(emb) {
			found = true
		}
	}
	if !found {
		t.Fatalf("chunk embedding did not round trip")
	}

	if _, err := exec.Rollback(ctx, a, 0); err != nil {
		t.Fatalf("rollback: %v", err)
	}
}
