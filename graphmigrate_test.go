package graphmigrate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/loykin/graphmigrate/internal/backend"
)

func newSQLiteAdapter(t *testing.T, name string) Adapter {
	t.Helper()
	cfg := Config{
		Driver:       "sqlite",
		DriverConfig: &SqliteConfig{Path: filepath.Join(t.TempDir(), name)},
	}
	ad, err := NewAdapter(cfg)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := ad.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = ad.Close() })
	return ad
}

func TestNewAdapterUnknownDriver(t *testing.T) {
	_, err := NewAdapter(Config{Driver: "oracle"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestNewAdapterPostgresValidation(t *testing.T) {
	_, err := NewAdapter(Config{Driver: "postgres", DriverConfig: &PostgresConfig{}})
	if err == nil {
		t.Fatalf("expected validation error for empty postgres config")
	}
}

func TestNewAdapterFromMap(t *testing.T) {
	ad, err := NewAdapterFromMap("sqlite", map[string]interface{}{"path": "x.db", "wal": true})
	if err != nil {
		t.Fatalf("from map: %v", err)
	}
	if ad.Kind() != "sqlite" {
		t.Fatalf("unexpected kind: %s", ad.Kind())
	}

	if _, err := NewAdapterFromMap("postgres", map[string]interface{}{"host": "h"}); err == nil {
		t.Fatalf("expected validation error for incomplete postgres spec")
	}
	if _, err := NewAdapterFromMap("oracle", nil); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestMigrateUpAndStatus(t *testing.T) {
	ad := newSQLiteAdapter(t, "facade.db")
	ctx := context.Background()

	res, err := MigrateUp(ctx, ad)
	if err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if res.NewVersion != 4 {
		t.Fatalf("expected v4 after migrate, got %d", res.NewVersion)
	}

	info, err := Status(ctx, ad)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if info.CurrentVersion != 4 || len(info.Applied) != 4 || len(info.Pending) != 0 {
		t.Fatalf("unexpected status: %+v", info)
	}
	if info.Backend != "sqlite" {
		t.Fatalf("unexpected backend name: %q", info.Backend)
	}
}

func TestMigrateDown(t *testing.T) {
	ad := newSQLiteAdapter(t, "down.db")
	ctx := context.Background()

	if _, err := MigrateUp(ctx, ad); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	res, err := MigrateDown(ctx, ad, 1)
	if err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if res.NewVersion != 1 || res.RolledBack != 3 {
		t.Fatalf("unexpected rollback result: %+v", res)
	}
}

func TestTransferAndValidate(t *testing.T) {
	source := newSQLiteAdapter(t, "source.db")
	target := newSQLiteAdapter(t, "target.db")
	ctx := context.Background()

	for _, ad := range []Adapter{source, target} {
		if _, err := MigrateUp(ctx, ad); err != nil {
			t.Fatalf("migrate up: %v", err)
		}
	}

	seed := []backend.Node{
		{ID: "n1", Label: "Person", Kind: "entity"},
		{ID: "n2", Label: "Place", Kind: "entity"},
	}
	for _, n := range seed {
		if err := source.UpsertNode(ctx, n); err != nil {
			t.Fatalf("seed node: %v", err)
		}
	}
	if err := source.UpsertEdge(ctx, backend.Edge{ID: "e1", SourceID: "n1", TargetID: "n2", RelType: "AT"}); err != nil {
		t.Fatalf("seed edge: %v", err)
	}
	if err := source.UpsertDocument(ctx, backend.Document{ID: "d1", Title: "t", Content: "c"}); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	if err := source.UpsertChunk(ctx, backend.Chunk{ID: "c1", DocumentID: "d1", Content: "frag", Embedding: []float32{1, 2, 3}}); err != nil {
		t.Fatalf("seed chunk: %v", err)
	}

	results := Transfer(ctx, source, target, nil)
	if len(results) != 4 {
		t.Fatalf("expected 4 operations, got %d", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Fatalf("operation %s failed: %+v", r.Operation, r)
		}
	}

	report, err := Validate(ctx, source, target)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Valid || len(report.Warnings) != 0 {
		t.Fatalf("expected clean validation after full transfer: %+v", report)
	}
	if report.TargetStats.Nodes != 2 || report.TargetStats.Chunks != 1 {
		t.Fatalf("unexpected target stats: %+v", report.TargetStats)
	}
}
