package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/backend/sqlite"
)

func newSQLiteAdapter(t *testing.T) backend.Adapter {
	t.Helper()
	a := sqlite.New(sqlite.Config{Path: filepath.Join(t.TempDir(), "exec.db")})
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestCurrentVersionFreshDatabase(t *testing.T) {
	ad := newSQLiteAdapter(t)
	exec := NewExecutor(Default())

	cur, err := exec.CurrentVersion(context.Background(), ad)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if cur != 0 {
		t.Fatalf("expected v0 on fresh database, got %d", cur)
	}
}

func TestApplyAll(t *testing.T) {
	ad := newSQLiteAdapter(t)
	exec := NewExecutor(Default())
	ctx := context.Background()

	res, err := exec.Apply(ctx, ad)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Applied != 4 || res.NewVersion != 4 {
		t.Fatalf("expected 4 applied up to v4, got %+v", res)
	}
	if len(res.AppliedList) != 4 {
		t.Fatalf("expected 4 entries in applied list, got %d", len(res.AppliedList))
	}

	cur, err := exec.CurrentVersion(ctx, ad)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if cur != 4 {
		t.Fatalf("expected v4 after apply, got %d", cur)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ad := newSQLiteAdapter(t)
	exec := NewExecutor(Default())
	ctx := context.Background()

	if _, err := exec.Apply(ctx, ad); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	res, err := exec.Apply(ctx, ad)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if res.Applied != 0 || res.NewVersion != 4 {
		t.Fatalf("expected no-op second apply at v4, got %+v", res)
	}
}

func TestApplyStopsOnFailure(t *testing.T) {
	ad := newSQLiteAdapter(t)
	ctx := context.Background()

	reg, err := NewRegistry(
		Migration{
			Version:     1,
			Description: "good",
			Procedures:  map[backend.Kind]Procedure{backend.KindSQLite: execProcedure("CREATE TABLE t1(id TEXT)")},
		},
		Migration{
			Version:     2,
			Description: "broken",
			Procedures:  map[backend.Kind]Procedure{backend.KindSQLite: execProcedure("THIS IS NOT SQL")},
		},
		Migration{
			Version:     3,
			Description: "never reached",
			Procedures:  map[backend.Kind]Procedure{backend.KindSQLite: execProcedure("CREATE TABLE t3(id TEXT)")},
		},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	exec := NewExecutor(reg)

	res, err := exec.Apply(ctx, ad)
	if err == nil {
		t.Fatalf("expected failure at v2")
	}
	if res.Applied != 1 || res.NewVersion != 1 {
		t.Fatalf("expected partial result at v1, got %+v", res)
	}

	cur, err := exec.CurrentVersion(ctx, ad)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if cur != 1 {
		t.Fatalf("ledger should stay at last committed version 1, got %d", cur)
	}
}

func TestRollbackToVersion(t *testing.T) {
	ad := newSQLiteAdapter(t)
	exec := NewExecutor(Default())
	ctx := context.Background()

	if _, err := exec.Apply(ctx, ad); err != nil {
		t.Fatalf("apply: %v", err)
	}

	res, err := exec.Rollback(ctx, ad, 2)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if res.RolledBack != 2 || res.NewVersion != 2 {
		t.Fatalf("expected 2 rolled back down to v2, got %+v", res)
	}
	// Descending order: v4 first, then v3
	if res.RolledBackList[0].Version != 4 || res.RolledBackList[1].Version != 3 {
		t.Fatalf("expected descending rollback order, got %+v", res.RolledBackList)
	}

	cur, err := exec.CurrentVersion(ctx, ad)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if cur != 2 {
		t.Fatalf("expected v2 after rollback, got %d", cur)
	}
}

func TestRollbackToZero(t *testing.T) {
	ad := newSQLiteAdapter(t)
	exec := NewExecutor(Default())
	ctx := context.Background()

	if _, err := exec.Apply(ctx, ad); err != nil {
		t.Fatalf("apply: %v", err)
	}
	res, err := exec.Rollback(ctx, ad, 0)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if res.RolledBack != 4 || res.NewVersion != 0 {
		t.Fatalf("expected everything rolled back, got %+v", res)
	}
}

func TestRollbackAboveCurrentFails(t *testing.T) {
	ad := newSQLiteAdapter(t)
	exec := NewExecutor(Default())
	ctx := context.Background()

	if _, err := exec.Apply(ctx, ad); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := exec.Rollback(ctx, ad, 9); err == nil {
		t.Fatalf("expected error rolling back above current version")
	}
}

func TestRollbackNonReversibleLeavesLedgerUntouched(t *testing.T) {
	ad := newSQLiteAdapter(t)
	ctx := context.Background()

	reg, err := NewRegistry(
		Migration{
			Version:     1,
			Description: "reversible",
			Procedures:  map[backend.Kind]Procedure{backend.KindSQLite: execProcedure("CREATE TABLE r1(id TEXT)")},
			Reverts:     map[backend.Kind]Procedure{backend.KindSQLite: execProcedure("DROP TABLE r1")},
		},
		Migration{
			Version:     2,
			Description: "one way only",
			Procedures:  map[backend.Kind]Procedure{backend.KindSQLite: execProcedure("CREATE TABLE r2(id TEXT)")},
		},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	exec := NewExecutor(reg)

	if _, err := exec.Apply(ctx, ad); err != nil {
		t.Fatalf("apply: %v", err)
	}

	_, err = exec.Rollback(ctx, ad, 0)
	if !errors.Is(err, ErrNonReversible) {
		t.Fatalf("expected ErrNonReversible, got %v", err)
	}

	// The whole plan is rejected before any transaction, including v1
	// which is itself reversible.
	cur, err := exec.CurrentVersion(ctx, ad)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if cur != 2 {
		t.Fatalf("ledger should be untouched at v2, got %d", cur)
	}
}

func TestRollbackThenReapply(t *testing.T) {
	ad := newSQLiteAdapter(t)
	exec := NewExecutor(Default())
	ctx := context.Background()

	if _, err := exec.Apply(ctx, ad); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := exec.Rollback(ctx, ad, 0); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	res, err := exec.Apply(ctx, ad)
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if res.Applied != 4 || res.NewVersion != 4 {
		t.Fatalf("expected full reapply, got %+v", res)
	}
}

func TestPending(t *testing.T) {
	ad := newSQLiteAdapter(t)
	exec := NewExecutor(Default())
	ctx := context.Background()

	pending, err := exec.Pending(ctx, ad)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 4 {
		t.Fatalf("expected 4 pending on a fresh database, got %d", len(pending))
	}

	if _, err := exec.Apply(ctx, ad); err != nil {
		t.Fatalf("apply: %v", err)
	}
	pending, err = exec.Pending(ctx, ad)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected nothing pending after apply, got %d", len(pending))
	}
}
