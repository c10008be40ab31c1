package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loykin/graphmigrate/internal/backend"
)

// statsAdapter stubs just enough of the backend contract for comparisons.
type statsAdapter struct {
	backend.Adapter
	stats   backend.Stats
	pingErr error
}

func (s *statsAdapter) Ping(ctx context.Context) error { return s.pingErr }
func (s *statsAdapter) Stats(ctx context.Context) (backend.Stats, error) {
	return s.stats, nil
}

func TestCompareMatchingCounts(t *testing.T) {
	st := backend.Stats{Nodes: 3, Edges: 2, Documents: 1, Chunks: 4}
	report, err := Compare(context.Background(), &statsAdapter{stats: st}, &statsAdapter{stats: st})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !report.Valid {
		t.Fatalf("expected valid report: %+v", report)
	}
	if len(report.Warnings) != 0 || len(report.Errors) != 0 {
		t.Fatalf("expected clean report, got %+v", report)
	}
}

func TestCompareCountMismatchIsWarning(t *testing.T) {
	src := &statsAdapter{stats: backend.Stats{Nodes: 3, Documents: 2}}
	tgt := &statsAdapter{stats: backend.Stats{Nodes: 2, Documents: 2}}

	report, err := Compare(context.Background(), src, tgt)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !report.Valid {
		t.Fatalf("count mismatch must stay a warning: %+v", report)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "nodes") {
		t.Fatalf("expected one node warning, got %v", report.Warnings)
	}
}

func TestCompareStructuralError(t *testing.T) {
	src := &statsAdapter{stats: backend.Stats{Edges: 2}}
	tgt := &statsAdapter{stats: backend.Stats{Edges: 2}}

	report, err := Compare(context.Background(), src, tgt)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if report.Valid {
		t.Fatalf("edges without nodes must be an error: %+v", report)
	}
	found := false
	for _, e := range report.Errors {
		if strings.Contains(e, "edges but no nodes") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected structural error, got %v", report.Errors)
	}
}

func TestCompareOrphanChunks(t *testing.T) {
	tgt := &statsAdapter{stats: backend.Stats{Chunks: 5}}
	report, err := Compare(context.Background(), &statsAdapter{stats: backend.Stats{Chunks: 5}}, tgt)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if report.Valid {
		t.Fatalf("chunks without documents must be an error: %+v", report)
	}
}

func TestCompareUnreachableBackend(t *testing.T) {
	src := &statsAdapter{pingErr: errors.New("connection refused")}
	tgt := &statsAdapter{}
	if _, err := Compare(context.Background(), src, tgt); err == nil {
		t.Fatalf("expected error for unreachable source")
	}
}

func TestCompareNilAdapters(t *testing.T) {
	if _, err := Compare(context.Background(), nil, &statsAdapter{}); err == nil {
		t.Fatalf("expected error for nil source")
	}
}
