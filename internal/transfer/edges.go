package transfer

import (
	"context"
	"fmt"

	"github.com/loykin/graphmigrate/internal/backend"
)

// edgeTransfer copies relationships. Validation requires the target to
// already contain nodes, since edges reference them.
type edgeTransfer struct {
	source backend.Adapter
	target backend.Adapter
}

// NewEdgeTransfer creates the edge transfer operation.
func NewEdgeTransfer(source, target backend.Adapter) Operation {
	return &edgeTransfer{source: source, target: target}
}

func (t *edgeTransfer) Name() string { return "edges" }

func (t *edgeTransfer) Description() string {
	return "copy graph edges from source to target"
}

func (t *edgeTransfer) Validate(ctx context.Context) ValidationResult {
	vr := validateAdapters(ctx, t.source, t.target)
	if !vr.Valid {
		return vr
	}

	srcStats, err := t.source.Stats(ctx)
	if err != nil {
		vr.Valid = false
		vr.Errors = append(vr.Errors, fmt.Sprintf("failed to read source statistics: %v", err))
		return vr
	}
	tgtStats, err := t.target.Stats(ctx)
	if err != nil {
		vr.Valid = false
		vr.Errors = append(vr.Errors, fmt.Sprintf("failed to read target statistics: %v", err))
		return vr
	}
	vr.Details["source_edges"] = srcStats.Edges
	vr.Details["target_nodes"] = tgtStats.Nodes

	// Edges reference nodes; transferring them into an empty graph is a
	// structural error, not a warning.
	if srcStats.Edges > 0 && tgtStats.Nodes == 0 {
		vr.Valid = false
		vr.Errors = append(vr.Errors, "target has no nodes but edges are being transferred")
	}
	return vr
}

func (t *edgeTransfer) Execute(ctx context.Context) (Result, error) {
	edges, err := t.source.ListEdges(ctx)
	if err != nil {
		return Result{Operation: t.Name()}, fmt.Errorf("failed to read source edges: %w", err)
	}
	for _, e := range edges {
		if err := t.target.UpsertEdge(ctx, e); err != nil {
			return Result{Operation: t.Name()}, err
		}
	}
	return Result{
		Operation:          t.Name(),
		Success:            true,
		RecordsTransferred: len(edges),
		Details:            map[string]any{"source_count": len(edges)},
	}, nil
}
