package transfer

import (
	"context"
	"fmt"

	"github.com/loykin/graphmigrate/internal/backend"
)

// nodeTransfer copies graph nodes. It runs first in the catalog because
// edges depend on nodes existing in the target.
type nodeTransfer struct {
	source backend.Adapter
	target backend.Adapter
}

// NewNodeTransfer creates the node transfer operation.
func NewNodeTransfer(source, target backend.Adapter) Operation {
	return &nodeTransfer{source: source, target: target}
}

func (t *nodeTransfer) Name() string { return "nodes" }

func (t *nodeTransfer) Description() string {
	return "copy graph nodes from source to target"
}

func (t *nodeTransfer) Validate(ctx context.Context) ValidationResult {
	return validateAdapters(ctx, t.source, t.target)
}

func (t *nodeTransfer) Execute(ctx context.Context) (Result, error) {
	nodes, err := t.source.ListNodes(ctx)
	if err != nil {
		return Result{Operation: t.Name()}, fmt.Errorf("failed to read source nodes: %w", err)
	}
	for _, n := range nodes {
		if err := t.target.UpsertNode(ctx, n); err != nil {
			return Result{Operation: t.Name()}, err
		}
	}
	return Result{
		Operation:          t.Name(),
		Success:            true,
		RecordsTransferred: len(nodes),
		Details:            map[string]any{"source_count": len(nodes)},
	}, nil
}
