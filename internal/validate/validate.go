// Package validate compares record populations between two backends after
// a transfer and reports mismatches without mutating either side.
package validate

import (
	"context"
	"fmt"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/common"
)

// Report summarizes a source/target comparison. Count differences are
// warnings, since a transfer may legitimately be partial or in progress;
// structural impossibilities are errors.
type Report struct {
	Valid       bool
	Errors      []string
	Warnings    []string
	SourceStats backend.Stats
	TargetStats backend.Stats
}

// Compare collects record counts from both backends and flags mismatches.
// It fails only when a backend cannot be reached.
func Compare(ctx context.Context, source, target backend.Adapter) (Report, error) {
	logger := common.GetLogger().WithComponent("validate")
	report := Report{Valid: true}

	if source == nil || target == nil {
		return report, fmt.Errorf("both source and target backends are required")
	}
	if err := source.Ping(ctx); err != nil {
		return report, fmt.Errorf("source backend not available: %w", err)
	}
	if err := target.Ping(ctx); err != nil {
		return report, fmt.Errorf("target backend not available: %w", err)
	}

	src, err := source.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to collect source stats: %w", err)
	}
	tgt, err := target.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to collect target stats: %w", err)
	}
	report.SourceStats = src
	report.TargetStats = tgt

	checkCount(&report, "nodes", src.Nodes, tgt.Nodes)
	checkCount(&report, "edges", src.Edges, tgt.Edges)
	checkCount(&report, "documents", src.Documents, tgt.Documents)
	checkCount(&report, "chunks", src.Chunks, tgt.Chunks)

	// Edges without endpoints cannot be valid on the target side.
	if tgt.Edges > 0 && tgt.Nodes == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, "target has edges but no nodes")
	}
	if tgt.Chunks > 0 && tgt.Documents == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, "target has chunks but no documents")
	}

	logger.Info("validation complete",
		"valid", report.Valid,
		"errors", len(report.Errors),
		"warnings", len(report.Warnings))
	return report, nil
}

func checkCount(report *Report, record string, src, tgt int) {
	if src != tgt {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%s count mismatch: source has %d, target has %d", record, src, tgt))
	}
}
