package transfer

import (
	"context"
	"fmt"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/common"
)

// documentTransfer copies full document content. A single failing document
// is recorded and the batch continues, so partial transfers can be resumed.
type documentTransfer struct {
	source backend.Adapter
	target backend.Adapter
}

// NewDocumentTransfer creates the document transfer operation.
func NewDocumentTransfer(source, target backend.Adapter) Operation {
	return &documentTransfer{source: source, target: target}
}

func (t *documentTransfer) Name() string { return "documents" }

func (t *documentTransfer) Description() string {
	return "copy documents with full content from source to target"
}

func (t *documentTransfer) Validate(ctx context.Context) ValidationResult {
	vr := validateAdapters(ctx, t.source, t.target)
	if !vr.Valid {
		return vr
	}

	// Existing target data is only a warning so incremental transfers can
	// resume; upserts keep the rerun idempotent.
	if tgtStats, err := t.target.Stats(ctx); err == nil && tgtStats.Documents > 0 {
		vr.Warnings = append(vr.Warnings,
			fmt.Sprintf("target already holds %d documents; existing records will be overwritten", tgtStats.Documents))
		vr.Details["target_documents"] = tgtStats.Documents
	}
	return vr
}

func (t *documentTransfer) Execute(ctx context.Context) (Result, error) {
	logger := common.GetLogger().WithComponent("transfer").WithOperation(t.Name())

	docs, err := t.source.ListDocuments(ctx)
	if err != nil {
		return Result{Operation: t.Name()}, fmt.Errorf("failed to read source documents: %w", err)
	}

	res := Result{Operation: t.Name(), Details: map[string]any{}}
	succeeded, failed := 0, 0
	for _, d := range docs {
		if err := t.target.UpsertDocument(ctx, d); err != nil {
			failed++
			res.Errors = append(res.Errors, fmt.Sprintf("document %s: %v", d.ID, err))
			logger.Warn("document transfer failed, continuing batch", "document", d.ID, "error", err)
			continue
		}
		succeeded++
	}

	res.RecordsTransferred = succeeded
	res.Success = failed == 0
	res.Details["succeeded"] = succeeded
	res.Details["failed"] = failed
	return res, nil
}
