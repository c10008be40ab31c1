package transfer

import (
	"context"
	"fmt"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/common"
)

// vectorTransfer copies document chunks and their embeddings. When the
// target enforces a different embedding width than the source data carries,
// embeddings are regenerated through the embedder instead of raw-copied.
type vectorTransfer struct {
	source   backend.Adapter
	target   backend.Adapter
	embedder Embedder
}

// NewVectorTransfer creates the vector transfer operation. The embedder may
// be nil; incompatible embeddings are then recorded as per-chunk failures.
func NewVectorTransfer(source, target backend.Adapter, embedder Embedder) Operation {
	return &vectorTransfer{source: source, target: target, embedder: embedder}
}

func (t *vectorTransfer) Name() string { return "vectors" }

func (t *vectorTransfer) Description() string {
	return "copy or regenerate chunk embeddings from source to target"
}

func (t *vectorTransfer) Validate(ctx context.Context) ValidationResult {
	vr := validateAdapters(ctx, t.source, t.target)
	if !vr.Valid {
		return vr
	}

	if tgtStats, err := t.target.Stats(ctx); err == nil && tgtStats.Chunks > 0 {
		vr.Warnings = append(vr.Warnings,
			fmt.Sprintf("target already holds %d chunks; existing records will be overwritten", tgtStats.Chunks))
		vr.Details["target_chunks"] = tgtStats.Chunks
	}
	return vr
}

func (t *vectorTransfer) Execute(ctx context.Context) (Result, error) {
	logger := common.GetLogger().WithComponent("transfer").WithOperation(t.Name())

	chunks, err := t.source.ListChunks(ctx)
	if err != nil {
		return Result{Operation: t.Name()}, fmt.Errorf("failed to read source chunks: %w", err)
	}

	targetDim := t.target.VectorDim()
	res := Result{Operation: t.Name(), Details: map[string]any{}}
	succeeded, failed, regenerated := 0, 0, 0

	for _, c := range chunks {
		if targetDim > 0 && len(c.Embedding) > 0 && len(c.Embedding) != targetDim {
			// Incompatible encodings: regenerate in the target instead of
			// raw-copying the source vector.
			if t.embedder == nil {
				failed++
				res.Errors = append(res.Errors, fmt.Sprintf(
					"chunk %s: embedding width %d does not match target width %d and no embedder is configured",
					c.ID, len(c.Embedding), targetDim))
				continue
			}
			emb, err := t.embedder.Embed(ctx, c.Content)
			if err != nil {
				failed++
				res.Errors = append(res.Errors, fmt.Sprintf("chunk %s: failed to regenerate embedding: %v", c.ID, err))
				logger.Warn("embedding regeneration failed, continuing batch", "chunk", c.ID, "error", err)
				continue
			}
			c.Embedding = emb
			regenerated++
		}
		if err := t.target.UpsertChunk(ctx, c); err != nil {
			failed++
			res.Errors = append(res.Errors, fmt.Sprintf("chunk %s: %v", c.ID, err))
			logger.Warn("chunk transfer failed, continuing batch", "chunk", c.ID, "error", err)
			continue
		}
		succeeded++
	}

	res.RecordsTransferred = succeeded
	res.Success = failed == 0
	res.Details["succeeded"] = succeeded
	res.Details["failed"] = failed
	res.Details["regenerated"] = regenerated
	return res, nil
}
