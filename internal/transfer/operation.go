package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/loykin/graphmigrate/internal/backend"
)

// Operation is one typed data-transfer step between a source and a target
// adapter. Operations are stateless across runs and owned by the
// orchestrator for the duration of one run.
type Operation interface {
	Name() string
	Description() string
	Validate(ctx context.Context) ValidationResult
	Execute(ctx context.Context) (Result, error)
}

// Result reports the outcome of one operation execution. It is never
// mutated after creation.
type Result struct {
	Operation          string
	Success            bool
	RecordsTransferred int
	Errors             []string
	Duration           time.Duration
	Details            map[string]any
}

// ValidationResult is the precondition check computed before an operation
// executes. A failing validation short-circuits that operation but not the
// remaining catalog.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Details  map[string]any
}

// Embedder regenerates embeddings when source and target vector encodings
// are incompatible. Implementations are external collaborators.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// validateAdapters is the shared precondition every operation checks: both
// adapters present and reachable.
func validateAdapters(ctx context.Context, source, target backend.Adapter) ValidationResult {
	vr := ValidationResult{Valid: true, Details: map[string]any{}}
	if source == nil {
		vr.Valid = false
		vr.Errors = append(vr.Errors, "source adapter is not set")
	} else if err := source.Ping(ctx); err != nil {
		vr.Valid = false
		vr.Errors = append(vr.Errors, fmt.Sprintf("source backend unreachable: %v", err))
	}
	if target == nil {
		vr.Valid = false
		vr.Errors = append(vr.Errors, "target adapter is not set")
	} else if err := target.Ping(ctx); err != nil {
		vr.Valid = false
		vr.Errors = append(vr.Errors, fmt.Sprintf("target backend unreachable: %v", err))
	}
	return vr
}
