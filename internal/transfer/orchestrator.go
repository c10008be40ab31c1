package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/graphmigrate/internal/common"
)

// Orchestrator runs a transfer catalog, aggregating one result per
// operation. Individual failures never abort the catalog, so partial
// migrations can be retried selectively.
type Orchestrator struct {
	logger *common.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		logger: common.GetLogger().WithComponent("transfer"),
	}
}

// Run executes the catalog in order and returns one result per entry,
// always the same length as the catalog.
func (o *Orchestrator) Run(ctx context.Context, catalog []Operation) []Result {
	runID := uuid.NewString()
	runLogger := o.logger.With("run_id", runID)
	results := make([]Result, 0, len(catalog))

	for _, op := range catalog {
		logger := runLogger.WithOperation(op.Name())
		start := time.Now()

		vr := op.Validate(ctx)
		for _, w := range vr.Warnings {
			logger.Warn("validation warning", "warning", w)
		}
		if !vr.Valid {
			logger.Error("validation failed, skipping operation", "errors", vr.Errors)
			results = append(results, Result{
				Operation: op.Name(),
				Success:   false,
				Errors:    vr.Errors,
				Duration:  time.Since(start),
				Details:   vr.Details,
			})
			continue
		}

		res, err := op.Execute(ctx)
		res.Operation = op.Name()
		res.Duration = time.Since(start)
		if err != nil {
			res.Success = false
			res.Errors = append(res.Errors, err.Error())
			logger.Error("operation failed", "error", err)
		} else {
			logger.Info("operation finished",
				"success", res.Success,
				"records", res.RecordsTransferred,
				"duration", res.Duration)
		}
		results = append(results, res)
	}

	return results
}
