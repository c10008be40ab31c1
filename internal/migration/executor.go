package migration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/common"
)

// Executor applies and rolls back registry migrations transactionally
// against a borrowed storage adapter, keeping the version ledger in the
// same transaction as each schema change.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Registry returns the migration catalog this executor runs.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// CurrentVersion returns the highest applied version for the adapter's
// backend, or 0 when the ledger is empty.
func (e *Executor) CurrentVersion(ctx context.Context, ad backend.Adapter) (int, error) {
	if err := ad.Ping(ctx); err != nil {
		return 0, fmt.Errorf("backend not available: %w", err)
	}
	if err := ad.EnsureLedger(ctx); err != nil {
		return 0, err
	}
	entries, err := ad.LedgerEntries(ctx)
	if err != nil {
		return 0, err
	}
	cur := 0
	for _, en := range entries {
		if en.Version > cur {
			cur = en.Version
		}
	}
	return cur, nil
}

// Pending returns registered migrations with a version greater than the
// backend's current version, ascending.
func (e *Executor) Pending(ctx context.Context, ad backend.Adapter) ([]Migration, error) {
	cur, err := e.CurrentVersion(ctx, ad)
	if err != nil {
		return nil, err
	}
	return e.registry.After(cur), nil
}

// Apply runs all pending migrations in ascending order. Each migration
// executes inside one transaction together with its ledger insert; the
// first failure aborts the invocation and leaves the ledger at the last
// fully committed version.
func (e *Executor) Apply(ctx context.Context, ad backend.Adapter) (ApplyResult, error) {
	logger := common.GetLogger().WithComponent("migration").WithBackend(string(ad.Kind()))

	cur, err := e.CurrentVersion(ctx, ad)
	if err != nil {
		return ApplyResult{}, err
	}
	pending := e.registry.After(cur)
	result := ApplyResult{NewVersion: cur}

	for _, m := range pending {
		proc, ok := m.Procedures[ad.Kind()]
		if !ok {
			return result, fmt.Errorf("migration v%d has no procedure for backend %s", m.Version, ad.Kind())
		}

		entry := backend.LedgerEntry{
			Version:     m.Version,
			Description: m.Description,
			AppliedAt:   time.Now().UTC(),
		}
		err := ad.WithTx(ctx, func(tx backend.Tx) error {
			if err := proc(ctx, tx); err != nil {
				return fmt.Errorf("migration v%d (%s) failed: %w", m.Version, m.Description, err)
			}
			if err := ad.InsertLedgerEntry(ctx, tx, entry); err != nil {
				return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			logger.Error("migration apply aborted", "error", err, "version", m.Version)
			return result, err
		}

		result.Applied++
		result.NewVersion = m.Version
		result.AppliedList = append(result.AppliedList, Applied{Version: m.Version, Description: m.Description})
		logger.Info("migration applied", "version", m.Version, "description", m.Description)
	}

	return result, nil
}

// Rollback reverts applied migrations down to targetVersion (exclusive),
// processing ledger entries in descending version order, each revert and
// ledger delete inside its own transaction. A selected migration without a
// revert procedure for this backend fails the call before any transaction
// begins.
func (e *Executor) Rollback(ctx context.Context, ad backend.Adapter, targetVersion int) (RollbackResult, error) {
	logger := common.GetLogger().WithComponent("migration").WithBackend(string(ad.Kind()))

	cur, err := e.CurrentVersion(ctx, ad)
	if err != nil {
		return RollbackResult{}, err
	}
	if targetVersion < 0 {
		targetVersion = 0
	}
	if targetVersion > cur {
		return RollbackResult{}, fmt.Errorf("target version %d is above current %d", targetVersion, cur)
	}

	entries, err := ad.LedgerEntries(ctx)
	if err != nil {
		return RollbackResult{}, err
	}
	var selected []backend.LedgerEntry
	for _, en := range entries {
		if en.Version > targetVersion {
			selected = append(selected, en)
		}
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Version > selected[j].Version })

	// Reversibility is checked for the whole plan before any transaction
	// begins so a failing rollback never mutates the ledger.
	plan := make([]Migration, 0, len(selected))
	for _, en := range selected {
		m, ok := e.registry.ByVersion(en.Version)
		if !ok {
			return RollbackResult{NewVersion: cur}, fmt.Errorf("no migration registered for applied version %d", en.Version)
		}
		if !m.Reversible(ad.Kind()) {
			return RollbackResult{NewVersion: cur}, fmt.Errorf("%w: v%d (%s) on backend %s",
				ErrNonReversible, m.Version, m.Description, ad.Kind())
		}
		plan = append(plan, m)
	}

	result := RollbackResult{NewVersion: cur}
	for _, m := range plan {
		revert := m.Reverts[ad.Kind()]
		err := ad.WithTx(ctx, func(tx backend.Tx) error {
			if err := revert(ctx, tx); err != nil {
				return fmt.Errorf("rollback of v%d (%s) failed: %w", m.Version, m.Description, err)
			}
			if err := ad.DeleteLedgerEntry(ctx, tx, m.Version); err != nil {
				return fmt.Errorf("failed to remove ledger entry v%d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			logger.Error("migration rollback aborted", "error", err, "version", m.Version)
			return result, err
		}

		result.RolledBack++
		result.NewVersion = m.Version - 1
		result.RolledBackList = append(result.RolledBackList, Applied{Version: m.Version, Description: m.Description})
		logger.Info("migration rolled back", "version", m.Version, "description", m.Description)
	}
	if result.RolledBack > 0 {
		result.NewVersion = targetVersion
	}

	return result, nil
}
