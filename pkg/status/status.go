// Package status reports the migration state of a backend: its current
// schema version, the ledger of applied migrations, and what is pending.
package status

import (
	"context"
	"fmt"
	"sort"

	"github.com/loykin/graphmigrate/internal/backend"
	"github.com/loykin/graphmigrate/internal/migration"
)

// Pending describes a registered migration that has not been applied yet.
type Pending struct {
	Version     int
	Description string
}

// Info is a snapshot of a backend's migration state.
type Info struct {
	Backend        string
	CurrentVersion int
	Applied        []backend.LedgerEntry
	Pending        []Pending
}

// FromAdapter builds a status snapshot by reading the backend's ledger and
// comparing it against the executor's registry.
func FromAdapter(ctx context.Context, ad backend.Adapter, exec *migration.Executor) (Info, error) {
	info := Info{Backend: string(ad.Kind())}

	cur, err := exec.CurrentVersion(ctx, ad)
	if err != nil {
		return info, fmt.Errorf("failed to read current version: %w", err)
	}
	info.CurrentVersion = cur

	applied, err := ad.LedgerEntries(ctx)
	if err != nil {
		return info, fmt.Errorf("failed to read ledger: %w", err)
	}
	sort.Slice(applied, func(i, j int) bool { return applied[i].Version < applied[j].Version })
	info.Applied = applied

	for _, m := range exec.Registry().After(cur) {
		info.Pending = append(info.Pending, Pending{Version: m.Version, Description: m.Description})
	}
	return info, nil
}
