package storage

import (
	"context"
	"errors"

	"github.com/verdant-systems/terrarium/pkg/sim"
	"github.com/verdant-systems/terrarium/pkg/species"
	"github.com/verdant-systems/terrarium/pkg/world"
)

// ErrNotFound is returned when a save has no stored record of the requested
// kind.
var ErrNotFound = errors.New("not found")

// SpeciesRepo persists the species set per save.
type SpeciesRepo interface {
	// All returns every species recorded for the save, including extinct
	// ones. Returns ErrNotFound if the save has never been seeded.
	All(ctx context.Context, saveID string) ([]*species.Species, error)

	// SaveAll replaces the species set for the save.
	SaveAll(ctx context.Context, saveID string, list []*species.Species) error
}

// EnvironmentRepo persists the map snapshot per save.
type EnvironmentRepo interface {
	Snapshot(ctx context.Context, saveID string) (*world.Snapshot, error)
	SaveSnapshot(ctx context.Context, saveID string, snap *world.Snapshot) error
}

// TurnCommit is everything the persist stage writes for one turn.
type TurnCommit struct {
	Report *sim.TurnReport
	// Species, when non-nil, replaces the save's species set.
	Species []*species.Species
	// Snapshot, when non-nil, replaces the save's map.
	Snapshot *world.Snapshot
}

// HistoryRepo persists completed turns. CommitTurn is the only write the
// pipeline performs, and implementations must make it atomic: either the
// whole commit lands (species, map, and history row together) or none of
// it does.
type HistoryRepo interface {
	CommitTurn(ctx context.Context, commit TurnCommit) error
	Turns(ctx context.Context, saveID string) ([]*sim.TurnReport, error)
}

// Stores bundles the three repositories an engine needs.
type Stores struct {
	Species     SpeciesRepo
	Environment EnvironmentRepo
	History     HistoryRepo
}

// Close releases backing resources when the implementation supports it.
func (s Stores) Close() error {
	for _, repo := range []any{s.Species, s.Environment, s.History} {
		if closer, ok := repo.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}
