package ecology

import (
	"github.com/verdant-systems/terrarium/pkg/species"
	"github.com/verdant-systems/terrarium/pkg/world"
)

// MigrationEvent records one species moving between cells this turn.
type MigrationEvent struct {
	Species  string `json:"species"`
	FromCell int    `json:"from_cell"`
	ToCell   int    `json:"to_cell"`
	Count    int64  `json:"count"`
}

// MigrationParams tunes when a species will leave its cell.
type MigrationParams struct {
	// RateThreshold is the preliminary death rate above which a species
	// looks for a better cell.
	RateThreshold float64 `yaml:"rate_threshold"`
	// MaxMoves caps migrations per turn.
	MaxMoves int `yaml:"max_moves"`
}

// DefaultMigrationParams matches the standard mode shipped in configs.
func DefaultMigrationParams() MigrationParams {
	return MigrationParams{RateThreshold: 0.25, MaxMoves: 8}
}

// PlanMigrations moves stressed species toward the most fertile reachable
// cell. Species are visited in ID order and the search is exhaustive over
// cells, so the plan is deterministic.
func PlanMigrations(all []*species.Species, snap *world.Snapshot, prelim *MortalityTable, params MigrationParams) []MigrationEvent {
	alive := species.Alive(all)
	species.Sort(alive)

	var events []MigrationEvent
	for _, s := range alive {
		if params.MaxMoves > 0 && len(events) >= params.MaxMoves {
			break
		}
		rate, ok := prelim.Rates[s.ID]
		if !ok || rate < params.RateThreshold {
			continue
		}

		best := s.Cell
		bestFertility := -1.0
		if cell, err := snap.Cell(s.Cell); err == nil {
			bestFertility = cell.Fertility
		}
		for i := range snap.Cells {
			cell := &snap.Cells[i]
			if cell.Biome == "ocean" && s.TrophicLevel > 1 {
				continue
			}
			if cell.Fertility > bestFertility {
				best = cell.Index
				bestFertility = cell.Fertility
			}
		}
		if best == s.Cell {
			continue
		}
		events = append(events, MigrationEvent{
			Species:  s.ID,
			FromCell: s.Cell,
			ToCell:   best,
			Count:    s.Population,
		})
	}
	return events
}

// ApplyMigrations mutates species cells per the planned events.
func ApplyMigrations(all []*species.Species, events []MigrationEvent) {
	byID := make(map[string]*species.Species, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}
	for _, ev := range events {
		if s, ok := byID[ev.Species]; ok {
			s.Cell = ev.ToCell
		}
	}
}
