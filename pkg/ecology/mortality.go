package ecology

import (
	"math"
	"sort"

	"github.com/verdant-systems/terrarium/pkg/species"
)

// MortalityTable maps species ID to a death rate for the turn and the
// resulting absolute deaths.
type MortalityTable struct {
	Rates  map[string]float64 `json:"rates"`
	Deaths map[string]int64   `json:"deaths"`
}

// MortalityParams tunes the baseline death model.
type MortalityParams struct {
	BaseRate    float64 `yaml:"base_rate"`
	StarvedRate float64 `yaml:"starved_rate"`
}

// DefaultMortalityParams matches the standard mode shipped in configs.
func DefaultMortalityParams() MortalityParams {
	return MortalityParams{BaseRate: 0.05, StarvedRate: 0.6}
}

// PreliminaryMortality computes the pressure-and-niche death rates before
// migration relief is taken into account.
func PreliminaryMortality(all []*species.Species, pressures map[string]float64, tiering *Tiering, params MortalityParams) *MortalityTable {
	alive := species.Alive(all)
	species.Sort(alive)

	// Sum pressures in sorted name order; float addition is not
	// associative, so map iteration order would leak into the rates.
	names := make([]string, 0, len(pressures))
	for name := range pressures {
		names = append(names, name)
	}
	sort.Strings(names)
	stress := 0.0
	for _, name := range names {
		stress += math.Abs(pressures[name])
	}

	table := &MortalityTable{
		Rates:  make(map[string]float64, len(alive)),
		Deaths: make(map[string]int64, len(alive)),
	}
	for _, s := range alive {
		rate := params.BaseRate + 0.2*stress*(1-s.Resilience)
		if niche, ok := tiering.NicheScore[s.ID]; ok {
			rate += (1 - niche) * 0.1
		}
		for _, starved := range tiering.Starved {
			if starved == s.ID {
				rate = math.Max(rate, params.StarvedRate)
			}
		}
		if rate > 1 {
			rate = 1
		}
		table.Rates[s.ID] = rate
		table.Deaths[s.ID] = int64(math.Floor(float64(s.Population) * rate))
	}
	return table
}

// CombineMortality folds migration relief into the preliminary table.
// Species that moved this turn recover a share of their projected deaths.
func CombineMortality(prelim *MortalityTable, migrations []MigrationEvent, all []*species.Species) *MortalityTable {
	relief := make(map[string]float64)
	for _, m := range migrations {
		relief[m.Species] += 0.3
	}

	combined := &MortalityTable{
		Rates:  make(map[string]float64, len(prelim.Rates)),
		Deaths: make(map[string]int64, len(prelim.Deaths)),
	}
	for _, s := range all {
		rate, ok := prelim.Rates[s.ID]
		if !ok {
			continue
		}
		if r := relief[s.ID]; r > 0 {
			rate *= math.Max(0, 1-r)
		}
		combined.Rates[s.ID] = rate
		combined.Deaths[s.ID] = int64(math.Floor(float64(s.Population) * rate))
	}
	return combined
}

// ApplyPopulations produces the post-mortality population for every species
// in the table. Populations never go below zero; a species dropping to zero
// is reported so the caller can mark it extinct.
func ApplyPopulations(all []*species.Species, table *MortalityTable) map[string]int64 {
	next := make(map[string]int64, len(all))
	for _, s := range all {
		if s.Extinct {
			continue
		}
		pop := s.Population - table.Deaths[s.ID]
		if pop < 0 {
			pop = 0
		}
		next[s.ID] = pop
	}
	return next
}
