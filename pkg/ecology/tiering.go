package ecology

import (
	"github.com/verdant-systems/terrarium/pkg/species"
	"github.com/verdant-systems/terrarium/pkg/world"
)

// Tiering holds per-species niche metrics derived from the food web and map.
type Tiering struct {
	// NicheScore is how well each species fits its current cell, in [0,1].
	NicheScore map[string]float64 `json:"niche_score"`
	// Starved lists predators with no remaining prey species.
	Starved []string `json:"starved,omitempty"`
}

// ComputeTiering scores each living species against the food web and the
// current map snapshot. Producers score on cell fertility; consumers score
// on prey availability discounted by trophic height.
func ComputeTiering(all []*species.Species, web *FoodWeb, snap *world.Snapshot) *Tiering {
	alive := species.Alive(all)
	species.Sort(alive)

	t := &Tiering{NicheScore: make(map[string]float64, len(alive))}
	for _, s := range alive {
		if s.TrophicLevel == 1 {
			fertility := 0.5
			if cell, err := snap.Cell(s.Cell); err == nil {
				fertility = cell.Fertility
			}
			t.NicheScore[s.ID] = fertility
			continue
		}

		prey := web.PreyCount[s.ID]
		if prey == 0 {
			t.NicheScore[s.ID] = 0
			t.Starved = append(t.Starved, s.ID)
			continue
		}
		score := float64(prey) / (float64(prey) + float64(s.TrophicLevel))
		t.NicheScore[s.ID] = score
	}
	return t
}
