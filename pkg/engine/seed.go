package engine

import "github.com/verdant-systems/terrarium/pkg/species"

// StarterSpecies is the seed population for a brand-new save: a small
// trophic chain spread over the default map.
func StarterSpecies() []*species.Species {
	return []*species.Species{
		{ID: "sp-algae", Name: "Drifting Algae", TrophicLevel: 1, Population: 120000, Resilience: 0.8, Cell: 0},
		{ID: "sp-grass", Name: "Pale Bunchgrass", TrophicLevel: 1, Population: 90000, Resilience: 0.7, Cell: 2},
		{ID: "sp-fern", Name: "Umber Fern", TrophicLevel: 1, Population: 40000, Resilience: 0.5, Cell: 3},
		{ID: "sp-grazer", Name: "Hollow-Horn Grazer", TrophicLevel: 2, Population: 15000, Resilience: 0.5, Cell: 2},
		{ID: "sp-browser", Name: "Mist Browser", TrophicLevel: 2, Population: 8000, Resilience: 0.4, Cell: 3},
		{ID: "sp-stalker", Name: "Ridge Stalker", TrophicLevel: 3, Population: 1200, Resilience: 0.45, Cell: 3},
		{ID: "sp-raptor", Name: "Dusk Raptor", TrophicLevel: 4, Population: 250, Resilience: 0.35, Cell: 4},
	}
}
