package ecology

import (
	"github.com/verdant-systems/terrarium/pkg/species"
)

// Link is one predator-prey edge in the food web.
type Link struct {
	Predator string `json:"predator"`
	Prey     string `json:"prey"`
}

// FoodWeb is the trophic structure for the current species set.
type FoodWeb struct {
	Links []Link `json:"links"`
	// PreyCount maps predator ID to the number of prey species available.
	PreyCount map[string]int `json:"prey_count"`
}

// BuildFoodWeb links every species to the species one trophic level below it
// that share a cell or a neighboring cell. Species are visited in ID order so
// the link list is stable.
func BuildFoodWeb(all []*species.Species) *FoodWeb {
	alive := species.Alive(all)
	species.Sort(alive)

	web := &FoodWeb{PreyCount: make(map[string]int)}
	for _, pred := range alive {
		if pred.TrophicLevel < 2 {
			continue
		}
		for _, prey := range alive {
			if prey.TrophicLevel != pred.TrophicLevel-1 {
				continue
			}
			if !nearby(pred.Cell, prey.Cell) {
				continue
			}
			web.Links = append(web.Links, Link{Predator: pred.ID, Prey: prey.ID})
			web.PreyCount[pred.ID]++
		}
	}
	return web
}

func nearby(a, b int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 1
}
