package ecology

import (
	"fmt"

	"github.com/verdant-systems/terrarium/pkg/species"
)

// BranchEvent records a speciation: a child species splitting off a parent.
type BranchEvent struct {
	Parent     string `json:"parent"`
	Child      string `json:"child"`
	ChildName  string `json:"child_name"`
	Population int64  `json:"population"`
}

// SpeciationParams tunes the branching detector.
type SpeciationParams struct {
	// MinPopulation is the post-mortality population a species needs
	// before it can branch.
	MinPopulation int64 `yaml:"min_population"`
	// StressThreshold is the combined death rate above which a large
	// population fragments into a hardier offshoot.
	StressThreshold float64 `yaml:"stress_threshold"`
}

// DefaultSpeciationParams matches the standard mode shipped in configs.
func DefaultSpeciationParams() SpeciationParams {
	return SpeciationParams{MinPopulation: 5000, StressThreshold: 0.15}
}

// DetectBranchings finds species that are both large and under stress.
// Each branch moves a third of the parent population into a child species
// with higher resilience. Species visit order is ID order.
func DetectBranchings(all []*species.Species, table *MortalityTable, populations map[string]int64, round int, params SpeciationParams) []BranchEvent {
	alive := species.Alive(all)
	species.Sort(alive)

	var events []BranchEvent
	for _, s := range alive {
		pop := populations[s.ID]
		if pop < params.MinPopulation {
			continue
		}
		if table.Rates[s.ID] < params.StressThreshold {
			continue
		}
		childPop := pop / 3
		if childPop == 0 {
			continue
		}
		events = append(events, BranchEvent{
			Parent:     s.ID,
			Child:      fmt.Sprintf("%s-b%d", s.ID, round),
			ChildName:  fmt.Sprintf("%s (offshoot)", s.Name),
			Population: childPop,
		})
	}
	return events
}

// ApplyBranchings splits parents and returns the newly created species.
func ApplyBranchings(all []*species.Species, populations map[string]int64, events []BranchEvent) []*species.Species {
	byID := make(map[string]*species.Species, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}

	var children []*species.Species
	for _, ev := range events {
		parent, ok := byID[ev.Parent]
		if !ok {
			continue
		}
		populations[ev.Parent] -= ev.Population
		child := parent.Clone()
		child.ID = ev.Child
		child.Name = ev.ChildName
		child.Population = ev.Population
		child.Resilience = clampUnit(parent.Resilience + 0.1)
		child.Description = ""
		child.Embedding = nil
		children = append(children, child)
		populations[ev.Child] = ev.Population
	}
	return children
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
