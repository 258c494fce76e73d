package species

import (
	"fmt"
	"sort"
)

// Species is one population of organisms tracked by the simulation.
type Species struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	TrophicLevel int       `json:"trophic_level"`
	Population   int64     `json:"population"`
	Resilience   float64   `json:"resilience"`
	Cell         int       `json:"cell"`
	Extinct      bool      `json:"extinct,omitempty"`
	Description  string    `json:"description,omitempty"`
	Embedding    []float64 `json:"embedding,omitempty"`
}

// Clone returns a deep copy of the species.
func (s *Species) Clone() *Species {
	c := *s
	if s.Embedding != nil {
		c.Embedding = append([]float64(nil), s.Embedding...)
	}
	return &c
}

// Validate checks structural invariants before a species enters a turn.
func (s *Species) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("species ID is required")
	}
	if s.TrophicLevel < 1 || s.TrophicLevel > 4 {
		return fmt.Errorf("species %s: trophic level %d out of range [1,4]", s.ID, s.TrophicLevel)
	}
	if s.Population < 0 {
		return fmt.Errorf("species %s: negative population %d", s.ID, s.Population)
	}
	if s.Resilience < 0 || s.Resilience > 1 {
		return fmt.Errorf("species %s: resilience %.3f out of range [0,1]", s.ID, s.Resilience)
	}
	return nil
}

// Sort orders species by ID in place. Every pipeline stage iterates species
// in this order so two runs with identical inputs visit them identically.
func Sort(list []*Species) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

// Alive filters out extinct species.
func Alive(list []*Species) []*Species {
	out := make([]*Species, 0, len(list))
	for _, s := range list {
		if !s.Extinct {
			out = append(out, s)
		}
	}
	return out
}
