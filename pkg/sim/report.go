package sim

import (
	"time"

	"github.com/verdant-systems/terrarium/pkg/ecology"
	"github.com/verdant-systems/terrarium/pkg/world"
)

// TurnReport is the terminal artifact of a successful turn. It is owned by
// the caller once RunTurn returns and must not be mutated afterwards.
type TurnReport struct {
	TurnID    string    `json:"turn_id"`
	SaveID    string    `json:"save_id"`
	Round     int       `json:"round"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`

	Environment *EnvironmentSection `json:"environment,omitempty"`
	Species     *SpeciesSection     `json:"species,omitempty"`
	Mortality   *MortalitySection   `json:"mortality,omitempty"`
	Migration   *MigrationSection   `json:"migration,omitempty"`
	Speciation  *SpeciationSection  `json:"speciation,omitempty"`
	Narrative   string              `json:"narrative,omitempty"`
}

// EnvironmentSection summarizes map and tectonic changes.
type EnvironmentSection struct {
	Changes   []world.Change       `json:"changes,omitempty"`
	Tectonics *world.TectonicShift `json:"tectonics,omitempty"`
}

// SpeciesSection summarizes the species set after the turn.
type SpeciesSection struct {
	Count       int      `json:"count"`
	Extinctions []string `json:"extinctions,omitempty"`
}

// MortalitySection summarizes deaths for the turn.
type MortalitySection struct {
	TotalDeaths int64              `json:"total_deaths"`
	Rates       map[string]float64 `json:"rates,omitempty"`
}

// MigrationSection summarizes movement for the turn.
type MigrationSection struct {
	Count  int                      `json:"count"`
	Events []ecology.MigrationEvent `json:"events,omitempty"`
}

// SpeciationSection summarizes branching for the turn.
type SpeciationSection struct {
	Count  int                   `json:"count"`
	Events []ecology.BranchEvent `json:"events,omitempty"`
}
