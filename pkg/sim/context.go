package sim

import (
	"time"

	"github.com/verdant-systems/terrarium/pkg/ecology"
	"github.com/verdant-systems/terrarium/pkg/species"
	"github.com/verdant-systems/terrarium/pkg/world"
)

// TurnCommand is the caller's input to one turn.
type TurnCommand struct {
	SaveID    string
	Round     int
	Mode      string
	Pressures map[string]float64
}

// Context is the per-turn working set passed through the stage sequence.
// Each field below is written by exactly one stage and read only by stages
// that run later; a nil field means its producer has not run (or was
// disabled). The context is created empty at turn start and discarded after
// persistence or abort.
type Context struct {
	TurnID    string
	SaveID    string
	Round     int
	StartedAt time.Time

	// Command is the caller's raw input, seeded at turn start. Stages
	// treat it as read-only; the parse_pressures stage is the only
	// consumer of its pressure map.
	Command TurnCommand

	// parse_pressures
	Pressures map[string]float64
	Modifiers map[string]float64

	// environment
	MapChanges  []world.Change
	MapSnapshot *world.Snapshot

	// tectonics
	Tectonics *world.TectonicShift

	// fetch_species
	SpeciesBatch []*species.Species
	AllSpecies   []*species.Species

	// food_web
	FoodWeb *ecology.FoodWeb

	// tiering
	Tiering *ecology.Tiering

	// preliminary_mortality
	PrelimMortality *ecology.MortalityTable

	// migration
	MigrationEvents []ecology.MigrationEvent

	// mortality
	Mortality *ecology.MortalityTable

	// population_update
	Populations map[string]int64
	Extinctions []string

	// speciation
	Branchings []ecology.BranchEvent
	NewSpecies []*species.Species

	// narrative
	Narrative string

	// build_report
	Report *TurnReport
}

// NewContext builds an empty context for one turn.
func NewContext(turnID string, cmd TurnCommand) *Context {
	return &Context{
		TurnID:    turnID,
		SaveID:    cmd.SaveID,
		Round:     cmd.Round,
		StartedAt: time.Now().UTC(),
		Command:   cmd,
	}
}

// PopulatedFields names the context fields stages have written so far, in
// pipeline order. Used for abort diagnostics and for testing the
// producer-before-consumer contract.
func (c *Context) PopulatedFields() []string {
	var fields []string
	add := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	add("pressures", c.Pressures != nil)
	add("modifiers", c.Modifiers != nil)
	add("map_changes", c.MapChanges != nil)
	add("map_snapshot", c.MapSnapshot != nil)
	add("tectonics", c.Tectonics != nil)
	add("species_batch", c.SpeciesBatch != nil)
	add("all_species", c.AllSpecies != nil)
	add("food_web", c.FoodWeb != nil)
	add("tiering", c.Tiering != nil)
	add("preliminary_mortality", c.PrelimMortality != nil)
	add("migration_events", c.MigrationEvents != nil)
	add("mortality", c.Mortality != nil)
	add("populations", c.Populations != nil)
	add("branchings", c.Branchings != nil)
	add("narrative", c.Narrative != "")
	add("report", c.Report != nil)
	return fields
}
