package engine

import (
	"github.com/verdant-systems/terrarium/pkg/stage"
)

// RegisterStages populates a registry with every stage kind, wiring the
// engine's collaborators into their constructors. Called once by the
// bootstrap sequence before any turn runs; there is no registration by
// import side effect.
func RegisterStages(reg *stage.Registry, deps Deps) error {
	entries := []struct {
		name  string
		entry stage.Entry
	}{
		{StageInit, stage.Entry{
			Description:   "seed the save's map and species on first run",
			DefaultPolicy: stage.Critical,
			New:           initStage(deps),
		}},
		{StageParsePressures, stage.Entry{
			Description:   "normalize submitted pressures into modifiers",
			DefaultPolicy: stage.Critical,
			New:           parsePressuresStage(deps),
		}},
		{StageEnvironment, stage.Entry{
			Description:   "apply pressures to the map",
			DefaultPolicy: stage.Critical,
			New:           environmentStage(deps),
		}},
		{StageFetchSpecies, stage.Entry{
			Description:   "load the save's species set",
			DefaultPolicy: stage.Critical,
			New:           fetchSpeciesStage(deps),
		}},
		{StageTectonics, stage.Entry{
			Description:   "plate movement for the round",
			DefaultPolicy: stage.Recoverable,
			New:           tectonicsStage(deps),
		}},
		{StageFoodWeb, stage.Entry{
			Description:   "build the trophic web",
			DefaultPolicy: stage.Critical,
			New:           foodWebStage(deps),
		}},
		{StageTiering, stage.Entry{
			Description:   "score species niches",
			DefaultPolicy: stage.Critical,
			New:           tieringStage(deps),
		}},
		{StagePrelimMortality, stage.Entry{
			Description:   "pressure- and niche-driven death rates",
			DefaultPolicy: stage.Critical,
			New:           prelimMortalityStage(deps),
		}},
		{StageMigration, stage.Entry{
			Description:   "move stressed species to better cells",
			DefaultPolicy: stage.Recoverable,
			New:           migrationStage(deps),
		}},
		{StageMortality, stage.Entry{
			Description:   "final death table with migration relief",
			DefaultPolicy: stage.Critical,
			New:           mortalityStage(deps),
		}},
		{StagePopulation, stage.Entry{
			Description:   "apply deaths and mark extinctions",
			DefaultPolicy: stage.Critical,
			New:           populationStage(deps),
		}},
		{StageSpeciation, stage.Entry{
			Description:   "branch large stressed populations",
			DefaultPolicy: stage.Recoverable,
			New:           speciationStage(deps),
		}},
		{StageNarrative, stage.Entry{
			Description:   "AI prose summary of the turn",
			DefaultPolicy: stage.Recoverable,
			New:           narrativeStage(deps),
		}},
		{StageBuildReport, stage.Entry{
			Description:   "assemble the turn report",
			DefaultPolicy: stage.Critical,
			New:           buildReportStage(deps),
		}},
		{StagePersist, stage.Entry{
			Description:   "commit species, map, and history",
			DefaultPolicy: stage.Critical,
			New:           persistStage(deps),
		}},
	}

	for _, e := range entries {
		if err := reg.Register(e.name, e.entry); err != nil {
			return err
		}
	}
	return nil
}
