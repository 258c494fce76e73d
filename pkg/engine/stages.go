package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verdant-systems/terrarium/pkg/ecology"
	"github.com/verdant-systems/terrarium/pkg/sim"
	"github.com/verdant-systems/terrarium/pkg/species"
	"github.com/verdant-systems/terrarium/pkg/stage"
	"github.com/verdant-systems/terrarium/pkg/storage"
	"github.com/verdant-systems/terrarium/pkg/world"
)

// Stage names. Modes reference these; the conventional orders are the ones
// used in configs/modes.yaml.
const (
	StageInit            = "init"
	StageParsePressures  = "parse_pressures"
	StageEnvironment     = "environment"
	StageFetchSpecies    = "fetch_species"
	StageTectonics       = "tectonics"
	StageFoodWeb         = "food_web"
	StageTiering         = "tiering"
	StagePrelimMortality = "preliminary_mortality"
	StageMigration       = "migration"
	StageMortality       = "mortality"
	StagePopulation      = "population_update"
	StageSpeciation      = "speciation"
	StageNarrative       = "narrative"
	StageBuildReport     = "build_report"
	StagePersist         = "persist"
)

// decodeParams overlays a mode's params block onto the stage defaults.
// Absent params keep their defaults; present ones must decode cleanly.
func decodeParams[T any](node *yaml.Node, defaults T) (T, error) {
	out := defaults
	if node == nil {
		return out, nil
	}
	if err := node.Decode(&out); err != nil {
		return out, fmt.Errorf("invalid params: %w", err)
	}
	return out, nil
}

func inUnit(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s %.3f out of range [0,1]", name, v)
	}
	return nil
}

// initStage makes sure the save exists: a save that has never run a turn is
// seeded with the default map and starter species. Writes nothing to the
// context.
func initStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(ctx context.Context, sc *sim.Context) error {
			if _, err := deps.Stores.Environment.Snapshot(ctx, sc.SaveID); errors.Is(err, storage.ErrNotFound) {
				if err := deps.Stores.Environment.SaveSnapshot(ctx, sc.SaveID, world.DefaultSnapshot()); err != nil {
					return fmt.Errorf("seed environment: %w", err)
				}
			} else if err != nil {
				return err
			}

			if _, err := deps.Stores.Species.All(ctx, sc.SaveID); errors.Is(err, storage.ErrNotFound) {
				if err := deps.Stores.Species.SaveAll(ctx, sc.SaveID, StarterSpecies()); err != nil {
					return fmt.Errorf("seed species: %w", err)
				}
			} else if err != nil {
				return err
			}
			return nil
		}, nil
	}
}

// parsePressuresStage normalizes the caller-submitted pressures and derives
// the modifier table later stages read.
// Writes: pressures, modifiers.
func parsePressuresStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(_ context.Context, sc *sim.Context) error {
			pressures := make(map[string]float64, len(sc.Command.Pressures))
			for name, v := range sc.Command.Pressures {
				key := strings.ToLower(strings.TrimSpace(name))
				if key == "" {
					return fmt.Errorf("pressure with empty name")
				}
				if v < -1 || v > 1 {
					return fmt.Errorf("pressure %s: %.3f out of range [-1,1]", key, v)
				}
				pressures[key] = v
			}

			modifiers := make(map[string]float64, len(pressures))
			for name, v := range pressures {
				// Modifiers soften raw pressure for downstream rates.
				modifiers[name] = v * 0.5
			}

			sc.Pressures = pressures
			sc.Modifiers = modifiers
			return nil
		}, nil
	}
}

// environmentStage applies pressures to the stored map.
// Reads: pressures. Writes: map_snapshot, map_changes.
func environmentStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(ctx context.Context, sc *sim.Context) error {
			if sc.Pressures == nil {
				return fmt.Errorf("pressures not parsed")
			}
			snap, err := deps.Stores.Environment.Snapshot(ctx, sc.SaveID)
			if err != nil {
				return fmt.Errorf("load environment: %w", err)
			}
			next, changes := world.ApplyPressures(snap, sc.Pressures)
			next.Round = sc.Round
			sc.MapSnapshot = next
			sc.MapChanges = changes
			if sc.MapChanges == nil {
				sc.MapChanges = []world.Change{}
			}
			return nil
		}, nil
	}
}

// tectonicsStage computes and applies plate movement for the round.
// Reads: map_snapshot. Writes: tectonics.
func tectonicsStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(_ context.Context, sc *sim.Context) error {
			if sc.MapSnapshot == nil {
				return fmt.Errorf("map snapshot not built")
			}
			shift := world.Shift(sc.MapSnapshot, sc.Round)
			world.ApplyShift(sc.MapSnapshot, shift)
			sc.Tectonics = shift
			return nil
		}, nil
	}
}

// fetchSpeciesStage loads the save's species set.
// Writes: species_batch (alive), all_species.
func fetchSpeciesStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(ctx context.Context, sc *sim.Context) error {
			all, err := deps.Stores.Species.All(ctx, sc.SaveID)
			if err != nil {
				return fmt.Errorf("fetch species: %w", err)
			}
			for _, s := range all {
				if err := s.Validate(); err != nil {
					return err
				}
			}
			species.Sort(all)
			sc.AllSpecies = all
			sc.SpeciesBatch = species.Alive(all)
			return nil
		}, nil
	}
}

// foodWebStage builds the trophic web for the fetched batch.
// Reads: species_batch. Writes: food_web.
func foodWebStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(_ context.Context, sc *sim.Context) error {
			if sc.SpeciesBatch == nil {
				return fmt.Errorf("species batch not fetched")
			}
			sc.FoodWeb = ecology.BuildFoodWeb(sc.SpeciesBatch)
			return nil
		}, nil
	}
}

// tieringStage scores each species' niche.
// Reads: species_batch, food_web, map_snapshot. Writes: tiering.
func tieringStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(_ context.Context, sc *sim.Context) error {
			if sc.SpeciesBatch == nil || sc.FoodWeb == nil {
				return fmt.Errorf("food web not built")
			}
			snap := sc.MapSnapshot
			if snap == nil {
				return fmt.Errorf("map snapshot not built")
			}
			sc.Tiering = ecology.ComputeTiering(sc.SpeciesBatch, sc.FoodWeb, snap)
			return nil
		}, nil
	}
}

// prelimMortalityStage computes pressure- and niche-driven death rates.
// Reads: species_batch, pressures, tiering. Writes: preliminary_mortality.
func prelimMortalityStage(deps Deps) stage.Constructor {
	return func(node *yaml.Node) (stage.Runner, error) {
		params, err := decodeParams(node, ecology.DefaultMortalityParams())
		if err != nil {
			return nil, err
		}
		if err := inUnit("base_rate", params.BaseRate); err != nil {
			return nil, err
		}
		if err := inUnit("starved_rate", params.StarvedRate); err != nil {
			return nil, err
		}
		return func(_ context.Context, sc *sim.Context) error {
			if sc.SpeciesBatch == nil || sc.Tiering == nil {
				return fmt.Errorf("tiering not computed")
			}
			sc.PrelimMortality = ecology.PreliminaryMortality(sc.SpeciesBatch, sc.Pressures, sc.Tiering, params)
			return nil
		}, nil
	}
}

// migrationStage moves stressed species toward better cells.
// Reads: species_batch, map_snapshot, preliminary_mortality.
// Writes: migration_events.
func migrationStage(deps Deps) stage.Constructor {
	return func(node *yaml.Node) (stage.Runner, error) {
		params, err := decodeParams(node, ecology.DefaultMigrationParams())
		if err != nil {
			return nil, err
		}
		if err := inUnit("rate_threshold", params.RateThreshold); err != nil {
			return nil, err
		}
		if params.MaxMoves < 0 {
			return nil, fmt.Errorf("max_moves %d must not be negative", params.MaxMoves)
		}
		return func(_ context.Context, sc *sim.Context) error {
			if sc.SpeciesBatch == nil || sc.MapSnapshot == nil || sc.PrelimMortality == nil {
				return fmt.Errorf("preliminary mortality not computed")
			}
			events := ecology.PlanMigrations(sc.SpeciesBatch, sc.MapSnapshot, sc.PrelimMortality, params)
			ecology.ApplyMigrations(sc.SpeciesBatch, events)
			if events == nil {
				events = []ecology.MigrationEvent{}
			}
			sc.MigrationEvents = events
			return nil
		}, nil
	}
}

// mortalityStage folds migration relief into the final death table.
// Reads: species_batch, preliminary_mortality, migration_events.
// Writes: mortality.
func mortalityStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(_ context.Context, sc *sim.Context) error {
			if sc.PrelimMortality == nil {
				return fmt.Errorf("preliminary mortality not computed")
			}
			sc.Mortality = ecology.CombineMortality(sc.PrelimMortality, sc.MigrationEvents, sc.SpeciesBatch)
			return nil
		}, nil
	}
}

// populationStage applies deaths and marks extinctions.
// Reads: species_batch, mortality. Writes: populations, extinctions.
func populationStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(_ context.Context, sc *sim.Context) error {
			if sc.Mortality == nil {
				return fmt.Errorf("mortality not computed")
			}
			populations := ecology.ApplyPopulations(sc.SpeciesBatch, sc.Mortality)
			var extinctions []string
			for _, s := range sc.SpeciesBatch {
				pop := populations[s.ID]
				s.Population = pop
				if pop == 0 {
					s.Extinct = true
					extinctions = append(extinctions, s.ID)
				}
			}
			sc.Populations = populations
			sc.Extinctions = extinctions
			return nil
		}, nil
	}
}

// speciationStage branches large, stressed populations.
// Reads: species_batch, mortality, populations.
// Writes: branchings, new_species (children join the batch).
func speciationStage(deps Deps) stage.Constructor {
	return func(node *yaml.Node) (stage.Runner, error) {
		params, err := decodeParams(node, ecology.DefaultSpeciationParams())
		if err != nil {
			return nil, err
		}
		if err := inUnit("stress_threshold", params.StressThreshold); err != nil {
			return nil, err
		}
		if params.MinPopulation < 0 {
			return nil, fmt.Errorf("min_population %d must not be negative", params.MinPopulation)
		}
		return func(_ context.Context, sc *sim.Context) error {
			if sc.Mortality == nil || sc.Populations == nil {
				return fmt.Errorf("populations not updated")
			}
			events := ecology.DetectBranchings(sc.SpeciesBatch, sc.Mortality, sc.Populations, sc.Round, params)
			children := ecology.ApplyBranchings(sc.SpeciesBatch, sc.Populations, events)
			for _, parent := range sc.SpeciesBatch {
				parent.Population = sc.Populations[parent.ID]
			}
			sc.SpeciesBatch = append(sc.SpeciesBatch, children...)
			sc.AllSpecies = append(sc.AllSpecies, children...)
			sc.NewSpecies = children
			if events == nil {
				events = []ecology.BranchEvent{}
			}
			sc.Branchings = events
			return nil
		}, nil
	}
}

// NarrativeParams tunes the AI-backed narrative stage.
type NarrativeParams struct {
	Task            string `yaml:"task"`
	EmbedNewSpecies bool   `yaml:"embed_new_species"`
	// TimeoutSeconds bounds the stage's AI calls. The orchestrator never
	// owns stage latency; this stage does.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// narrativeStage asks the AI client for a prose summary of the turn and,
// optionally, embeddings for newly branched species. Declared recoverable
// in the shipped modes: a turn without prose is still a valid turn.
// Reads: populations, branchings, extinctions. Writes: narrative.
func narrativeStage(deps Deps) stage.Constructor {
	return func(node *yaml.Node) (stage.Runner, error) {
		params, err := decodeParams(node, NarrativeParams{Task: "narrative", TimeoutSeconds: 30})
		if err != nil {
			return nil, err
		}
		if params.TimeoutSeconds <= 0 {
			return nil, fmt.Errorf("timeout_seconds %d must be positive", params.TimeoutSeconds)
		}
		return func(ctx context.Context, sc *sim.Context) error {
			if deps.AI == nil {
				return fmt.Errorf("AI client not configured")
			}
			ctx, cancel := context.WithTimeout(ctx, time.Duration(params.TimeoutSeconds)*time.Second)
			defer cancel()

			prompt := narrativePrompt(sc)
			text, err := deps.AI.Generate(ctx, params.Task, prompt)
			if err != nil {
				return fmt.Errorf("narrative generation: %w", err)
			}
			sc.Narrative = text

			if params.EmbedNewSpecies {
				for _, child := range sc.NewSpecies {
					vec, err := deps.AI.Embed(ctx, child.Name)
					if err != nil {
						return fmt.Errorf("embed species %s: %w", child.ID, err)
					}
					child.Embedding = vec
				}
			}
			return nil
		}, nil
	}
}

func narrativePrompt(sc *sim.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize round %d of an ecosystem simulation in two sentences.\n", sc.Round)
	if sc.Populations != nil {
		// The table keeps zero entries for this turn's extinctions.
		alive := 0
		for _, pop := range sc.Populations {
			if pop > 0 {
				alive++
			}
		}
		fmt.Fprintf(&b, "Surviving species: %d.\n", alive)
	}
	if len(sc.Extinctions) > 0 {
		fmt.Fprintf(&b, "Extinctions: %s.\n", strings.Join(sc.Extinctions, ", "))
	}
	for _, ev := range sc.Branchings {
		fmt.Fprintf(&b, "New species %s branched from %s.\n", ev.ChildName, ev.Parent)
	}
	return b.String()
}

// buildReportStage assembles the turn report from whatever upstream stages
// produced. Sections for disabled stages are simply absent.
// Reads: nearly everything. Writes: report.
func buildReportStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(_ context.Context, sc *sim.Context) error {
			report := &sim.TurnReport{
				TurnID:    sc.TurnID,
				SaveID:    sc.SaveID,
				Round:     sc.Round,
				Mode:      sc.Command.Mode,
				CreatedAt: time.Now().UTC(),
				Narrative: sc.Narrative,
			}

			if sc.MapChanges != nil || sc.Tectonics != nil {
				report.Environment = &sim.EnvironmentSection{
					Changes:   sc.MapChanges,
					Tectonics: sc.Tectonics,
				}
			}
			if sc.SpeciesBatch != nil {
				report.Species = &sim.SpeciesSection{
					Count:       len(species.Alive(sc.SpeciesBatch)),
					Extinctions: sc.Extinctions,
				}
			}
			if sc.Mortality != nil {
				var total int64
				for _, deaths := range sc.Mortality.Deaths {
					total += deaths
				}
				report.Mortality = &sim.MortalitySection{
					TotalDeaths: total,
					Rates:       sc.Mortality.Rates,
				}
			}
			if sc.MigrationEvents != nil {
				report.Migration = &sim.MigrationSection{
					Count:  len(sc.MigrationEvents),
					Events: sc.MigrationEvents,
				}
			}
			if sc.Branchings != nil {
				report.Speciation = &sim.SpeciationSection{
					Count:  len(sc.Branchings),
					Events: sc.Branchings,
				}
			}

			sc.Report = report
			return nil
		}, nil
	}
}

// persistStage commits the turn: species set, map snapshot, and the report
// go down in one atomic commit. It runs last so an abort anywhere upstream
// leaves no partial state; its own failure is always critical.
// Reads: report, all_species, map_snapshot.
func persistStage(deps Deps) stage.Constructor {
	return func(_ *yaml.Node) (stage.Runner, error) {
		return func(ctx context.Context, sc *sim.Context) error {
			if sc.Report == nil {
				return fmt.Errorf("report not built")
			}
			err := deps.Stores.History.CommitTurn(ctx, storage.TurnCommit{
				Report:   sc.Report,
				Species:  sc.AllSpecies,
				Snapshot: sc.MapSnapshot,
			})
			if err != nil {
				return fmt.Errorf("commit turn: %w", err)
			}
			return nil
		}, nil
	}
}
