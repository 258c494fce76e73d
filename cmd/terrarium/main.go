package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/verdant-systems/terrarium/pkg/ai"
	"github.com/verdant-systems/terrarium/pkg/config"
	"github.com/verdant-systems/terrarium/pkg/engine"
	"github.com/verdant-systems/terrarium/pkg/sim"
	"github.com/verdant-systems/terrarium/pkg/stage"
	"github.com/verdant-systems/terrarium/pkg/storage"
)

var modesFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "terrarium",
		Short: "Ecosystem simulation driven by a configurable turn pipeline",
		Long: `Terrarium advances a persistent ecosystem one turn at a time by running
	an ordered, mode-configured pipeline of stages: environment change,
	mortality, migration, speciation, reporting, and persistence.`,
	}

	rootCmd.PersistentFlags().StringVar(&modesFile, "modes", "configs/modes.yaml", "path to the mode manifest")

	rootCmd.AddCommand(turnCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(modesCmd())
	rootCmd.AddCommand(stagesCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func turnCmd() *cobra.Command {
	var saveID string
	var mode string
	var round int
	var pressureFlags []string
	var enable, disable []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "turn",
		Short: "Run one simulation turn",
		Long: `Runs a single turn of the pipeline for a save, applying the submitted
	pressures, and prints the resulting report.

	Use --enable/--disable to toggle individual stages on top of the mode
	without editing the manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if saveID == "" {
				return fmt.Errorf("--save is required")
			}

			pressures, err := parsePressureFlags(pressureFlags)
			if err != nil {
				return err
			}

			eng, stores, err := buildEngine()
			if err != nil {
				return err
			}
			defer func() {
				if err := stores.Close(); err != nil {
					log.Printf("close stores: %v", err)
				}
			}()

			report, err := eng.RunTurnWithOverrides(cmd.Context(), sim.TurnCommand{
				SaveID:    saveID,
				Round:     round,
				Mode:      mode,
				Pressures: pressures,
			}, config.Overrides{Enable: enable, Disable: disable})
			if err != nil {
				return err
			}

			if jsonOut {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&saveID, "save", "", "save identifier (required)")
	cmd.Flags().StringVar(&mode, "mode", "standard", "pipeline mode to run")
	cmd.Flags().IntVar(&round, "round", 0, "round number for this turn")
	cmd.Flags().StringArrayVar(&pressureFlags, "pressure", nil, "pressure as name=value in [-1,1] (repeatable)")
	cmd.Flags().StringArrayVar(&enable, "enable", nil, "force-enable a stage")
	cmd.Flags().StringArrayVar(&disable, "disable", nil, "force-disable a stage")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full report as JSON")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the mode manifest without running a turn",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, loader, err := buildLoader()
			if err != nil {
				return err
			}
			if err := loader.ValidateAll(); err != nil {
				return err
			}
			fmt.Println("Mode manifest is valid.")
			return nil
		},
	}
}

func modesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List configured modes and their stage sequences",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, loader, err := buildLoader()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODE\tORDER\tSTAGE\tENABLED")
			for _, name := range loader.Modes() {
				mode, _ := loader.Mode(name)
				for _, spec := range mode.Stages {
					fmt.Fprintf(w, "%s\t%d\t%s\t%t\n", name, spec.Order, spec.Name, spec.IsEnabled())
				}
			}
			return w.Flush()
		},
	}
}

func stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List registered stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := buildLoader()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STAGE\tPOLICY\tDESCRIPTION")
			for _, name := range reg.Names() {
				entry, err := reg.Resolve(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, entry.DefaultPolicy, entry.Description)
			}
			return w.Flush()
		},
	}
}

func historyCmd() *cobra.Command {
	var saveID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List committed turns for a save",
		RunE: func(cmd *cobra.Command, args []string) error {
			if saveID == "" {
				return fmt.Errorf("--save is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			stores, err := storage.NewStores(cmd.Context(), cfg.StoreBackend, cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer stores.Close()

			reports, err := stores.History.Turns(cmd.Context(), saveID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ROUND\tTURN\tMODE\tSPECIES\tDEATHS")
			for _, r := range reports {
				count := 0
				if r.Species != nil {
					count = r.Species.Count
				}
				var deaths int64
				if r.Mortality != nil {
					deaths = r.Mortality.TotalDeaths
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n", r.Round, r.TurnID, r.Mode, count, deaths)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&saveID, "save", "", "save identifier (required)")
	return cmd
}

func buildLoader() (*stage.Registry, *config.Loader, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	path := modesFile
	if cfg.ModesPath != "" {
		path = cfg.ModesPath
	}
	file, err := config.LoadModesFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load modes from %s: %w", path, err)
	}

	stores, err := storage.NewStores(context.Background(), cfg.StoreBackend, cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}

	deps := engine.Deps{
		Stores: stores,
		AI:     buildAIClient(cfg),
		Logger: log.Printf,
	}

	reg := stage.NewRegistry()
	if err := engine.RegisterStages(reg, deps); err != nil {
		_ = stores.Close()
		return nil, nil, err
	}

	// Constructors only capture the store handles; validation and listing
	// never execute a runner, so the backend is released here.
	if err := stores.Close(); err != nil {
		return nil, nil, err
	}
	return reg, config.NewLoader(reg, file), nil
}

func buildEngine() (*engine.Engine, storage.Stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, storage.Stores{}, fmt.Errorf("failed to load config: %w", err)
	}

	path := modesFile
	if cfg.ModesPath != "" {
		path = cfg.ModesPath
	}
	file, err := config.LoadModesFile(path)
	if err != nil {
		return nil, storage.Stores{}, fmt.Errorf("failed to load modes from %s: %w", path, err)
	}

	stores, err := storage.NewStores(context.Background(), cfg.StoreBackend, cfg.SQLitePath)
	if err != nil {
		return nil, storage.Stores{}, err
	}

	deps := engine.Deps{
		Stores: stores,
		AI:     buildAIClient(cfg),
		Logger: log.Printf,
	}

	reg := stage.NewRegistry()
	if err := engine.RegisterStages(reg, deps); err != nil {
		return nil, storage.Stores{}, err
	}
	loader := config.NewLoader(reg, file)

	eng := engine.New(reg, loader, deps, engine.WithTurnLogDir(cfg.TurnLogDir))
	return eng, stores, nil
}

func buildAIClient(cfg *config.Config) *ai.Client {
	adapters := map[string]ai.Adapter{
		"mock": ai.NewMockAdapter(),
	}

	if cfg.AnthropicAPIKey != "" {
		if a, err := ai.NewAnthropicAdapter(cfg.AnthropicAPIKey); err == nil {
			adapters["anthropic"] = a
		}
	}
	if cfg.OpenAIAPIKey != "" {
		if a, err := ai.NewOpenAIAdapter(cfg.OpenAIAPIKey); err == nil {
			adapters["openai"] = a
		}
	}
	if cfg.GoogleAPIKey != "" {
		if a, err := ai.NewGoogleAdapter(cfg.GoogleAPIKey); err == nil {
			adapters["google"] = a
		}
	}

	clientCfg := ai.DefaultClientConfig()
	if _, ok := adapters["anthropic"]; !ok {
		clientCfg.Routes["narrative"] = clientCfg.Default
	}
	if _, ok := adapters["google"]; !ok {
		clientCfg.Routes["species_name"] = clientCfg.Default
	}
	if _, ok := adapters["openai"]; !ok {
		clientCfg.EmbedAdapter = "mock"
	}

	return ai.NewClient(adapters, clientCfg)
}

func parsePressureFlags(flags []string) (map[string]float64, error) {
	pressures := make(map[string]float64, len(flags))
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("pressure %q must be name=value", f)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("pressure %s: %w", name, err)
		}
		pressures[name] = v
	}
	return pressures, nil
}

func printReport(r *sim.TurnReport) {
	fmt.Printf("Turn %s (round %d, mode %s)\n", r.TurnID, r.Round, r.Mode)
	if r.Species != nil {
		fmt.Printf("  species alive: %d\n", r.Species.Count)
		if len(r.Species.Extinctions) > 0 {
			fmt.Printf("  extinctions: %s\n", strings.Join(r.Species.Extinctions, ", "))
		}
	}
	if r.Environment != nil {
		fmt.Printf("  map changes: %d\n", len(r.Environment.Changes))
		if r.Environment.Tectonics != nil {
			fmt.Printf("  tectonic magnitude: %.2f\n", r.Environment.Tectonics.Magnitude)
		}
	}
	if r.Mortality != nil {
		fmt.Printf("  deaths: %d\n", r.Mortality.TotalDeaths)
	}
	if r.Migration != nil {
		fmt.Printf("  migrations: %d\n", r.Migration.Count)
	}
	if r.Speciation != nil {
		fmt.Printf("  new species: %d\n", r.Speciation.Count)
	}
	if r.Narrative != "" {
		fmt.Printf("\n%s\n", r.Narrative)
	}
}
