package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/verdant-systems/terrarium/pkg/ai"
	"github.com/verdant-systems/terrarium/pkg/config"
	"github.com/verdant-systems/terrarium/pkg/pipeline"
	"github.com/verdant-systems/terrarium/pkg/sim"
	"github.com/verdant-systems/terrarium/pkg/stage"
	"github.com/verdant-systems/terrarium/pkg/storage"
	"github.com/verdant-systems/terrarium/pkg/turnlog"
)

// ErrTurnInFlight is returned when a second turn is started for a save that
// already has one running. Turns are strictly serialized per save;
// concurrent turns against different saves are independent.
var ErrTurnInFlight = errors.New("turn already in flight for save")

// Deps bundles the collaborators stages need. The engine owns them for the
// lifetime of a simulation instance and injects them into stage
// constructors at bootstrap; stages never reach for globals.
type Deps struct {
	Stores storage.Stores
	AI     *ai.Client
	Logger func(format string, args ...any)
}

func (d Deps) logf(format string, args ...any) {
	if d.Logger != nil {
		d.Logger(format, args...)
	}
}

// Engine is the simulation façade: it builds a fresh context per turn,
// resolves the active mode's pipeline through the loader, runs it, and
// returns the turn report.
type Engine struct {
	registry *stage.Registry
	loader   *config.Loader
	deps     Deps

	// TurnLogDir, when non-empty, enables per-turn evidence records.
	turnLogDir string

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithTurnLogDir enables evidence records under dir.
func WithTurnLogDir(dir string) Option {
	return func(e *Engine) { e.turnLogDir = dir }
}

// New creates an engine over an already-populated registry and loader.
func New(registry *stage.Registry, loader *config.Loader, deps Deps, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		loader:   loader,
		deps:     deps,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTurn advances the save one turn and returns the report, or a
// *pipeline.StageError naming the failing stage.
func (e *Engine) RunTurn(ctx context.Context, cmd sim.TurnCommand) (*sim.TurnReport, error) {
	return e.RunTurnWithOverrides(ctx, cmd, config.Overrides{})
}

// RunTurnWithOverrides runs a turn with stage toggles composed on top of
// the named mode.
func (e *Engine) RunTurnWithOverrides(ctx context.Context, cmd sim.TurnCommand, ov config.Overrides) (*sim.TurnReport, error) {
	if cmd.SaveID == "" {
		return nil, fmt.Errorf("save ID is required")
	}
	if cmd.Mode == "" {
		cmd.Mode = "standard"
	}

	if err := e.acquire(cmd.SaveID); err != nil {
		return nil, err
	}
	defer e.release(cmd.SaveID)

	stages, err := e.loader.LoadMode(cmd.Mode, ov)
	if err != nil {
		return nil, err
	}

	sc := sim.NewContext(uuid.NewString(), cmd)

	var logWriter *turnlog.Writer
	if e.turnLogDir != "" {
		w, err := turnlog.NewWriter(e.turnLogDir, sc.TurnID)
		if err != nil {
			e.deps.logf("turn log disabled: %v", err)
		} else {
			logWriter = w
			_ = w.WriteTurn(turnlog.TurnRecord{
				ID:        sc.TurnID,
				SaveID:    sc.SaveID,
				Round:     sc.Round,
				Mode:      cmd.Mode,
				Timestamp: sc.StartedAt,
			})
		}
	}

	result, runErr := pipeline.Run(ctx, stages, sc, pipeline.RunOptions{
		Logger:  e.deps.Logger,
		TurnLog: logWriter,
	})

	if logWriter != nil {
		_ = logWriter.WriteTurn(turnlog.TurnRecord{
			ID:        sc.TurnID,
			SaveID:    sc.SaveID,
			Round:     sc.Round,
			Mode:      cmd.Mode,
			Timestamp: sc.StartedAt,
			Status:    string(result.Status),
		})
	}

	if runErr != nil {
		return nil, runErr
	}
	if result.Report == nil {
		return nil, fmt.Errorf("mode %s did not produce a report", cmd.Mode)
	}
	return result.Report, nil
}

func (e *Engine) acquire(saveID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.inflight[saveID]; ok {
		return fmt.Errorf("%w: %s", ErrTurnInFlight, saveID)
	}
	e.inflight[saveID] = struct{}{}
	return nil
}

func (e *Engine) release(saveID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, saveID)
}
