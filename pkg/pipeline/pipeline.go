package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/verdant-systems/terrarium/pkg/sim"
	"github.com/verdant-systems/terrarium/pkg/stage"
	"github.com/verdant-systems/terrarium/pkg/turnlog"
)

// Status is the terminal state of a pipeline run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// RunOptions configures pipeline execution.
type RunOptions struct {
	// Logger receives recoverable failures and abort diagnostics.
	Logger func(format string, args ...any)
	// TurnLog, when set, receives per-stage records as they complete.
	TurnLog *turnlog.Writer
}

// StageTiming is one row of the profiling table.
type StageTiming struct {
	Name     string
	Order    int
	Policy   stage.Policy
	Start    time.Time
	Duration time.Duration
	Status   string
	Err      string
}

// Result captures pipeline outputs. Timings are populated on completion and
// on abort.
type Result struct {
	Status  Status
	Timings []StageTiming
	Report  *sim.TurnReport
}

// StageError identifies the stage a critical failure came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Run executes the enabled stages in ascending order against one shared
// context. Execution is strictly sequential: stage N+1 never starts before
// stage N returns, because later stages read context fields only earlier
// stages produce.
//
// A recoverable stage failure is logged and the pipeline proceeds with
// whatever the stage wrote before failing. A critical failure aborts: no
// further stage runs, the populated context fields are logged for
// diagnostics, and the error propagates carrying the stage name. Nothing is
// persisted on abort since persistence only happens inside the terminal
// persist stage.
func Run(ctx context.Context, stages []stage.Instance, sc *sim.Context, opts RunOptions) (*Result, error) {
	logf := opts.Logger
	if logf == nil {
		logf = func(string, ...any) {}
	}

	ordered := make([]stage.Instance, 0, len(stages))
	for _, st := range stages {
		if st.Enabled {
			ordered = append(ordered, st)
		}
	}
	// Stable: the loader already rejected duplicate orders, but a
	// programmatically built list keeps declaration order on ties.
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	result := &Result{Status: StatusAborted}

	for _, st := range ordered {
		if err := ctx.Err(); err != nil {
			logf("turn %s cancelled before stage %s", sc.TurnID, st.Name)
			return result, &StageError{Stage: st.Name, Err: err}
		}

		before := sc.PopulatedFields()
		start := time.Now()
		err := st.Run(ctx, sc)
		timing := StageTiming{
			Name:     st.Name,
			Order:    st.Order,
			Policy:   st.Policy,
			Start:    start,
			Duration: time.Since(start),
			Status:   "ok",
		}
		if err != nil {
			timing.Status = "failed"
			timing.Err = err.Error()
		}
		result.Timings = append(result.Timings, timing)

		writeStageRecord(opts.TurnLog, st, timing, fieldsAdded(before, sc.PopulatedFields()))

		if err == nil {
			continue
		}

		if st.Policy == stage.Recoverable {
			logf("stage %s failed (recoverable), continuing: %v", st.Name, err)
			continue
		}

		// Log-then-discard: surface what the turn had produced before
		// the caller throws the context away.
		logf("stage %s failed (critical), aborting turn %s; populated fields: %s",
			st.Name, sc.TurnID, strings.Join(sc.PopulatedFields(), ", "))
		return result, &StageError{Stage: st.Name, Err: err}
	}

	result.Status = StatusCompleted
	result.Report = sc.Report
	return result, nil
}

func writeStageRecord(w *turnlog.Writer, st stage.Instance, timing StageTiming, fields []string) {
	if w == nil {
		return
	}
	record := turnlog.StageRecord{
		Name:           st.Name,
		Order:          st.Order,
		Policy:         st.Policy.String(),
		Status:         timing.Status,
		Error:          timing.Err,
		FieldsWritten:  fields,
		DurationMillis: timing.Duration.Milliseconds(),
	}
	// Evidence writing is best effort; a full disk must not fail a turn.
	_ = w.WriteStage(record)
}

func fieldsAdded(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, f := range before {
		seen[f] = struct{}{}
	}
	var added []string
	for _, f := range after {
		if _, ok := seen[f]; !ok {
			added = append(added, f)
		}
	}
	return added
}
