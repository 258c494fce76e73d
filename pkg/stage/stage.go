package stage

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/verdant-systems/terrarium/pkg/sim"
)

// Policy is a stage's failure policy, read by the pipeline executor.
type Policy int

const (
	// Critical failures abort the turn: no later stage runs and nothing
	// is persisted.
	Critical Policy = iota
	// Recoverable failures are logged and the pipeline continues with
	// whatever the stage wrote before failing.
	Recoverable
)

// String returns the policy's configuration name.
func (p Policy) String() string {
	switch p {
	case Critical:
		return "critical"
	case Recoverable:
		return "recoverable"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "critical":
		return Critical, nil
	case "recoverable":
		return Recoverable, nil
	default:
		return Critical, fmt.Errorf("unknown failure policy %q", s)
	}
}

// Runner executes one stage against the turn context. Collaborator handles
// are captured by the constructor that produced the runner; a runner must
// not touch state outside the context and those captured collaborators.
type Runner func(ctx context.Context, sc *sim.Context) error

// Constructor builds a runner for one pipeline. Params come from the mode
// configuration; constructors decode them into their own typed struct and
// reject invalid values, so bad params fail at mode-load time rather than
// mid-turn.
type Constructor func(params *yaml.Node) (Runner, error)

// Instance is a fully resolved stage ready for execution.
type Instance struct {
	Name    string
	Order   int
	Enabled bool
	Policy  Policy
	Run     Runner
}
