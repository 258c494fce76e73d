package stage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrStageExists  = errors.New("stage already registered")
	ErrStageUnknown = errors.New("stage not registered")
)

// Entry describes one registered stage kind.
type Entry struct {
	// Description is shown by CLI listings.
	Description string
	// DefaultPolicy applies when a mode does not override the policy.
	DefaultPolicy Policy
	// New builds the stage's runner for one pipeline.
	New Constructor
}

// Registry maps stage names to constructors. It is owned by the bootstrap
// sequence and populated by explicit Register calls before any turn runs;
// there is no package-level instance and no import-side-effect registration.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a stage kind. Registering the same name twice is an error
// so a stage cannot be silently shadowed.
func (r *Registry) Register(name string, entry Entry) error {
	if name == "" {
		return fmt.Errorf("stage name is required")
	}
	if entry.New == nil {
		return fmt.Errorf("stage %s: constructor is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrStageExists, name)
	}
	r.entries[name] = entry
	return nil
}

// Resolve looks up a stage kind by name.
func (r *Registry) Resolve(name string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrStageUnknown, name)
	}
	return entry, nil
}

// Names returns all registered stage names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
