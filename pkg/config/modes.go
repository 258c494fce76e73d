package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/verdant-systems/terrarium/pkg/stage"
)

// StageSpec is one stage entry in a mode definition.
type StageSpec struct {
	Name    string    `yaml:"name"`
	Enabled *bool     `yaml:"enabled"`
	Order   int       `yaml:"order"`
	Policy  string    `yaml:"policy,omitempty"`
	Params  yaml.Node `yaml:"params,omitempty"`
}

// IsEnabled reports the entry's enabled flag; entries default to enabled.
func (s StageSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ModeConfig is a named, ordered set of stage specifications.
type ModeConfig struct {
	Stages []StageSpec `yaml:"stages"`
}

// ModesFile represents a mode manifest document.
type ModesFile struct {
	Modes map[string]ModeConfig `yaml:"modes"`
}

// LoadModesFile reads a mode manifest from a YAML file.
func LoadModesFile(path string) (*ModesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseModes(data)
}

// ParseModes parses a mode manifest document.
func ParseModes(data []byte) (*ModesFile, error) {
	var file ModesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse modes: %w", err)
	}
	if len(file.Modes) == 0 {
		return nil, fmt.Errorf("modes file defines no modes")
	}
	return &file, nil
}

// Overrides toggles individual stages on top of a named mode without
// editing the manifest.
type Overrides struct {
	Enable  []string
	Disable []string
}

// Loader resolves mode names into instantiated, validated stage lists.
// Validation happens entirely at load time: unknown stage names, duplicate
// orders among enabled stages, and invalid params all fail here, before any
// turn executes.
type Loader struct {
	registry *stage.Registry
	modes    map[string]ModeConfig
}

// NewLoader creates a loader over an explicit registry.
func NewLoader(registry *stage.Registry, file *ModesFile) *Loader {
	return &Loader{registry: registry, modes: file.Modes}
}

// Modes returns the available mode names, sorted.
func (l *Loader) Modes() []string {
	names := make([]string, 0, len(l.modes))
	for name := range l.modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mode returns the raw configuration for a mode.
func (l *Loader) Mode(name string) (ModeConfig, bool) {
	mode, ok := l.modes[name]
	return mode, ok
}

// LoadMode resolves a mode into instantiated stages in declaration order.
// Sorting by order is the executor's job.
func (l *Loader) LoadMode(name string, ov Overrides) ([]stage.Instance, error) {
	mode, ok := l.modes[name]
	if !ok {
		return nil, fmt.Errorf("unknown mode %q (have: %v)", name, l.Modes())
	}

	specs, err := applyOverrides(mode.Stages, ov)
	if err != nil {
		return nil, fmt.Errorf("mode %s: %w", name, err)
	}

	// Duplicate orders among enabled stages are ambiguous and rejected
	// outright rather than tie-broken.
	orderOwner := make(map[int]string)
	for _, spec := range specs {
		if !spec.IsEnabled() {
			continue
		}
		if other, ok := orderOwner[spec.Order]; ok {
			return nil, fmt.Errorf("mode %s: stages %s and %s share order %d", name, other, spec.Name, spec.Order)
		}
		orderOwner[spec.Order] = spec.Name
	}

	instances := make([]stage.Instance, 0, len(specs))
	for _, spec := range specs {
		entry, err := l.registry.Resolve(spec.Name)
		if err != nil {
			return nil, fmt.Errorf("mode %s: %w", name, err)
		}

		policy := entry.DefaultPolicy
		if spec.Policy != "" {
			policy, err = stage.ParsePolicy(spec.Policy)
			if err != nil {
				return nil, fmt.Errorf("mode %s: stage %s: %w", name, spec.Name, err)
			}
		}

		var params *yaml.Node
		if spec.Params.Kind != 0 {
			params = &spec.Params
		}
		run, err := entry.New(params)
		if err != nil {
			return nil, fmt.Errorf("mode %s: stage %s: %w", name, spec.Name, err)
		}

		instances = append(instances, stage.Instance{
			Name:    spec.Name,
			Order:   spec.Order,
			Enabled: spec.IsEnabled(),
			Policy:  policy,
			Run:     run,
		})
	}

	return instances, nil
}

// ValidateAll resolves every mode, surfacing configuration errors at
// startup rather than mid-session.
func (l *Loader) ValidateAll() error {
	for _, name := range l.Modes() {
		if _, err := l.LoadMode(name, Overrides{}); err != nil {
			return err
		}
	}
	return nil
}

func applyOverrides(specs []StageSpec, ov Overrides) ([]StageSpec, error) {
	if len(ov.Enable) == 0 && len(ov.Disable) == 0 {
		return specs, nil
	}

	byName := make(map[string]int, len(specs))
	out := make([]StageSpec, len(specs))
	for i, spec := range specs {
		out[i] = spec
		byName[spec.Name] = i
	}

	flag := func(names []string, enabled bool) error {
		for _, name := range names {
			i, ok := byName[name]
			if !ok {
				return fmt.Errorf("override references stage %s not in mode", name)
			}
			v := enabled
			out[i].Enabled = &v
		}
		return nil
	}

	if err := flag(ov.Enable, true); err != nil {
		return nil, err
	}
	if err := flag(ov.Disable, false); err != nil {
		return nil, err
	}
	return out, nil
}
