package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/verdant-systems/terrarium/pkg/sim"
	"github.com/verdant-systems/terrarium/pkg/stage"
)

func testRegistry(t *testing.T) *stage.Registry {
	t.Helper()
	reg := stage.NewRegistry()

	noop := func(_ *yaml.Node) (stage.Runner, error) {
		return func(context.Context, *sim.Context) error { return nil }, nil
	}
	for _, name := range []string{"init", "fetch_species", "build_report"} {
		if err := reg.Register(name, stage.Entry{DefaultPolicy: stage.Critical, New: noop}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	// A stage with typed, range-checked params.
	type tunedParams struct {
		Rate float64 `yaml:"rate"`
	}
	tuned := func(node *yaml.Node) (stage.Runner, error) {
		params := tunedParams{Rate: 0.5}
		if node != nil {
			if err := node.Decode(&params); err != nil {
				return nil, fmt.Errorf("invalid params: %w", err)
			}
		}
		if params.Rate < 0 || params.Rate > 1 {
			return nil, fmt.Errorf("rate %.2f out of range [0,1]", params.Rate)
		}
		return func(context.Context, *sim.Context) error { return nil }, nil
	}
	if err := reg.Register("tuned", stage.Entry{DefaultPolicy: stage.Recoverable, New: tuned}); err != nil {
		t.Fatalf("register tuned: %v", err)
	}

	return reg
}

func loadTestModes(t *testing.T, doc string) *ModesFile {
	t.Helper()
	file, err := ParseModes([]byte(doc))
	if err != nil {
		t.Fatalf("parse modes: %v", err)
	}
	return file
}

func TestLoadModeInstantiatesInDeclarationOrder(t *testing.T) {
	file := loadTestModes(t, `
modes:
  minimal:
    stages:
      - name: build_report
        order: 140
      - name: init
        order: 0
      - name: fetch_species
        order: 30
`)
	loader := NewLoader(testRegistry(t), file)

	stages, err := loader.LoadMode("minimal", Overrides{})
	if err != nil {
		t.Fatalf("load mode: %v", err)
	}
	if len(stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(stages))
	}
	// The loader preserves declaration order; sorting is the executor's.
	if stages[0].Name != "build_report" || stages[1].Name != "init" {
		t.Fatalf("unexpected order: %s, %s", stages[0].Name, stages[1].Name)
	}
	if stages[1].Policy != stage.Critical {
		t.Fatalf("default policy not applied")
	}
}

func TestLoadModeUnknownStage(t *testing.T) {
	file := loadTestModes(t, `
modes:
  broken:
    stages:
      - name: mystery_stage
        order: 10
`)
	loader := NewLoader(testRegistry(t), file)

	_, err := loader.LoadMode("broken", Overrides{})
	if !errors.Is(err, stage.ErrStageUnknown) {
		t.Fatalf("expected ErrStageUnknown, got %v", err)
	}
	if !strings.Contains(err.Error(), "mystery_stage") {
		t.Fatalf("error does not name the missing stage: %v", err)
	}
}

func TestLoadModeUnknownMode(t *testing.T) {
	file := loadTestModes(t, `
modes:
  minimal:
    stages:
      - name: init
        order: 0
`)
	loader := NewLoader(testRegistry(t), file)

	if _, err := loader.LoadMode("nope", Overrides{}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestLoadModeRejectsDuplicateOrders(t *testing.T) {
	file := loadTestModes(t, `
modes:
  clash:
    stages:
      - name: init
        order: 10
      - name: fetch_species
        order: 10
`)
	loader := NewLoader(testRegistry(t), file)

	_, err := loader.LoadMode("clash", Overrides{})
	if err == nil {
		t.Fatal("expected error for duplicate orders")
	}
	if !strings.Contains(err.Error(), "init") || !strings.Contains(err.Error(), "fetch_species") {
		t.Fatalf("error does not name both stages: %v", err)
	}
}

func TestLoadModeAllowsDuplicateOrderWhenOneDisabled(t *testing.T) {
	file := loadTestModes(t, `
modes:
  ok:
    stages:
      - name: init
        order: 10
      - name: fetch_species
        order: 10
        enabled: false
`)
	loader := NewLoader(testRegistry(t), file)

	stages, err := loader.LoadMode("ok", Overrides{})
	if err != nil {
		t.Fatalf("load mode: %v", err)
	}
	if stages[1].Enabled {
		t.Fatal("disabled stage reported enabled")
	}
}

func TestLoadModeParamsValidation(t *testing.T) {
	file := loadTestModes(t, `
modes:
  tuned_ok:
    stages:
      - name: tuned
        order: 10
        params:
          rate: 0.9
  tuned_bad:
    stages:
      - name: tuned
        order: 10
        params:
          rate: 7.5
`)
	loader := NewLoader(testRegistry(t), file)

	if _, err := loader.LoadMode("tuned_ok", Overrides{}); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	_, err := loader.LoadMode("tuned_bad", Overrides{})
	if err == nil {
		t.Fatal("expected params range error")
	}
	if !strings.Contains(err.Error(), "tuned") {
		t.Fatalf("error does not name the stage: %v", err)
	}
}

func TestOverridesToggleStages(t *testing.T) {
	file := loadTestModes(t, `
modes:
  base:
    stages:
      - name: init
        order: 0
      - name: tuned
        order: 10
        enabled: false
      - name: build_report
        order: 20
`)
	loader := NewLoader(testRegistry(t), file)

	stages, err := loader.LoadMode("base", Overrides{Enable: []string{"tuned"}, Disable: []string{"build_report"}})
	if err != nil {
		t.Fatalf("load mode: %v", err)
	}
	byName := make(map[string]stage.Instance)
	for _, st := range stages {
		byName[st.Name] = st
	}
	if !byName["tuned"].Enabled {
		t.Fatal("enable override ignored")
	}
	if byName["build_report"].Enabled {
		t.Fatal("disable override ignored")
	}

	if _, err := loader.LoadMode("base", Overrides{Enable: []string{"missing"}}); err == nil {
		t.Fatal("expected error for override referencing unknown stage")
	}
}

func TestValidateAllSurfacesBrokenMode(t *testing.T) {
	file := loadTestModes(t, `
modes:
  good:
    stages:
      - name: init
        order: 0
  bad:
    stages:
      - name: mystery_stage
        order: 0
`)
	loader := NewLoader(testRegistry(t), file)

	if err := loader.ValidateAll(); !errors.Is(err, stage.ErrStageUnknown) {
		t.Fatalf("expected ErrStageUnknown, got %v", err)
	}
}
