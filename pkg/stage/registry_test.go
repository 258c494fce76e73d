package stage

import (
	"context"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/verdant-systems/terrarium/pkg/sim"
)

func noopConstructor(_ *yaml.Node) (Runner, error) {
	return func(context.Context, *sim.Context) error { return nil }, nil
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("alpha", Entry{New: noopConstructor}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := reg.Register("alpha", Entry{New: noopConstructor})
	if !errors.Is(err, ErrStageExists) {
		t.Fatalf("expected ErrStageExists, got %v", err)
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Resolve("missing")
	if !errors.Is(err, ErrStageUnknown) {
		t.Fatalf("expected ErrStageUnknown, got %v", err)
	}
}

func TestRegistryRequiresConstructor(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("alpha", Entry{}); err == nil {
		t.Fatal("expected error for nil constructor")
	}
	if err := reg.Register("", Entry{New: noopConstructor}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(name, Entry{New: noopConstructor}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	names := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestParsePolicy(t *testing.T) {
	cases := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"critical", Critical, false},
		{"recoverable", Recoverable, false},
		{"fatal", Critical, true},
		{"", Critical, true},
	}
	for _, tc := range cases {
		got, err := ParsePolicy(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParsePolicy(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePolicy(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePolicy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
