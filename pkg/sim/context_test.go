package sim

import (
	"testing"

	"github.com/verdant-systems/terrarium/pkg/ecology"
	"github.com/verdant-systems/terrarium/pkg/species"
)

func TestPopulatedFieldsEmptyAtStart(t *testing.T) {
	sc := NewContext("t1", TurnCommand{SaveID: "save", Round: 3})
	if fields := sc.PopulatedFields(); len(fields) != 0 {
		t.Fatalf("fresh context reports populated fields: %v", fields)
	}
	if sc.Round != 3 || sc.SaveID != "save" {
		t.Fatalf("context not seeded from command: %+v", sc)
	}
}

func TestPopulatedFieldsTracksWrites(t *testing.T) {
	sc := NewContext("t1", TurnCommand{SaveID: "save"})
	sc.Pressures = map[string]float64{"climate": 0.2}
	sc.SpeciesBatch = []*species.Species{}
	sc.Mortality = &ecology.MortalityTable{}

	got := sc.PopulatedFields()
	want := []string{"pressures", "species_batch", "mortality"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
