package species

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		species Species
		wantErr bool
	}{
		{"valid", Species{ID: "sp-1", TrophicLevel: 2, Population: 100, Resilience: 0.5}, false},
		{"missing ID", Species{TrophicLevel: 2, Population: 100, Resilience: 0.5}, true},
		{"trophic too low", Species{ID: "sp-1", TrophicLevel: 0, Resilience: 0.5}, true},
		{"trophic too high", Species{ID: "sp-1", TrophicLevel: 5, Resilience: 0.5}, true},
		{"negative population", Species{ID: "sp-1", TrophicLevel: 1, Population: -1, Resilience: 0.5}, true},
		{"resilience above one", Species{ID: "sp-1", TrophicLevel: 1, Resilience: 1.5}, true},
		{"resilience at bounds", Species{ID: "sp-1", TrophicLevel: 1, Resilience: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.species.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Species{ID: "sp-1", TrophicLevel: 1, Resilience: 0.5, Embedding: []float64{0.1, 0.2}}

	clone := orig.Clone()
	clone.Embedding[0] = 9
	clone.Population = 42

	if orig.Embedding[0] == 9 {
		t.Fatal("clone shares the embedding slice")
	}
	if orig.Population == 42 {
		t.Fatal("clone shares scalar state")
	}
}

func TestSortByID(t *testing.T) {
	list := []*Species{{ID: "sp-c"}, {ID: "sp-a"}, {ID: "sp-b"}}

	Sort(list)

	for i, want := range []string{"sp-a", "sp-b", "sp-c"} {
		if list[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, list[i].ID, want)
		}
	}
}

func TestAliveFilter(t *testing.T) {
	list := []*Species{
		{ID: "sp-a"},
		{ID: "sp-b", Extinct: true},
		{ID: "sp-c"},
	}

	alive := Alive(list)

	if len(alive) != 2 {
		t.Fatalf("got %d alive, want 2", len(alive))
	}
	for _, s := range alive {
		if s.Extinct {
			t.Fatalf("extinct species %s in alive set", s.ID)
		}
	}
}
