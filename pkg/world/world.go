package world

import "fmt"

// Cell is one tile of the world map.
type Cell struct {
	Index       int     `json:"index"`
	Biome       string  `json:"biome"`
	Fertility   float64 `json:"fertility"`
	Temperature float64 `json:"temperature"`
}

// Snapshot is the full map state at the start or end of a turn.
type Snapshot struct {
	Round int    `json:"round"`
	Cells []Cell `json:"cells"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{Round: s.Round, Cells: make([]Cell, len(s.Cells))}
	copy(c.Cells, s.Cells)
	return c
}

// Cell returns the cell at index, or an error if out of range.
func (s *Snapshot) Cell(index int) (*Cell, error) {
	if index < 0 || index >= len(s.Cells) {
		return nil, fmt.Errorf("cell index %d out of range [0,%d)", index, len(s.Cells))
	}
	return &s.Cells[index], nil
}

// Change records one field adjustment on one cell.
type Change struct {
	Cell  int     `json:"cell"`
	Field string  `json:"field"`
	Delta float64 `json:"delta"`
}

// TectonicShift summarizes plate movement applied this turn.
type TectonicShift struct {
	Magnitude     float64 `json:"magnitude"`
	AffectedCells []int   `json:"affected_cells"`
}

// DefaultSnapshot builds the seed map used when a save has no stored
// environment yet: a small band of biomes with graded fertility.
func DefaultSnapshot() *Snapshot {
	biomes := []string{"ocean", "coast", "plains", "forest", "highlands", "desert"}
	cells := make([]Cell, 24)
	for i := range cells {
		cells[i] = Cell{
			Index:       i,
			Biome:       biomes[i%len(biomes)],
			Fertility:   0.35 + 0.5*float64(i%len(biomes))/float64(len(biomes)-1),
			Temperature: 10 + float64(i%12),
		}
	}
	return &Snapshot{Cells: cells}
}
