package world

import (
	"math"
	"sort"
)

// Known pressure names. Pressures outside this set are carried through the
// turn untouched but produce no map changes.
const (
	PressureClimate   = "climate"
	PressureDrought   = "drought"
	PressureVolcanism = "volcanism"
)

// ApplyPressures derives the map-change set for the submitted pressures and
// returns the changed snapshot alongside it. The input snapshot is not
// modified. Pressure names are visited in sorted order so the change set is
// deterministic for a given input.
func ApplyPressures(snap *Snapshot, pressures map[string]float64) (*Snapshot, []Change) {
	next := snap.Clone()
	var changes []Change

	names := make([]string, 0, len(pressures))
	for name := range pressures {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		strength := clamp(pressures[name], -1, 1)
		if strength == 0 {
			continue
		}
		for i := range next.Cells {
			cell := &next.Cells[i]
			switch name {
			case PressureClimate:
				delta := strength * 2.5
				cell.Temperature += delta
				changes = append(changes, Change{Cell: cell.Index, Field: "temperature", Delta: delta})
			case PressureDrought:
				if cell.Biome == "ocean" {
					continue
				}
				delta := -strength * 0.15
				cell.Fertility = clamp(cell.Fertility+delta, 0, 1)
				changes = append(changes, Change{Cell: cell.Index, Field: "fertility", Delta: delta})
			case PressureVolcanism:
				if cell.Biome != "highlands" {
					continue
				}
				delta := strength * 0.2
				cell.Fertility = clamp(cell.Fertility+delta, 0, 1)
				changes = append(changes, Change{Cell: cell.Index, Field: "fertility", Delta: delta})
			}
		}
	}

	return next, changes
}

// Shift computes the tectonic result for a round. The affected band walks
// the map one cell per round, so consecutive turns stress different regions.
func Shift(snap *Snapshot, round int) *TectonicShift {
	if len(snap.Cells) == 0 {
		return &TectonicShift{}
	}
	start := round % len(snap.Cells)
	width := 3
	shift := &TectonicShift{
		Magnitude: 0.1 + 0.05*math.Abs(math.Sin(float64(round))),
	}
	for i := 0; i < width; i++ {
		shift.AffectedCells = append(shift.AffectedCells, (start+i)%len(snap.Cells))
	}
	return shift
}

// ApplyShift lowers fertility on the cells a tectonic shift touched.
func ApplyShift(snap *Snapshot, shift *TectonicShift) {
	for _, idx := range shift.AffectedCells {
		if idx < 0 || idx >= len(snap.Cells) {
			continue
		}
		cell := &snap.Cells[idx]
		cell.Fertility = clamp(cell.Fertility-shift.Magnitude*0.5, 0, 1)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
