package coverage

import (
	"fmt"
	"sort"
)

// FeetToMeters is the international foot.
const FeetToMeters = 0.3048

// FlightLevelToMeters converts a flight level (hundreds of feet MSL) to meters.
func FlightLevelToMeters(fl float64) float64 {
	return fl * 100.0 * FeetToMeters
}

// Map is the visibility of every grid cell from one observer at one altitude tier.
// It is congruent to the terrain grid: cell (i, j) is (lat[i], lon[j]).
type Map struct {
	FlightLevel float64
	AltitudeM   float64
	rows, cols  int
	cells       []bool
}

func newMap(fl float64, rows, cols int) *Map {
	return &Map{
		FlightLevel: fl,
		AltitudeM:   FlightLevelToMeters(fl),
		rows:        rows,
		cols:        cols,
		cells:       make([]bool, rows*cols),
	}
}

// NewMapFromCells rebuilds a map from row-major cell values, e.g. from storage.
func NewMapFromCells(fl float64, rows, cols int, cells []bool) (*Map, error) {
	if rows*cols != len(cells) {
		return nil, fmt.Errorf("coverage map FL%g: %d cells for %dx%d", fl, len(cells), rows, cols)
	}
	m := newMap(fl, rows, cols)
	copy(m.cells, cells)
	return m, nil
}

// Shape returns the map dimensions.
func (m *Map) Shape() (rows, cols int) { return m.rows, m.cols }

// At reports whether cell (i, j) is visible.
func (m *Map) At(i, j int) bool { return m.cells[i*m.cols+j] }

// Cells returns a row-major copy of the cell values.
func (m *Map) Cells() []bool { return append([]bool(nil), m.cells...) }

// Visible counts visible cells.
func (m *Map) Visible() int {
	n := 0
	for _, v := range m.cells {
		if v {
			n++
		}
	}
	return n
}

// Percent is the visible share of the grid in percent.
func (m *Map) Percent() float64 {
	if len(m.cells) == 0 {
		return 0
	}
	return float64(m.Visible()) / float64(len(m.cells)) * 100
}

// TierStat summarizes one coverage map.
type TierStat struct {
	FlightLevel float64
	AltitudeM   float64
	Visible     int
	Total       int
	Percent     float64
}

// Summarize returns per-tier statistics ordered by flight level.
func Summarize(maps map[float64]*Map) []TierStat {
	stats := make([]TierStat, 0, len(maps))
	for _, m := range maps {
		stats = append(stats, TierStat{
			FlightLevel: m.FlightLevel,
			AltitudeM:   m.AltitudeM,
			Visible:     m.Visible(),
			Total:       m.rows * m.cols,
			Percent:     m.Percent(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].FlightLevel < stats[j].FlightLevel })
	return stats
}

// SortedLevels returns the flight levels of maps in ascending order.
func SortedLevels(maps map[float64]*Map) []float64 {
	levels := make([]float64, 0, len(maps))
	for fl := range maps {
		levels = append(levels, fl)
	}
	sort.Float64s(levels)
	return levels
}
