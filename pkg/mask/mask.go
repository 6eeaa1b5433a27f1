// Package mask builds boolean site-admissibility grids and combines them.
package mask

import (
	"errors"
	"fmt"

	"radarcov/pkg/geo"
	"radarcov/pkg/terrain"
)

var (
	// ErrShapeMismatch is returned when masks of different dimensions are combined.
	ErrShapeMismatch = errors.New("mask shape mismatch")
	// ErrNoMasks is returned when Combine is called without arguments.
	ErrNoMasks = errors.New("no masks to combine")
)

// Mask is a row-major boolean grid; true marks an admissible cell.
type Mask struct {
	rows, cols int
	cells      []bool
}

// New returns a rows x cols mask with every cell set to fill.
func New(rows, cols int, fill bool) *Mask {
	m := &Mask{rows: rows, cols: cols, cells: make([]bool, rows*cols)}
	if fill {
		for k := range m.cells {
			m.cells[k] = true
		}
	}
	return m
}

// FromCells wraps a copy of row-major cell values.
func FromCells(rows, cols int, cells []bool) (*Mask, error) {
	if rows*cols != len(cells) {
		return nil, fmt.Errorf("%w: %d cells for %dx%d", ErrShapeMismatch, len(cells), rows, cols)
	}
	return &Mask{rows: rows, cols: cols, cells: append([]bool(nil), cells...)}, nil
}

// Shape returns the mask dimensions.
func (m *Mask) Shape() (rows, cols int) { return m.rows, m.cols }

// At reports whether cell (i, j) is admissible.
func (m *Mask) At(i, j int) bool { return m.cells[i*m.cols+j] }

// Cells returns a row-major copy of the cell values.
func (m *Mask) Cells() []bool { return append([]bool(nil), m.cells...) }

// Count returns the number of admissible cells.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.cells {
		if v {
			n++
		}
	}
	return n
}

// Equal reports whether both masks have the same shape and cells.
func (m *Mask) Equal(o *Mask) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for k, v := range m.cells {
		if o.cells[k] != v {
			return false
		}
	}
	return true
}

// ByElevation marks cells whose elevation is strictly positive.
// Sea level and no-data cells are both excluded.
func ByElevation(g *terrain.Grid) *Mask {
	rows, cols := g.Shape()
	m := New(rows, cols, false)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.cells[i*cols+j] = g.Elevation(i, j) > 0
		}
	}
	return m
}

// ByDistance marks cells within radiusKM great-circle kilometers of center, inclusive.
func ByDistance(lats, lons []float64, center geo.Point, radiusKM float64) *Mask {
	m := New(len(lats), len(lons), false)
	for i, lat := range lats {
		for j, lon := range lons {
			d := geo.DistanceKM(center, geo.Point{Lat: lat, Lon: lon})
			m.cells[i*m.cols+j] = d <= radiusKM
		}
	}
	return m
}

// ByRegion starts from all-admissible and clears every cell any rule excludes.
// Rules only ever remove cells.
func ByRegion(lats, lons []float64, rules ...Rule) *Mask {
	m := New(len(lats), len(lons), true)
	if len(rules) == 0 {
		return m
	}
	for i, lat := range lats {
		for j, lon := range lons {
			for _, r := range rules {
				if r.Excludes(lat, lon) {
					m.cells[i*m.cols+j] = false
					break
				}
			}
		}
	}
	return m
}

// Combine returns the cell-wise AND of masks. Inputs are not modified.
func Combine(masks ...*Mask) (*Mask, error) {
	if len(masks) == 0 {
		return nil, ErrNoMasks
	}
	first := masks[0]
	for k, m := range masks[1:] {
		if m.rows != first.rows || m.cols != first.cols {
			return nil, fmt.Errorf("%w: mask %d is %dx%d, want %dx%d",
				ErrShapeMismatch, k+1, m.rows, m.cols, first.rows, first.cols)
		}
	}

	out := &Mask{rows: first.rows, cols: first.cols, cells: append([]bool(nil), first.cells...)}
	for _, m := range masks[1:] {
		for k, v := range m.cells {
			out.cells[k] = out.cells[k] && v
		}
	}
	return out, nil
}
