package terrain

import (
	"errors"
	"fmt"
	"sort"
)

// cellEpsilon guards the interpolation denominators against zero-width cells.
const cellEpsilon = 1e-12

var (
	// ErrShapeMismatch is returned when the elevation matrix does not match the axes.
	ErrShapeMismatch = errors.New("elevation shape does not match coordinate axes")
	// ErrAxisTooShort is returned when a coordinate axis has fewer than 2 samples.
	ErrAxisTooShort = errors.New("coordinate axis needs at least 2 samples")
	// ErrAxisNotMonotonic is returned when an axis mixes directions or repeats a value.
	ErrAxisNotMonotonic = errors.New("coordinate axis is not strictly monotonic")
)

// ElevationGetter answers point elevation queries.
type ElevationGetter interface {
	ElevationAt(lat, lon float64) (float64, bool)
}

// axis is a 1-D coordinate axis stored in its original order.
// Lookups go through an ascending view computed by index mapping.
type axis struct {
	values    []float64
	ascending bool
	min, max  float64
}

func newAxis(name string, values []float64) (axis, error) {
	if len(values) < 2 {
		return axis{}, fmt.Errorf("%s: %w (got %d)", name, ErrAxisTooShort, len(values))
	}
	asc := values[0] < values[len(values)-1]
	for i := 1; i < len(values); i++ {
		if asc && !(values[i] > values[i-1]) || !asc && !(values[i] < values[i-1]) {
			return axis{}, fmt.Errorf("%s: %w at index %d", name, ErrAxisNotMonotonic, i)
		}
	}

	a := axis{values: append([]float64(nil), values...), ascending: asc}
	if asc {
		a.min, a.max = values[0], values[len(values)-1]
	} else {
		a.min, a.max = values[len(values)-1], values[0]
	}
	return a, nil
}

// storage maps an index in the ascending view to the stored index.
func (a *axis) storage(k int) int {
	if a.ascending {
		return k
	}
	return len(a.values) - 1 - k
}

// at returns the k-th value of the ascending view.
func (a *axis) at(k int) float64 {
	return a.values[a.storage(k)]
}

func (a *axis) contains(v float64) bool {
	return a.min <= v && v <= a.max
}

// bracket returns ascending-view indices k0, k1 = k0+1 enclosing v.
// Mirrors a left-sided binary search clipped to [1, n-1].
func (a *axis) bracket(v float64) (int, int) {
	n := len(a.values)
	k1 := sort.Search(n, func(k int) bool { return a.at(k) >= v })
	if k1 < 1 {
		k1 = 1
	}
	if k1 > n-1 {
		k1 = n - 1
	}
	return k1 - 1, k1
}

// Grid is an immutable elevation surface over latitude/longitude axes.
// Elevations are meters MSL indexed [lat][lon]; negative values mark no-data.
type Grid struct {
	lat  axis
	lon  axis
	elev []float64 // row-major, len(lat)*len(lon)
}

// NewGrid validates and copies the supplied axes and elevation matrix.
func NewGrid(lats, lons []float64, elevations [][]float64) (*Grid, error) {
	latAxis, err := newAxis("latitudes", lats)
	if err != nil {
		return nil, err
	}
	lonAxis, err := newAxis("longitudes", lons)
	if err != nil {
		return nil, err
	}

	n, m := len(lats), len(lons)
	if len(elevations) != n {
		return nil, fmt.Errorf("%w: %d rows vs %d latitudes", ErrShapeMismatch, len(elevations), n)
	}
	elev := make([]float64, 0, n*m)
	for i, row := range elevations {
		if len(row) != m {
			return nil, fmt.Errorf("%w: row %d has %d columns vs %d longitudes", ErrShapeMismatch, i, len(row), m)
		}
		elev = append(elev, row...)
	}

	return &Grid{lat: latAxis, lon: lonAxis, elev: elev}, nil
}

// Shape returns (N, M): the number of latitudes and longitudes.
func (g *Grid) Shape() (rows, cols int) {
	return len(g.lat.values), len(g.lon.values)
}

// Lat returns the i-th latitude in stored order.
func (g *Grid) Lat(i int) float64 { return g.lat.values[i] }

// Lon returns the j-th longitude in stored order.
func (g *Grid) Lon(j int) float64 { return g.lon.values[j] }

// Lats returns a copy of the latitude axis in stored order.
func (g *Grid) Lats() []float64 { return append([]float64(nil), g.lat.values...) }

// Lons returns a copy of the longitude axis in stored order.
func (g *Grid) Lons() []float64 { return append([]float64(nil), g.lon.values...) }

// Elevation returns the raw stored elevation at [i][j].
func (g *Grid) Elevation(i, j int) float64 {
	return g.elev[i*len(g.lon.values)+j]
}

// Bounds returns the closed bounding rectangle of the grid.
func (g *Grid) Bounds() (minLat, maxLat, minLon, maxLon float64) {
	return g.lat.min, g.lat.max, g.lon.min, g.lon.max
}

// ElevationAt returns the bilinearly interpolated elevation at (lat, lon).
// It reports false outside the grid bounds or when any enclosing corner is no-data.
func (g *Grid) ElevationAt(lat, lon float64) (float64, bool) {
	if !g.lat.contains(lat) || !g.lon.contains(lon) {
		return 0, false
	}

	i0, i1 := g.lat.bracket(lat)
	j0, j1 := g.lon.bracket(lon)
	lat0, lat1 := g.lat.at(i0), g.lat.at(i1)
	lon0, lon1 := g.lon.at(j0), g.lon.at(j1)

	r0, r1 := g.lat.storage(i0), g.lat.storage(i1)
	c0, c1 := g.lon.storage(j0), g.lon.storage(j1)
	z00 := g.Elevation(r0, c0)
	z01 := g.Elevation(r0, c1)
	z10 := g.Elevation(r1, c0)
	z11 := g.Elevation(r1, c1)

	if z00 < 0 || z01 < 0 || z10 < 0 || z11 < 0 {
		return 0, false
	}

	t := (lat - lat0) / (lat1 - lat0 + cellEpsilon)
	u := (lon - lon0) / (lon1 - lon0 + cellEpsilon)

	z0 := (1-u)*z00 + u*z01
	z1 := (1-u)*z10 + u*z11
	return (1-t)*z0 + t*z1, true
}

// Decimate keeps every step-th latitude and longitude, starting at index 0.
// A step below 2 returns the grid itself.
func (g *Grid) Decimate(step int) *Grid {
	if step < 2 {
		return g
	}
	rows, cols := g.Shape()
	var lats, lons []float64
	for i := 0; i < rows; i += step {
		lats = append(lats, g.lat.values[i])
	}
	for j := 0; j < cols; j += step {
		lons = append(lons, g.lon.values[j])
	}
	if len(lats) < 2 || len(lons) < 2 {
		return g
	}

	elev := make([]float64, 0, len(lats)*len(lons))
	for i := 0; i < rows; i += step {
		for j := 0; j < cols; j += step {
			elev = append(elev, g.Elevation(i, j))
		}
	}

	// Subsampling preserves strict monotonicity, so the axes need no revalidation.
	latAxis, _ := newAxis("latitudes", lats)
	lonAxis, _ := newAxis("longitudes", lons)
	return &Grid{lat: latAxis, lon: lonAxis, elev: elev}
}

// MinMax returns the lowest and highest stored elevation, no-data included.
func (g *Grid) MinMax() (lo, hi float64) {
	lo, hi = g.elev[0], g.elev[0]
	for _, z := range g.elev[1:] {
		if z < lo {
			lo = z
		}
		if z > hi {
			hi = z
		}
	}
	return lo, hi
}
