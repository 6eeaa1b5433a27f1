package terrain

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// SyntheticSpec describes a generated terrain over a lat/lon rectangle.
type SyntheticSpec struct {
	Rows, Cols     int
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	Seed           int64
	MaxElevation   float64 // meters at noise value 1
	SeaLevel       float64 // normalized noise value mapped to 0 m; below is sea
}

// Synthetic builds a deterministic multi-octave noise terrain.
// Sea cells are exactly 0 m, so they read as terrain but not as land.
func Synthetic(spec SyntheticSpec) (*Grid, error) {
	if spec.Rows < 2 || spec.Cols < 2 {
		return nil, fmt.Errorf("synthetic terrain: %w (%dx%d)", ErrAxisTooShort, spec.Rows, spec.Cols)
	}
	if spec.SeaLevel >= 1 {
		return nil, fmt.Errorf("synthetic terrain: sea level must be below 1, got %f", spec.SeaLevel)
	}

	noise := opensimplex.NewNormalized(spec.Seed)

	lats := make([]float64, spec.Rows)
	dLat := (spec.MaxLat - spec.MinLat) / float64(spec.Rows-1)
	for i := range lats {
		lats[i] = spec.MinLat + float64(i)*dLat
	}
	lons := make([]float64, spec.Cols)
	dLon := (spec.MaxLon - spec.MinLon) / float64(spec.Cols-1)
	for j := range lons {
		lons[j] = spec.MinLon + float64(j)*dLon
	}

	elev := make([][]float64, spec.Rows)
	for i := range elev {
		row := make([]float64, spec.Cols)
		for j := range row {
			// Noise is sampled in grid-index space so the relief does not depend on the extent.
			n := octaveNoise(noise, float64(j)/32.0, float64(i)/32.0, 5, 1.0, 0.5)
			h := (n - spec.SeaLevel) / (1 - spec.SeaLevel)
			if h < 0 {
				h = 0
			}
			row[j] = h * spec.MaxElevation
		}
		elev[i] = row
	}

	return NewGrid(lats, lons, elev)
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
