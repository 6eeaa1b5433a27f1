package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	farm "github.com/dgryski/go-farm"

	"radarcov/pkg/coverage"
	"radarcov/pkg/terrain"
)

// Fingerprint identifies a computation by everything that affects its result:
// the grid axes and elevations, the observer, the LOS parameters, and the set of flight levels.
func Fingerprint(g *terrain.Grid, p coverage.Params, levels []float64) string {
	rows, cols := g.Shape()
	buf := make([]byte, 0, 8*(rows*cols+rows+cols+len(levels)+8))

	put := func(v float64) {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}

	put(float64(rows))
	put(float64(cols))
	for i := 0; i < rows; i++ {
		put(g.Lat(i))
	}
	for j := 0; j < cols; j++ {
		put(g.Lon(j))
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			put(g.Elevation(i, j))
		}
	}

	put(p.Observer.Lat)
	put(p.Observer.Lon)
	put(p.Observer.HeightAGL)
	put(float64(p.Samples))
	put(p.Margin)

	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)
	for k, fl := range sorted {
		if k > 0 && fl == sorted[k-1] {
			continue
		}
		put(fl)
	}

	return fmt.Sprintf("%016x", farm.Fingerprint64(buf))
}
