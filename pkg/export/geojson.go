// Package export renders coverage maps and masks as GeoJSON.
package export

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"radarcov/pkg/coverage"
	"radarcov/pkg/terrain"
)

// Matrix is a boolean grid congruent to a terrain grid.
type Matrix interface {
	Shape() (rows, cols int)
	At(i, j int) bool
}

// cellPolygon spans grid nodes (i, j) to (i+1, j+1). The ring is wound
// counter-clockwise whichever way the axes run.
func cellPolygon(g *terrain.Grid, i, j int) orb.Polygon {
	south, north := math.Min(g.Lat(i), g.Lat(i+1)), math.Max(g.Lat(i), g.Lat(i+1))
	west, east := math.Min(g.Lon(j), g.Lon(j+1)), math.Max(g.Lon(j), g.Lon(j+1))
	return orb.Polygon{orb.Ring{
		{west, south}, {east, south}, {east, north}, {west, north}, {west, south},
	}}
}

// appendCells adds one polygon per set cell. The last row and column have no
// far neighbour to close the cell and are skipped.
func appendCells(fc *geojson.FeatureCollection, g *terrain.Grid, m Matrix, props geojson.Properties) {
	rows, cols := m.Shape()
	for i := 0; i < rows-1; i++ {
		for j := 0; j < cols-1; j++ {
			if !m.At(i, j) {
				continue
			}
			f := geojson.NewFeature(cellPolygon(g, i, j))
			for k, v := range props {
				f.Properties[k] = v
			}
			fc.Append(f)
		}
	}
}

func checkShape(g *terrain.Grid, m Matrix) error {
	gr, gc := g.Shape()
	mr, mc := m.Shape()
	if gr != mr || gc != mc {
		return fmt.Errorf("matrix is %dx%d, grid is %dx%d", mr, mc, gr, gc)
	}
	return nil
}

// CoverageCollection renders the visible cells of every tier plus the observer position.
func CoverageCollection(g *terrain.Grid, maps map[float64]*coverage.Map, o terrain.Observer) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, fl := range coverage.SortedLevels(maps) {
		m := maps[fl]
		if err := checkShape(g, m); err != nil {
			return nil, fmt.Errorf("FL%g: %w", fl, err)
		}
		appendCells(fc, g, m, geojson.Properties{
			"flight_level": fl,
			"altitude_m":   m.AltitudeM,
		})
	}

	obs := geojson.NewFeature(orb.Point{o.Lon, o.Lat})
	obs.Properties["kind"] = "observer"
	obs.Properties["height_agl"] = o.HeightAGL
	fc.Append(obs)
	return fc, nil
}

// MaskCollection renders the admissible cells of a mask.
func MaskCollection(g *terrain.Grid, m Matrix, name string) (*geojson.FeatureCollection, error) {
	if err := checkShape(g, m); err != nil {
		return nil, fmt.Errorf("mask %s: %w", name, err)
	}
	fc := geojson.NewFeatureCollection()
	appendCells(fc, g, m, geojson.Properties{"mask": name})
	return fc, nil
}

// WriteFile writes a FeatureCollection, creating parent directories as needed.
func WriteFile(path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
