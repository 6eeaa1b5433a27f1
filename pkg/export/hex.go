package export

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/uber/h3-go/v4"

	"radarcov/pkg/terrain"
)

// HexCell aggregates grid nodes falling into one H3 cell.
type HexCell struct {
	Cell  h3.Cell
	Set   int
	Total int
}

// Fraction is the share of set nodes in the hexagon.
func (h HexCell) Fraction() float64 {
	if h.Total == 0 {
		return 0
	}
	return float64(h.Set) / float64(h.Total)
}

// HexSummary buckets every grid node into H3 cells at the given resolution.
// The result is ordered by cell index.
func HexSummary(g *terrain.Grid, m Matrix, res int) ([]HexCell, error) {
	if err := checkShape(g, m); err != nil {
		return nil, err
	}

	buckets := make(map[h3.Cell]*HexCell)
	rows, cols := m.Shape()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c, err := h3.LatLngToCell(h3.NewLatLng(g.Lat(i), g.Lon(j)), res)
			if err != nil {
				return nil, fmt.Errorf("h3 index for (%f, %f): %w", g.Lat(i), g.Lon(j), err)
			}
			b, ok := buckets[c]
			if !ok {
				b = &HexCell{Cell: c}
				buckets[c] = b
			}
			b.Total++
			if m.At(i, j) {
				b.Set++
			}
		}
	}

	out := make([]HexCell, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Cell < out[b].Cell })
	return out, nil
}

// HexCollection renders hexagons as polygons carrying their counts.
func HexCollection(hexes []HexCell, props geojson.Properties) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, h := range hexes {
		boundary, err := h.Cell.Boundary()
		if err != nil {
			return nil, fmt.Errorf("h3 boundary %s: %w", h.Cell, err)
		}
		ring := make(orb.Ring, 0, len(boundary)+1)
		for _, ll := range boundary {
			ring = append(ring, orb.Point{ll.Lng, ll.Lat})
		}
		if len(ring) > 0 {
			ring = append(ring, ring[0])
		}

		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["h3"] = h.Cell.String()
		f.Properties["set"] = h.Set
		f.Properties["total"] = h.Total
		f.Properties["fraction"] = h.Fraction()
		for k, v := range props {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	return fc, nil
}
