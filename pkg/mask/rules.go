package mask

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"radarcov/pkg/config"
)

// Rule excludes geographic positions from siting.
type Rule interface {
	Excludes(lat, lon float64) bool
}

// BoundingBox excludes a closed lat/lon rectangle.
type BoundingBox struct {
	Name  string
	Bound orb.Bound
}

// NewBoundingBox builds a rectangle rule from degree limits.
func NewBoundingBox(name string, minLat, maxLat, minLon, maxLon float64) BoundingBox {
	return BoundingBox{
		Name: name,
		Bound: orb.Bound{
			Min: orb.Point{minLon, minLat},
			Max: orb.Point{maxLon, maxLat},
		},
	}
}

// Excludes reports whether the position lies inside the rectangle, edges included.
func (b BoundingBox) Excludes(lat, lon float64) bool {
	return b.Bound.Contains(orb.Point{lon, lat})
}

// Axis selects the coordinate a Threshold tests.
type Axis int

const (
	AxisLat Axis = iota
	AxisLon
)

// Threshold excludes positions strictly beyond a latitude or longitude.
type Threshold struct {
	Name  string
	Axis  Axis
	Value float64
	Above bool // exclude v > Value; otherwise exclude v < Value
}

// Excludes implements Rule.
func (t Threshold) Excludes(lat, lon float64) bool {
	v := lat
	if t.Axis == AxisLon {
		v = lon
	}
	if t.Above {
		return v > t.Value
	}
	return v < t.Value
}

// PolygonRule excludes the interior of one or more polygons in lon/lat degrees.
// Holes stay admissible.
type PolygonRule struct {
	Name     string
	Polygons orb.MultiPolygon
	bound    orb.Bound
}

// NewPolygonRule builds a polygon rule; the bound is cached for a cheap pre-check.
func NewPolygonRule(name string, polys ...orb.Polygon) PolygonRule {
	mp := orb.MultiPolygon(polys)
	return PolygonRule{Name: name, Polygons: mp, bound: mp.Bound()}
}

// Excludes implements Rule.
func (p PolygonRule) Excludes(lat, lon float64) bool {
	if len(p.Polygons) == 0 {
		return false
	}
	pt := orb.Point{lon, lat}
	if !p.bound.Contains(pt) {
		return false
	}
	return planar.MultiPolygonContains(p.Polygons, pt)
}

// FrenchTerritoryRules excludes the Principality of Monaco and Italian territory east of 7.5°E.
func FrenchTerritoryRules() []Rule {
	return []Rule{
		NewBoundingBox("Monaco", 43.72, 43.75, 7.40, 7.44),
		Threshold{Name: "Italy", Axis: AxisLon, Value: 7.5, Above: true},
	}
}

// RulesFromConfig translates configured exclusions into rules.
func RulesFromConfig(cfgs []config.RuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(cfgs))
	for k, c := range cfgs {
		switch c.Type {
		case "bbox":
			if c.MinLat > c.MaxLat || c.MinLon > c.MaxLon {
				return nil, fmt.Errorf("exclusion %d (%s): inverted bounding box", k, c.Name)
			}
			rules = append(rules, NewBoundingBox(c.Name, c.MinLat, c.MaxLat, c.MinLon, c.MaxLon))
		case "lon_above":
			rules = append(rules, Threshold{Name: c.Name, Axis: AxisLon, Value: c.Value, Above: true})
		case "lon_below":
			rules = append(rules, Threshold{Name: c.Name, Axis: AxisLon, Value: c.Value})
		case "lat_above":
			rules = append(rules, Threshold{Name: c.Name, Axis: AxisLat, Value: c.Value, Above: true})
		case "lat_below":
			rules = append(rules, Threshold{Name: c.Name, Axis: AxisLat, Value: c.Value})
		default:
			return nil, fmt.Errorf("exclusion %d (%s): unknown type %q", k, c.Name, c.Type)
		}
	}
	return rules, nil
}
