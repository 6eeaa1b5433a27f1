package mask

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadPolygonRules reads exclusion polygons from an ESRI shapefile.
// Non-polygon shapes are skipped.
func LoadPolygonRules(path string) ([]Rule, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer reader.Close()

	var rules []Rule
	for reader.Next() {
		n, s := reader.Shape()
		poly, ok := s.(*shp.Polygon)
		if !ok {
			slog.Debug("Skipping non-polygon shape", "index", n, "type", fmt.Sprintf("%T", s))
			continue
		}
		rules = append(rules, NewPolygonRule(fmt.Sprintf("%s#%d", path, n), convertPolygon(poly)...))
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shapes: %w", err)
	}

	slog.Info("Loaded exclusion polygons", "path", path, "count", len(rules))
	return rules, nil
}

// convertPolygon groups the parts of a record into polygons. Clockwise parts
// start a new polygon and counter-clockwise parts are holes of the polygon
// before them. A record with no clockwise part is read as one polygon per part.
func convertPolygon(s *shp.Polygon) orb.MultiPolygon {
	rings := make([]orb.Ring, 0, s.NumParts)
	outers := 0
	for i := 0; i < int(s.NumParts); i++ {
		start := s.Parts[i]
		end := s.NumPoints
		if i < int(s.NumParts)-1 {
			end = s.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{s.Points[j].X, s.Points[j].Y})
		}
		if ring.Orientation() == orb.CW {
			outers++
		}
		rings = append(rings, ring)
	}

	var mp orb.MultiPolygon
	for _, ring := range rings {
		if outers == 0 || ring.Orientation() == orb.CW || len(mp) == 0 {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		last := len(mp) - 1
		mp[last] = append(mp[last], ring)
	}
	return mp
}

// LoadGeoJSONRules reads exclusion polygons and multipolygons from a GeoJSON FeatureCollection.
func LoadGeoJSONRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read GeoJSON: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var rules []Rule
	for k, f := range fc.Features {
		name := fmt.Sprintf("%s#%d", path, k)
		if v, ok := f.Properties["name"].(string); ok && v != "" {
			name = v
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			rules = append(rules, NewPolygonRule(name, g))
		case orb.MultiPolygon:
			rules = append(rules, NewPolygonRule(name, g...))
		}
	}
	return rules, nil
}

// LoadRulesFile picks the polygon loader by file extension.
func LoadRulesFile(path string) ([]Rule, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadPolygonRules(path)
	case ".geojson", ".json":
		return LoadGeoJSONRules(path)
	default:
		return nil, fmt.Errorf("unsupported exclusion file %q", path)
	}
}
