package terrain

import (
	"radarcov/pkg/geo"
	"radarcov/pkg/logging"
)

// Observer is a fixed sensor position with its height above ground level in meters.
type Observer struct {
	Lat       float64 `yaml:"lat"`
	Lon       float64 `yaml:"lon"`
	HeightAGL float64 `yaml:"height_agl"`
}

// Point returns the observer's horizontal position.
func (o Observer) Point() geo.Point {
	return geo.Point{Lat: o.Lat, Lon: o.Lon}
}

// Target is a position with an altitude in meters MSL.
type Target struct {
	Lat    float64
	Lon    float64
	AltMSL float64
}

// Query describes a single line-of-sight evaluation.
type Query struct {
	Observer Observer
	Target   Target
	Samples  int     // number of path subdivisions, >= 2
	Margin   float64 // meters added to terrain before the blockage comparison
}

// IsVisible reports whether the straight path from observer to target clears the terrain.
// Unknown terrain at the observer or anywhere along the path counts as blocked.
func IsVisible(q Query, g ElevationGetter) bool {
	eye, ok := EyeHeight(g, q.Observer)
	if !ok {
		return false
	}
	return ClearPath(g, q.Observer, eye, q.Target, q.Samples, q.Margin)
}

// EyeHeight returns the observer's absolute eye height in meters MSL.
func EyeHeight(g ElevationGetter, o Observer) (float64, bool) {
	ground, ok := g.ElevationAt(o.Lat, o.Lon)
	if !ok {
		return 0, false
	}
	return ground + o.HeightAGL, true
}

// ClearPath samples the interior of the observer→target path against the terrain.
// Only fractions k/samples for k in [1, samples-1] are evaluated; the two
// endpoints are never sampled. The first blocking sample ends the walk.
func ClearPath(g ElevationGetter, o Observer, eye float64, t Target, samples int, margin float64) bool {
	from := o.Point()
	to := geo.Point{Lat: t.Lat, Lon: t.Lon}

	for k := 1; k < samples; k++ {
		s := float64(k) / float64(samples)
		p := geo.Lerp(from, to, s)

		ground, ok := g.ElevationAt(p.Lat, p.Lon)
		if !ok {
			logging.TraceDefault("LOS no terrain at sample", "step", k, "lat", p.Lat, "lon", p.Lon)
			return false
		}

		line := eye + s*(t.AltMSL-eye)
		if ground+margin >= line {
			logging.TraceDefault("LOS blocked by terrain",
				"step", k, "of", samples,
				"sample_lat", p.Lat,
				"sample_lon", p.Lon,
				"ground_m", ground,
				"line_m", line)
			return false
		}
	}
	return true
}
