package geo

import (
	"math"
)

// EarthRadiusKM is the mean spherical Earth radius used for all great-circle distances.
const EarthRadiusKM = 6371.0

// Point represents a geographic coordinate in degrees.
type Point struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// DistanceKM calculates the haversine distance between two points in kilometers.
func DistanceKM(p1, p2 Point) float64 {
	lat1 := Radians(p1.Lat)
	lat2 := Radians(p2.Lat)
	dLat := lat2 - lat1
	dLon := Radians(p2.Lon) - Radians(p1.Lon)

	sLat := math.Sin(dLat / 2)
	sLon := math.Sin(dLon / 2)
	a := sLat*sLat + math.Cos(lat1)*math.Cos(lat2)*sLon*sLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

// Distance calculates the haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	return DistanceKM(p1, p2) * 1000.0
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

// Lerp interpolates linearly between two points, independently per axis.
// This is a planar approximation and is only meant for short baselines.
func Lerp(p1, p2 Point, s float64) Point {
	return Point{
		Lat: p1.Lat + s*(p2.Lat-p1.Lat),
		Lon: p1.Lon + s*(p2.Lon-p1.Lon),
	}
}
