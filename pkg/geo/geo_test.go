package geo

import (
	"math"
	"testing"
)

func TestDistanceKM(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{
			name: "Same Point",
			p1:   Point{Lat: 43.6584, Lon: 7.2159},
			p2:   Point{Lat: 43.6584, Lon: 7.2159},
			want: 0,
		},
		{
			name: "One Degree Latitude",
			p1:   Point{Lat: 43.0, Lon: 7.0},
			p2:   Point{Lat: 44.0, Lon: 7.0},
			want: 111.2,
		},
		{
			name: "London to Paris",
			p1:   Point{Lat: 51.5074, Lon: -0.1278},
			p2:   Point{Lat: 48.8566, Lon: 2.3522},
			want: 344, // Approx 344km
		},
		{
			name: "Equator 1 degree",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 1},
			want: 111.19,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKM(tt.p1, tt.p2)
			if tt.want == 0 {
				if got != 0 {
					t.Errorf("DistanceKM() = %v, want 0", got)
				}
				return
			}
			margin := tt.want * 0.01
			if math.Abs(got-tt.want) > margin {
				t.Errorf("DistanceKM() = %v, want %v (+/- %v)", got, tt.want, margin)
			}
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := Point{Lat: 43.70, Lon: 7.25}
	b := Point{Lat: 43.95, Lon: 6.90}
	if d1, d2 := DistanceKM(a, b), DistanceKM(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("asymmetric distance: %v vs %v", d1, d2)
	}
	if got, want := Distance(a, b), DistanceKM(a, b)*1000; got != want {
		t.Errorf("Distance() = %v, want %v", got, want)
	}
}

func TestLerp(t *testing.T) {
	a := Point{Lat: 10, Lon: 20}
	b := Point{Lat: 12, Lon: 16}

	if got := Lerp(a, b, 0); got != a {
		t.Errorf("Lerp(0) = %v, want %v", got, a)
	}
	if got := Lerp(a, b, 1); got != b {
		t.Errorf("Lerp(1) = %v, want %v", got, b)
	}
	got := Lerp(a, b, 0.25)
	if math.Abs(got.Lat-10.5) > 1e-12 || math.Abs(got.Lon-19) > 1e-12 {
		t.Errorf("Lerp(0.25) = %v", got)
	}
}
