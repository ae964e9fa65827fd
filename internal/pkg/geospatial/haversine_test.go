package geospatial

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	// Paris to Berlin is roughly 878 km.
	d := Haversine(48.8566, 2.3522, 52.5200, 13.4050)
	if math.Abs(d-878_000) > 5_000 {
		t.Errorf("Haversine(Paris, Berlin) = %.0f m, want ~878 km", d)
	}
	if Haversine(1, 1, 1, 1) != 0 {
		t.Error("distance to self must be zero")
	}
}

func TestSameCenter(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   bool
	}{
		{"identical", 46.2276, 2.2137, 46.2276, 2.2137, true},
		{"within epsilon", 46.2276, 2.2137, 46.22765, 2.21375, true},
		{"lat beyond epsilon", 46.2276, 2.2137, 46.2278, 2.2137, false},
		{"lng beyond epsilon", 46.2276, 2.2137, 46.2276, 2.2139, false},
		{"antimeridian", 0, 179.99998, 0, -179.99998, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SameCenter(tc.lat1, tc.lon1, tc.lat2, tc.lon2, 1e-4); got != tc.want {
				t.Errorf("SameCenter = %v, want %v", got, tc.want)
			}
		})
	}
}
