package geo

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// destination returns the point reached by travelling distanceMiles from (lat, lng) along bearing (radians)
func destination(lat, lng, bearing, distanceMiles float64) (float64, float64) {
	angular := distanceMiles / EarthRadiusMiles
	phi1 := ToRadians(lat)
	lambda1 := ToRadians(lng)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(angular) + math.Cos(phi1)*math.Sin(angular)*math.Cos(bearing))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(phi1),
		math.Cos(angular)-math.Sin(phi1)*math.Sin(phi2),
	)

	return phi2 * 180 / math.Pi, lambda2 * 180 / math.Pi
}

func TestNewBoundingBox_Deltas(t *testing.T) {
	box := NewBoundingBox(0, 0, 69)

	if math.Abs(box.MaxLat-1) > 1e-9 || math.Abs(box.MinLat+1) > 1e-9 {
		t.Errorf("expected latitude window of ±1 degree at the equator, got [%f, %f]", box.MinLat, box.MaxLat)
	}
	if math.Abs(box.MaxLng-1) > 1e-9 || math.Abs(box.MinLng+1) > 1e-9 {
		t.Errorf("expected longitude window of ±1 degree at the equator, got [%f, %f]", box.MinLng, box.MaxLng)
	}

	north := NewBoundingBox(60, -122, 69)
	// cos(60°) = 0.5 doubles the longitude window
	if math.Abs((north.MaxLng-north.MinLng)-4) > 1e-9 {
		t.Errorf("expected 4 degree longitude window at 60N, got %f", north.MaxLng-north.MinLng)
	}
}

func TestNewBoundingBox_NearPoleIsEffectivelyUnbounded(t *testing.T) {
	box := NewBoundingBox(89.9999, 0, 50)

	if box.MaxLng-box.MinLng < 360 {
		t.Errorf("expected longitude window wider than the globe near the pole, got %f", box.MaxLng-box.MinLng)
	}
	if !box.Contains(89.9, 179) {
		t.Error("expected any longitude to be inside the box near the pole")
	}
}

func TestBoundingBox_ContainsIsInclusive(t *testing.T) {
	box := BoundingBox{MinLat: 10, MaxLat: 20, MinLng: -5, MaxLng: 5}

	cases := []struct {
		lat, lng float64
		want     bool
	}{
		{10, -5, true},
		{20, 5, true},
		{15, 0, true},
		{9.999, 0, false},
		{15, 5.001, false},
	}
	for _, c := range cases {
		if got := box.Contains(c.lat, c.lng); got != c.want {
			t.Errorf("Contains(%f, %f) = %v, want %v", c.lat, c.lng, got, c.want)
		}
	}
}

// Stage one of the radius search must never discard a point that the exact distance check would keep.
func TestBoundingBox_SupersetOfRadius(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("points on or inside the circle lie inside the box", prop.ForAll(
		func(centerLat, centerLng, radius, bearing, fraction float64) bool {
			lat, lng := destination(centerLat, centerLng, bearing, radius*fraction)
			if DistanceMiles(centerLat, centerLng, lat, lng) > radius {
				return true
			}
			return NewBoundingBox(centerLat, centerLng, radius).Contains(lat, lng)
		},
		gen.Float64Range(-60, 60),
		gen.Float64Range(-170, 170),
		gen.Float64Range(0.1, 250),
		gen.Float64Range(0, 2*math.Pi),
		gen.Float64Range(0, 1),
	))

	properties.Property("random nearby points inside the radius lie inside the box", prop.ForAll(
		func(centerLat, centerLng, radius, dLat, dLng float64) bool {
			lat := centerLat + dLat
			lng := centerLng + dLng
			if DistanceMiles(centerLat, centerLng, lat, lng) > radius {
				return true
			}
			return NewBoundingBox(centerLat, centerLng, radius).Contains(lat, lng)
		},
		gen.Float64Range(-60, 60),
		gen.Float64Range(-170, 170),
		gen.Float64Range(0.1, 250),
		gen.Float64Range(-4, 4),
		gen.Float64Range(-8, 8),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
