package geo

import "math"

// BoundingBox is the rectangular pre-filter used before exact distance checks.
//
// The deltas are the flat-Earth approximation radius/69 (latitude) and
// radius/(69*cos(lat)) (longitude). Near the poles the cosine term approaches
// zero and the longitude window grows without bound; that is accepted.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// NewBoundingBox builds the box around a center for the given radius in miles
func NewBoundingBox(lat, lng, radiusMiles float64) BoundingBox {
	latDelta := radiusMiles / MilesPerDegreeLatitude
	lngDelta := radiusMiles / (MilesPerDegreeLatitude * math.Cos(ToRadians(lat)))

	// cos is negative only for |lat| > 90, which validation rejects, but keep the window well-formed anyway
	lngDelta = math.Abs(lngDelta)

	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}

// Contains reports whether the coordinate falls inside the box (inclusive bounds, matching SQL BETWEEN)
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}
