package models

import "time"

// UnknownPlace is used when a geocode result carries no city or state
const UnknownPlace = "Unknown"

// LocationSource identifies which tier produced a coordinate
type LocationSource string

const (
	LocationSourceProvider LocationSource = "google"
	LocationSourceFallback LocationSource = "fallback"
)

// Location is a resolved coordinate with its place names.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	City      string  `json:"city"`
	State     string  `json:"state"`
}

// NewLocation builds a Location, substituting UnknownPlace for empty names
func NewLocation(lat, lng float64, city, state string) Location {
	if city == "" {
		city = UnknownPlace
	}
	if state == "" {
		state = UnknownPlace
	}
	return Location{Latitude: lat, Longitude: lng, City: city, State: state}
}

// GeocodeCacheEntry is a single cached ZIP resolution
type GeocodeCacheEntry struct {
	ZIP        string         `json:"zip"`
	Location   Location       `json:"location"`
	Source     LocationSource `json:"source"`
	ResolvedAt time.Time      `json:"resolved_at"`
}

// GeocodeCacheEntryStats is the per-entry view served by the cache stats endpoint
type GeocodeCacheEntryStats struct {
	ZIP      string         `json:"zip"`
	City     string         `json:"city"`
	State    string         `json:"state"`
	Source   LocationSource `json:"source"`
	CachedAt time.Time      `json:"cachedAt"`
	AgeMs    int64          `json:"ageMs"`
	Expired  bool           `json:"expired"`
}

// ResolvedLocation is the outcome of a single ZIP resolution. It encodes flat: {lat, lng, city, state, source, cached}.
type ResolvedLocation struct {
	Location
	Source LocationSource `json:"source"`
	Cached bool           `json:"cached"`
}

// BatchGeocodeResult is one item of a batch geocode response
type BatchGeocodeResult struct {
	ZIP     string         `json:"zip"`
	Success bool           `json:"success"`
	Data    *Location      `json:"data,omitempty"`
	Source  LocationSource `json:"source,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// BatchGeocodeSummary counts the outcomes of a batch
type BatchGeocodeSummary struct {
	TotalProcessed int `json:"totalProcessed"`
	Successful     int `json:"successful"`
	Failed         int `json:"failed"`
}
