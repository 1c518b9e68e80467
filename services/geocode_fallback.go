package services

import (
	"context"
	"sort"

	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/shared"
)

// GeographicCenter is the contiguous-US center near Lebanon, KS. It is served only for an
// unknown ZIP when the provider failed at the transport level.
var GeographicCenter = models.Location{Latitude: 39.8283, Longitude: -98.5795, City: "Lebanon", State: "KS"}

var defaultFallbackLocations = map[string]models.Location{
	"98498": {Latitude: 47.0379, Longitude: -122.9015, City: "Lakewood", State: "WA"},
	"90210": {Latitude: 34.0901, Longitude: -118.4065, City: "Beverly Hills", State: "CA"},
	"10001": {Latitude: 40.7505, Longitude: -73.9934, City: "New York", State: "NY"},
	"60601": {Latitude: 41.8781, Longitude: -87.6298, City: "Chicago", State: "IL"},
	"75001": {Latitude: 32.9483, Longitude: -96.7299, City: "Addison", State: "TX"},
	"33101": {Latitude: 25.7617, Longitude: -80.1918, City: "Miami", State: "FL"},
	"77001": {Latitude: 29.7604, Longitude: -95.3698, City: "Houston", State: "TX"},
	"85001": {Latitude: 33.4484, Longitude: -112.074, City: "Phoenix", State: "AZ"},
	"80201": {Latitude: 39.7392, Longitude: -104.9903, City: "Denver", State: "CO"},
	"97201": {Latitude: 45.5152, Longitude: -122.6784, City: "Portland", State: "OR"},
	"30301": {Latitude: 33.749, Longitude: -84.388, City: "Atlanta", State: "GA"},
	"02101": {Latitude: 42.3601, Longitude: -71.0589, City: "Boston", State: "MA"},
	"19101": {Latitude: 39.9526, Longitude: -75.1652, City: "Philadelphia", State: "PA"},
	"63101": {Latitude: 38.627, Longitude: -90.1994, City: "St. Louis", State: "MO"},
	"55401": {Latitude: 44.9778, Longitude: -93.265, City: "Minneapolis", State: "MN"},
}

// FallbackTable is the static last-resort tier of the resolution chain
type FallbackTable struct {
	locations     map[string]models.Location
	serveCenter   bool
	centerOnError func(error) bool
}

// NewFallbackTable returns the built-in metro table with the geographic-center sentinel enabled
func NewFallbackTable() *FallbackTable {
	locations := make(map[string]models.Location, len(defaultFallbackLocations))
	for zip, loc := range defaultFallbackLocations {
		locations[zip] = loc
	}
	return &FallbackTable{
		locations:     locations,
		serveCenter:   true,
		centerOnError: shared.IsNetworkClass,
	}
}

// WithoutGeographicCenter disables the sentinel so unknown ZIPs always end in NotFound
func (f *FallbackTable) WithoutGeographicCenter() *FallbackTable {
	f.serveCenter = false
	return f
}

func (f *FallbackTable) Name() string {
	return "fallback"
}

// Lookup serves known metro ZIPs, and the geographic center when prior is a transport failure
func (f *FallbackTable) Lookup(_ context.Context, zip string, prior error) (models.Location, models.LocationSource, bool, error) {
	if location, ok := f.locations[zip]; ok {
		return location, models.LocationSourceFallback, true, nil
	}

	if f.serveCenter && prior != nil && f.centerOnError(prior) {
		return GeographicCenter, models.LocationSourceFallback, true, nil
	}

	return models.Location{}, "", false, nil
}

// Size returns the number of metro ZIPs in the table
func (f *FallbackTable) Size() int {
	return len(f.locations)
}

// ZIPs returns the table keys in sorted order
func (f *FallbackTable) ZIPs() []string {
	zips := make([]string, 0, len(f.locations))
	for zip := range f.locations {
		zips = append(zips, zip)
	}
	sort.Strings(zips)
	return zips
}
