package services

import (
	"sync"
	"testing"
	"time"

	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for TTL tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var lakewood = models.Location{Latitude: 47.0379, Longitude: -122.9015, City: "Lakewood", State: "WA"}

func TestGeocodeCache_GetPutOverwrite(t *testing.T) {
	cache := NewGeocodeCache(time.Hour)

	_, ok := cache.Get("98498")
	assert.False(t, ok)

	cache.Put("98498", lakewood, models.LocationSourceFallback)
	entry, ok := cache.Get("98498")
	require.True(t, ok)
	assert.Equal(t, lakewood, entry.Location)
	assert.Equal(t, models.LocationSourceFallback, entry.Source)

	refreshed := models.Location{Latitude: 47.1, Longitude: -122.5, City: "Lakewood", State: "WA"}
	cache.Put("98498", refreshed, models.LocationSourceProvider)
	entry, ok = cache.Get("98498")
	require.True(t, ok)
	assert.Equal(t, refreshed, entry.Location)
	assert.Equal(t, models.LocationSourceProvider, entry.Source)
	assert.Equal(t, 1, cache.Size())

	cache.Delete("98498")
	assert.False(t, cache.Has("98498"))
}

func TestGeocodeCache_ExpiryIsLazy(t *testing.T) {
	clock := newFakeClock()
	cache := NewGeocodeCacheWithConfig(24*time.Hour, 0.2, clock.Now)

	cache.Put("10001", lakewood, models.LocationSourceProvider)

	clock.Advance(24 * time.Hour)
	assert.True(t, cache.Has("10001"), "entry is still live exactly at the TTL")

	clock.Advance(time.Second)
	assert.Equal(t, 1, cache.Size(), "expired entries stay until read")
	_, ok := cache.Get("10001")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size(), "reading an expired entry evicts it")
}

func TestGeocodeCache_FallbackEntriesExpireSooner(t *testing.T) {
	clock := newFakeClock()
	cache := NewGeocodeCacheWithConfig(10*time.Hour, 0.2, clock.Now)

	cache.Put("98498", lakewood, models.LocationSourceFallback)
	cache.Put("90210", lakewood, models.LocationSourceProvider)

	clock.Advance(2*time.Hour + time.Minute)

	assert.False(t, cache.Has("98498"))
	assert.True(t, cache.Has("90210"))
}

func TestGeocodeCache_EntriesAndPurge(t *testing.T) {
	clock := newFakeClock()
	cache := NewGeocodeCacheWithConfig(time.Hour, 0.5, clock.Now)

	cache.Put("90210", lakewood, models.LocationSourceProvider)
	cache.Put("10001", lakewood, models.LocationSourceFallback)
	clock.Advance(45 * time.Minute)

	entries := cache.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "10001", entries[0].ZIP)
	assert.True(t, entries[0].Expired)
	assert.Equal(t, int64(45*60*1000), entries[0].AgeMs)
	assert.Equal(t, "90210", entries[1].ZIP)
	assert.False(t, entries[1].Expired)

	assert.Equal(t, 1, cache.PurgeExpired())
	assert.Equal(t, 1, cache.Size())

	assert.Equal(t, 1, cache.Clear())
	assert.Equal(t, 0, cache.Size())
}

func TestGeocodeCache_ConcurrentAccess(t *testing.T) {
	cache := NewGeocodeCache(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				cache.Put("98498", models.Location{Latitude: float64(i), City: "Lakewood", State: "WA"}, models.LocationSourceProvider)
				cache.Get("98498")
				cache.Entries()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Size())
}

func TestGeocodeCache_TTLProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("an entry is visible exactly while its age is within the lifetime", prop.ForAll(
		func(ttlMinutes int, ageMinutes int, fallback bool) bool {
			clock := newFakeClock()
			ttl := time.Duration(ttlMinutes) * time.Minute
			cache := NewGeocodeCacheWithConfig(ttl, 0.25, clock.Now)

			source := models.LocationSourceProvider
			lifetime := ttl
			if fallback {
				source = models.LocationSourceFallback
				lifetime = time.Duration(float64(ttl) * 0.25)
			}

			cache.Put("55401", lakewood, source)
			age := time.Duration(ageMinutes) * time.Minute
			clock.Advance(age)

			return cache.Has("55401") == (age <= lifetime)
		},
		gen.IntRange(1, 48*60),
		gen.IntRange(0, 96*60),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
