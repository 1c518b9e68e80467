package services

import (
	"sort"
	"sync"
	"time"

	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/sirupsen/logrus"
)

// GeocodeCache is an in-process ZIP -> coordinate cache with lazy TTL expiry.
//
// Entries expire TTL after they were resolved. Fallback-sourced entries expire after
// TTL*fallbackFraction so a provider lookup is retried sooner. Expired entries are
// evicted when read; PurgeExpired sweeps keys that are never read again.
type GeocodeCache struct {
	entries          map[string]models.GeocodeCacheEntry
	mutex            sync.RWMutex
	ttl              time.Duration
	fallbackFraction float64
	now              func() time.Time
}

// NewGeocodeCache creates an empty cache
func NewGeocodeCache(ttl time.Duration) *GeocodeCache {
	return NewGeocodeCacheWithConfig(ttl, shared.DefaultFallbackTTLFraction, time.Now)
}

// NewGeocodeCacheWithConfig creates a cache with an explicit fallback fraction and clock
func NewGeocodeCacheWithConfig(ttl time.Duration, fallbackFraction float64, now func() time.Time) *GeocodeCache {
	if ttl <= 0 {
		ttl = shared.DefaultGeocodeCacheTTL
	}
	if fallbackFraction <= 0 || fallbackFraction > 1 {
		fallbackFraction = shared.DefaultFallbackTTLFraction
	}
	if now == nil {
		now = time.Now
	}

	return &GeocodeCache{
		entries:          make(map[string]models.GeocodeCacheEntry),
		ttl:              ttl,
		fallbackFraction: fallbackFraction,
		now:              now,
	}
}

// TTL returns the provider-entry lifetime
func (gc *GeocodeCache) TTL() time.Duration {
	return gc.ttl
}

// lifetime returns how long an entry of the given source stays valid
func (gc *GeocodeCache) lifetime(source models.LocationSource) time.Duration {
	if source == models.LocationSourceFallback {
		return time.Duration(float64(gc.ttl) * gc.fallbackFraction)
	}
	return gc.ttl
}

func (gc *GeocodeCache) isExpired(entry models.GeocodeCacheEntry, now time.Time) bool {
	return now.Sub(entry.ResolvedAt) > gc.lifetime(entry.Source)
}

// Get returns a live entry. An expired entry is evicted and reported as absent.
func (gc *GeocodeCache) Get(zip string) (models.GeocodeCacheEntry, bool) {
	now := gc.now()

	gc.mutex.RLock()
	entry, exists := gc.entries[zip]
	gc.mutex.RUnlock()

	if !exists {
		return models.GeocodeCacheEntry{}, false
	}

	if gc.isExpired(entry, now) {
		gc.mutex.Lock()
		// a concurrent Put may have refreshed the key
		if current, ok := gc.entries[zip]; ok && gc.isExpired(current, now) {
			delete(gc.entries, zip)
		}
		gc.mutex.Unlock()
		return models.GeocodeCacheEntry{}, false
	}

	return entry, true
}

// Has reports whether a live entry exists, evicting it if expired
func (gc *GeocodeCache) Has(zip string) bool {
	_, ok := gc.Get(zip)
	return ok
}

// Put stores or overwrites the entry for zip, stamped with the current time
func (gc *GeocodeCache) Put(zip string, location models.Location, source models.LocationSource) {
	entry := models.GeocodeCacheEntry{
		ZIP:        zip,
		Location:   location,
		Source:     source,
		ResolvedAt: gc.now(),
	}

	gc.mutex.Lock()
	gc.entries[zip] = entry
	gc.mutex.Unlock()
}

// Delete removes a value from cache
func (gc *GeocodeCache) Delete(zip string) {
	gc.mutex.Lock()
	defer gc.mutex.Unlock()

	delete(gc.entries, zip)
}

// Clear removes all entries and returns how many were held
func (gc *GeocodeCache) Clear() int {
	gc.mutex.Lock()
	defer gc.mutex.Unlock()

	previous := len(gc.entries)
	gc.entries = make(map[string]models.GeocodeCacheEntry)
	return previous
}

// Size returns the number of stored entries, including expired ones not yet evicted
func (gc *GeocodeCache) Size() int {
	gc.mutex.RLock()
	defer gc.mutex.RUnlock()

	return len(gc.entries)
}

// Entries returns a per-entry view sorted by ZIP
func (gc *GeocodeCache) Entries() []models.GeocodeCacheEntryStats {
	now := gc.now()

	gc.mutex.RLock()
	stats := make([]models.GeocodeCacheEntryStats, 0, len(gc.entries))
	for zip, entry := range gc.entries {
		stats = append(stats, models.GeocodeCacheEntryStats{
			ZIP:      zip,
			City:     entry.Location.City,
			State:    entry.Location.State,
			Source:   entry.Source,
			CachedAt: entry.ResolvedAt,
			AgeMs:    now.Sub(entry.ResolvedAt).Milliseconds(),
			Expired:  gc.isExpired(entry, now),
		})
	}
	gc.mutex.RUnlock()

	sort.Slice(stats, func(i, j int) bool { return stats[i].ZIP < stats[j].ZIP })
	return stats
}

// PurgeExpired removes every expired entry and returns how many were removed
func (gc *GeocodeCache) PurgeExpired() int {
	now := gc.now()

	gc.mutex.Lock()
	defer gc.mutex.Unlock()

	removed := 0
	for zip, entry := range gc.entries {
		if gc.isExpired(entry, now) {
			delete(gc.entries, zip)
			removed++
		}
	}

	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"component": "GeocodeCache",
			"removed":   removed,
			"remaining": len(gc.entries),
		}).Debug("Purged expired geocode cache entries")
	}

	return removed
}
