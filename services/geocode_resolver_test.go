package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tacomaGeocodeResponse = `{
  "status": "OK",
  "results": [{
    "geometry": {"location": {"lat": 47.2529, "lng": -122.4443}},
    "address_components": [
      {"long_name": "98402", "short_name": "98402", "types": ["postal_code"]},
      {"long_name": "Tacoma", "short_name": "Tacoma", "types": ["locality", "political"]},
      {"long_name": "Washington", "short_name": "WA", "types": ["administrative_area_level_1", "political"]}
    ]
  }]
}`

// newGoogleServer fakes the geocoding API and counts calls
func newGoogleServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int64) {
	t.Helper()
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func testGeocodeConfig(providerURL, apiKey string) shared.GeocodeConfig {
	cfg := shared.NewDefaultUnifiedConfiguration().Geocode
	cfg.ProviderURL = providerURL
	cfg.APIKey = apiKey
	cfg.ProviderTimeout = 2 * time.Second
	cfg.BatchDelay = 0
	return cfg
}

func newTestResolver(cfg shared.GeocodeConfig, cache *GeocodeCache) *GeocodeResolver {
	provider := NewGoogleGeocodingProvider(cfg, shared.NewHTTPClientFactory(cfg.ProviderTimeout))
	return NewGeocodeResolver(cfg, cache, provider, NewFallbackTable())
}

// countingStrategy records calls and answers from a fixed table
type countingStrategy struct {
	mu        sync.Mutex
	calls     int
	locations map[string]models.Location
	err       error
	delay     time.Duration
}

func (s *countingStrategy) Name() string { return "counting" }

func (s *countingStrategy) Lookup(_ context.Context, zip string, _ error) (models.Location, models.LocationSource, bool, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return models.Location{}, "", false, s.err
	}
	location, ok := s.locations[zip]
	if !ok {
		return models.Location{}, "", false, nil
	}
	return location, models.LocationSourceProvider, true, nil
}

func (s *countingStrategy) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestResolve_ProviderResultIsCached(t *testing.T) {
	server, calls := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "98402", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, tacomaGeocodeResponse)
	})
	resolver := newTestResolver(testGeocodeConfig(server.URL, "test-key"), nil)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "98402")
	require.NoError(t, err)
	assert.Equal(t, models.LocationSourceProvider, first.Source)
	assert.False(t, first.Cached)
	assert.Equal(t, "Tacoma", first.City)
	assert.Equal(t, "WA", first.State)
	assert.InDelta(t, 47.2529, first.Latitude, 1e-9)

	second, err := resolver.Resolve(ctx, "98402-1234")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Location, second.Location)
	assert.Equal(t, int64(1), atomic.LoadInt64(calls), "the cached lookup must not reach the provider")
}

func TestResolve_ExpiredEntryCallsProviderAgain(t *testing.T) {
	server, calls := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tacomaGeocodeResponse)
	})
	clock := newFakeClock()
	cfg := testGeocodeConfig(server.URL, "test-key")
	resolver := newTestResolver(cfg, NewGeocodeCacheWithConfig(cfg.CacheTTL, cfg.FallbackTTLFraction, clock.Now))
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "98402")
	require.NoError(t, err)

	clock.Advance(cfg.CacheTTL + time.Minute)
	assert.False(t, resolver.Cache().Has("98402"))

	resolved, err := resolver.Resolve(ctx, "98402")
	require.NoError(t, err)
	assert.False(t, resolved.Cached)
	assert.Equal(t, int64(2), atomic.LoadInt64(calls))
}

func TestResolve_InvalidFormat(t *testing.T) {
	resolver := newTestResolver(testGeocodeConfig("", ""), nil)

	for _, zip := range []string{"1234", "123456", "abcde", "12345-67", "", " 98498", "98498 ", "98498\n"} {
		_, err := resolver.Resolve(context.Background(), zip)
		require.Error(t, err, zip)
		assert.True(t, errors.Is(err, shared.ErrInvalidFormat), zip)
		assert.Equal(t, http.StatusBadRequest, shared.HTTPStatus(err))
	}
	assert.Equal(t, 0, resolver.Cache().Size())
}

func TestResolve_ProviderDisabled(t *testing.T) {
	resolver := newTestResolver(testGeocodeConfig("", ""), nil)
	ctx := context.Background()

	t.Run("unknown ZIP is not found", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, "99999")
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		assert.Equal(t, http.StatusNotFound, shared.HTTPStatus(err))
		assert.Equal(t, "Location not found for ZIP code 99999", shared.PublicMessage(err))
	})

	t.Run("known metro ZIP comes from the fallback table", func(t *testing.T) {
		resolved, err := resolver.Resolve(ctx, "98498")
		require.NoError(t, err)
		assert.Equal(t, models.LocationSourceFallback, resolved.Source)
		assert.Equal(t, "Lakewood", resolved.City)
		assert.Equal(t, "WA", resolved.State)
		assert.InDelta(t, 47.0379, resolved.Latitude, 1e-9)
		assert.InDelta(t, -122.9015, resolved.Longitude, 1e-9)

		entry, ok := resolver.Cache().Get("98498")
		require.True(t, ok)
		assert.Equal(t, models.LocationSourceFallback, entry.Source)
	})
}

func TestResolve_ProviderErrorsFallThrough(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"status":`) }},
		{"zero results", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`) }},
		{"denied", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newGoogleServer(t, tt.handler)
			resolver := newTestResolver(testGeocodeConfig(server.URL, "test-key"), nil)

			resolved, err := resolver.Resolve(context.Background(), "98498")
			require.NoError(t, err)
			assert.Equal(t, models.LocationSourceFallback, resolved.Source)

			// a bad response is not a transport failure, so no geographic center
			_, err = resolver.Resolve(context.Background(), "99999")
			assert.True(t, errors.Is(err, shared.ErrNotFound))
		})
	}
}

func TestResolve_NetworkFailureServesGeographicCenter(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	resolver := newTestResolver(testGeocodeConfig(url, "test-key"), nil)

	resolved, err := resolver.Resolve(context.Background(), "99999")
	require.NoError(t, err)
	assert.Equal(t, models.LocationSourceFallback, resolved.Source)
	assert.Equal(t, GeographicCenter, resolved.Location)
}

func TestResolve_TimeoutServesGeographicCenter(t *testing.T) {
	server, _ := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	})
	cfg := testGeocodeConfig(server.URL, "test-key")
	cfg.ProviderTimeout = 50 * time.Millisecond
	resolver := newTestResolver(cfg, nil)

	resolved, err := resolver.Resolve(context.Background(), "99999")
	require.NoError(t, err)
	assert.Equal(t, GeographicCenter, resolved.Location)
}

func TestResolve_CancelledCallerLeavesCacheUntouched(t *testing.T) {
	server, _ := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tacomaGeocodeResponse)
	})
	resolver := newTestResolver(testGeocodeConfig(server.URL, "test-key"), nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	for _, zip := range []string{"98402", "99999", "98498"} {
		_, err := resolver.Resolve(cancelled, zip)
		require.Error(t, err, zip)
		assert.True(t, errors.Is(err, shared.ErrRequestCancelled), zip)
		assert.True(t, errors.Is(err, context.Canceled), zip)
		assert.False(t, errors.Is(err, shared.ErrNotFound), zip)
	}
	assert.Equal(t, 0, resolver.Cache().Size(), "no geographic center or fallback entry is cached")

	resolved, err := resolver.Resolve(context.Background(), "98402")
	require.NoError(t, err)
	assert.Equal(t, models.LocationSourceProvider, resolved.Source)
	assert.False(t, resolved.Cached)
	assert.Equal(t, "Tacoma", resolved.City)
}

func TestResolve_ProviderFailureIsNeverSurfaced(t *testing.T) {
	strategy := &countingStrategy{err: shared.NewServiceError(shared.ErrorCategoryNetwork, shared.CodeProviderUnavailable, "down", "test", "Lookup", true, nil)}
	resolver := NewGeocodeResolverWithStrategies(testGeocodeConfig("", ""), nil, strategy, NewFallbackTable().WithoutGeographicCenter())

	_, err := resolver.Resolve(context.Background(), "99999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, shared.HTTPStatus(err))
}

func TestResolveBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects oversized batches before any lookup", func(t *testing.T) {
		strategy := &countingStrategy{}
		resolver := NewGeocodeResolverWithStrategies(testGeocodeConfig("", ""), nil, strategy)

		zips := make([]string, 51)
		for i := range zips {
			zips[i] = fmt.Sprintf("%05d", 10000+i)
		}

		_, err := resolver.ResolveBatch(ctx, zips)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrBatchTooLarge))
		assert.Equal(t, http.StatusBadRequest, shared.HTTPStatus(err))
		assert.Zero(t, strategy.Calls())
	})

	t.Run("rejects empty batches", func(t *testing.T) {
		resolver := NewGeocodeResolverWithStrategies(testGeocodeConfig("", ""), nil)
		_, err := resolver.ResolveBatch(ctx, nil)
		assert.True(t, errors.Is(err, shared.ErrEmptyBatch))
	})

	t.Run("reports per-item failures inline", func(t *testing.T) {
		resolver := newTestResolver(testGeocodeConfig("", ""), nil)

		results, err := resolver.ResolveBatch(ctx, []string{"98498", "12ab", "99999", "90210-1234", " 10001"})
		require.NoError(t, err)
		require.Len(t, results, 5)

		assert.True(t, results[0].Success)
		assert.Equal(t, models.LocationSourceFallback, results[0].Source)
		require.NotNil(t, results[0].Data)
		assert.Equal(t, "Lakewood", results[0].Data.City)

		assert.False(t, results[1].Success)
		assert.Equal(t, "Invalid ZIP code format", results[1].Error)

		assert.False(t, results[2].Success)
		assert.Equal(t, "Location not found for ZIP code 99999", results[2].Error)

		assert.True(t, results[3].Success)
		assert.Equal(t, "90210-1234", results[3].ZIP)

		assert.False(t, results[4].Success)
		assert.Equal(t, " 10001", results[4].ZIP, "the caller's input is echoed unchanged")

		assert.Equal(t, models.BatchGeocodeSummary{TotalProcessed: 5, Successful: 2, Failed: 3}, BatchSummary(results))
	})

	t.Run("spaces provider lookups", func(t *testing.T) {
		server, calls := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, tacomaGeocodeResponse)
		})
		cfg := testGeocodeConfig(server.URL, "test-key")
		cfg.BatchDelay = 40 * time.Millisecond
		resolver := newTestResolver(cfg, nil)

		start := time.Now()
		results, err := resolver.ResolveBatch(ctx, []string{"98402", "98403", "98404", "98402"})
		require.NoError(t, err)
		elapsed := time.Since(start)

		assert.Equal(t, int64(3), atomic.LoadInt64(calls), "the repeated ZIP is served from cache")
		assert.Equal(t, 4, BatchSummary(results).Successful)
		assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	})
}

func TestResolve_CoalescesConcurrentLookups(t *testing.T) {
	strategy := &countingStrategy{
		locations: map[string]models.Location{"98402": lakewood},
		delay:     50 * time.Millisecond,
	}
	cfg := testGeocodeConfig("", "")
	cfg.CoalesceLookups = true
	resolver := NewGeocodeResolverWithStrategies(cfg, nil, strategy)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolved, err := resolver.Resolve(context.Background(), "98402")
			assert.NoError(t, err)
			assert.Equal(t, lakewood, resolved.Location)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, strategy.Calls())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := resolver.Resolve(cancelled, "99999")
	assert.True(t, errors.Is(err, shared.ErrRequestCancelled))
	assert.Equal(t, 1, strategy.Calls(), "a cancelled caller starts no shared lookup")
}

func TestHealth(t *testing.T) {
	resolver := newTestResolver(testGeocodeConfig("", ""), nil)

	health := resolver.Health(context.Background())

	assert.False(t, health.ProviderEnabled)
	assert.Equal(t, "98498", health.TestZIP)
	require.NotNil(t, health.TestResult)
	assert.Equal(t, "Lakewood", health.TestResult.City)
	assert.Equal(t, 15, health.FallbackZIPs)
	assert.Len(t, health.FallbackCodes, 15)
	assert.Contains(t, health.FallbackCodes, "98498")
	assert.True(t, sort.StringsAreSorted(health.FallbackCodes))
	assert.Equal(t, 1, health.CacheSize)
	assert.Equal(t, "Fallback coordinates only + Caching", health.Capabilities)
	assert.NotNil(t, health.ProviderMetrics)
}
