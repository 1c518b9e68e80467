package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const geocodeResolverName = "GeocodeResolver"

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ValidZIP reports whether zip is a 5-digit or ZIP+4 code
func ValidZIP(zip string) bool {
	return zipPattern.MatchString(zip)
}

// GeocodeHealth is the health report of the resolution chain
type GeocodeHealth struct {
	ProviderEnabled bool                     `json:"googleMapsApiEnabled"`
	TestZIP         string                   `json:"testZip"`
	TestResult      *models.ResolvedLocation `json:"testResult"`
	TestError       string                   `json:"testError,omitempty"`
	FallbackZIPs    int                      `json:"fallbackZips"`
	FallbackCodes   []string                 `json:"fallbackZipCodes,omitempty"`
	CacheSize       int                      `json:"cacheSize"`
	Capabilities    string                   `json:"capabilities"`
	ProviderMetrics *shared.MetricsSnapshot  `json:"providerMetrics,omitempty"`
	Timestamp       time.Time                `json:"timestamp"`
}

// GeocodeResolver turns ZIP codes into coordinates: cache first, then each strategy in order.
// It owns its cache.
type GeocodeResolver struct {
	cache          *GeocodeCache
	strategies     []GeocodeStrategy
	provider       *GoogleGeocodingProvider
	fallback       *FallbackTable
	limiter        *shared.HTTPRequestRateLimiter
	maxBatchSize   int
	healthCheckZIP string
	coalesce       bool
	group          singleflight.Group
	logger         *logrus.Entry
}

// NewGeocodeResolver wires the default chain: provider, then fallback table
func NewGeocodeResolver(cfg shared.GeocodeConfig, cache *GeocodeCache, provider *GoogleGeocodingProvider, fallback *FallbackTable) *GeocodeResolver {
	var strategies []GeocodeStrategy
	if provider != nil {
		strategies = append(strategies, provider)
	}
	if fallback != nil {
		strategies = append(strategies, fallback)
	}

	resolver := NewGeocodeResolverWithStrategies(cfg, cache, strategies...)
	resolver.provider = provider
	resolver.fallback = fallback
	return resolver
}

// NewGeocodeResolverWithStrategies builds a resolver over an explicit chain
func NewGeocodeResolverWithStrategies(cfg shared.GeocodeConfig, cache *GeocodeCache, strategies ...GeocodeStrategy) *GeocodeResolver {
	if cache == nil {
		cache = NewGeocodeCacheWithConfig(cfg.CacheTTL, cfg.FallbackTTLFraction, nil)
	}
	maxBatchSize := cfg.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = shared.DefaultMaxBatchSize
	}
	healthCheckZIP := cfg.HealthCheckZIP
	if healthCheckZIP == "" {
		healthCheckZIP = shared.DefaultHealthCheckZIP
	}
	batchDelay := cfg.BatchDelay
	if batchDelay < 0 {
		batchDelay = shared.DefaultBatchDelay
	}

	resolver := &GeocodeResolver{
		cache:          cache,
		strategies:     strategies,
		limiter:        shared.NewHTTPRequestRateLimiter(batchDelay),
		maxBatchSize:   maxBatchSize,
		healthCheckZIP: healthCheckZIP,
		coalesce:       cfg.CoalesceLookups,
		logger:         logrus.WithField("component", geocodeResolverName),
	}
	for _, strategy := range strategies {
		if fallback, ok := strategy.(*FallbackTable); ok {
			resolver.fallback = fallback
		}
		if provider, ok := strategy.(*GoogleGeocodingProvider); ok {
			resolver.provider = provider
		}
	}
	return resolver
}

// Cache returns the resolver's cache
func (r *GeocodeResolver) Cache() *GeocodeCache {
	return r.cache
}

// MaxBatchSize returns the largest accepted batch
func (r *GeocodeResolver) MaxBatchSize() int {
	return r.maxBatchSize
}

// Resolve validates zip and returns its coordinate from the cache or the first strategy that answers
func (r *GeocodeResolver) Resolve(ctx context.Context, zip string) (models.ResolvedLocation, error) {
	if !ValidZIP(zip) {
		return models.ResolvedLocation{}, shared.FromSentinel(shared.ErrInvalidFormat,
			"Invalid ZIP code format. Use 12345 or 12345-6789", geocodeResolverName, "Resolve", nil)
	}
	normalized := zip[:5]

	if entry, ok := r.cache.Get(normalized); ok {
		shared.ObserveGeocodeResolution(string(entry.Source), true)
		return models.ResolvedLocation{Location: entry.Location, Source: entry.Source, Cached: true}, nil
	}

	if !r.coalesce {
		return r.lookup(ctx, normalized)
	}
	if err := ctx.Err(); err != nil {
		return models.ResolvedLocation{}, shared.FromSentinel(shared.ErrRequestCancelled, "", geocodeResolverName, "Resolve", err)
	}

	value, err, coalesced := r.group.Do(normalized, func() (interface{}, error) {
		// another caller may have filled the cache while this one waited
		if entry, ok := r.cache.Get(normalized); ok {
			return models.ResolvedLocation{Location: entry.Location, Source: entry.Source, Cached: true}, nil
		}
		// the shared lookup outlives any single caller; the provider timeout still bounds it
		return r.lookup(context.WithoutCancel(ctx), normalized)
	})
	if err != nil {
		return models.ResolvedLocation{}, err
	}
	resolved := value.(models.ResolvedLocation)
	if coalesced {
		r.logger.WithField("zip", normalized).Debug("Coalesced concurrent ZIP lookup")
	}
	return resolved, nil
}

func (r *GeocodeResolver) lookup(ctx context.Context, zip string) (models.ResolvedLocation, error) {
	var prior error

	for _, strategy := range r.strategies {
		location, source, found, err := strategy.Lookup(ctx, zip, prior)
		if source == models.LocationSourceProvider || (err != nil && shared.IsNetworkClass(err)) {
			r.limiter.MarkRequest()
		}

		if err != nil {
			// a cancelled caller gets no fallback answer and nothing is cached
			if ctxErr := ctx.Err(); ctxErr != nil {
				r.logger.WithFields(logrus.Fields{
					"zip":       zip,
					"strategy":  strategy.Name(),
					"operation": "Resolve",
				}).Debug("Caller cancelled ZIP resolution")
				return models.ResolvedLocation{}, shared.FromSentinel(shared.ErrRequestCancelled, "", geocodeResolverName, "Resolve", ctxErr)
			}
			r.logger.WithFields(logrus.Fields{
				"zip":       zip,
				"strategy":  strategy.Name(),
				"operation": "Resolve",
				"error":     err.Error(),
			}).Warn("Geocode strategy failed, trying next tier")
			prior = err
			continue
		}
		if !found {
			continue
		}

		r.cache.Put(zip, location, source)
		shared.ObserveGeocodeResolution(string(source), false)

		r.logger.WithFields(logrus.Fields{
			"zip":      zip,
			"strategy": strategy.Name(),
			"source":   source,
			"city":     location.City,
			"state":    location.State,
		}).Info("Resolved ZIP code")

		return models.ResolvedLocation{Location: location, Source: source, Cached: false}, nil
	}

	return models.ResolvedLocation{}, shared.FromSentinel(shared.ErrNotFound,
		fmt.Sprintf("Location not found for ZIP code %s", zip), geocodeResolverName, "Resolve", prior)
}

// ResolveBatch resolves up to MaxBatchSize ZIPs in order. Per-item failures are reported inline;
// only an empty or oversized batch, or a cancelled context, fails the whole call.
func (r *GeocodeResolver) ResolveBatch(ctx context.Context, zips []string) ([]models.BatchGeocodeResult, error) {
	if len(zips) == 0 {
		return nil, shared.FromSentinel(shared.ErrEmptyBatch, "", geocodeResolverName, "ResolveBatch", nil)
	}
	if len(zips) > r.maxBatchSize {
		return nil, shared.FromSentinel(shared.ErrBatchTooLarge,
			fmt.Sprintf("Batch size too large. Maximum %d ZIP codes per request", r.maxBatchSize),
			geocodeResolverName, "ResolveBatch", nil).
			WithDetails(map[string]int{"maxBatchSize": r.maxBatchSize, "received": len(zips)})
	}

	results := make([]models.BatchGeocodeResult, 0, len(zips))
	for _, raw := range zips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !ValidZIP(raw) {
			results = append(results, models.BatchGeocodeResult{ZIP: raw, Success: false, Error: "Invalid ZIP code format"})
			continue
		}

		resolved, err := r.Resolve(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			results = append(results, models.BatchGeocodeResult{ZIP: raw, Success: false, Error: shared.PublicMessage(err)})
			continue
		}

		location := resolved.Location
		results = append(results, models.BatchGeocodeResult{
			ZIP:     raw,
			Success: true,
			Data:    &location,
			Source:  resolved.Source,
		})

		if resolved.Source == models.LocationSourceProvider && !resolved.Cached {
			if err := r.limiter.EnforceRateLimit(ctx); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

// BatchSummary counts batch outcomes
func BatchSummary(results []models.BatchGeocodeResult) models.BatchGeocodeSummary {
	summary := models.BatchGeocodeSummary{TotalProcessed: len(results)}
	for _, result := range results {
		if result.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// Health runs a live test resolution and reports the state of every tier
func (r *GeocodeResolver) Health(ctx context.Context) GeocodeHealth {
	health := GeocodeHealth{
		TestZIP:   r.healthCheckZIP,
		CacheSize: r.cache.Size(),
		Timestamp: time.Now(),
	}

	if r.provider != nil {
		health.ProviderEnabled = r.provider.Enabled()
		snapshot := r.provider.Metrics().GetSnapshot()
		health.ProviderMetrics = &snapshot
	}
	if r.fallback != nil {
		health.FallbackZIPs = r.fallback.Size()
		health.FallbackCodes = r.fallback.ZIPs()
	}

	if health.ProviderEnabled {
		health.Capabilities = "Google Maps API + Fallback coordinates + Caching"
	} else {
		health.Capabilities = "Fallback coordinates only + Caching"
	}

	resolved, err := r.Resolve(ctx, r.healthCheckZIP)
	if err != nil {
		health.TestError = shared.PublicMessage(err)
	} else {
		health.TestResult = &resolved
	}
	health.CacheSize = r.cache.Size()

	return health
}
