package shared

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	geocodeResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_locator_geocode_resolutions_total",
			Help: "ZIP resolutions by the tier that produced them",
		},
		[]string{"source", "cached"},
	)

	geocodeProviderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_locator_geocode_provider_failures_total",
			Help: "Geocoding provider failures by category",
		},
		[]string{"category"},
	)

	geocodeProviderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vehicle_locator_geocode_provider_duration_seconds",
			Help:    "Geocoding provider call latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
	)

	radiusSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_locator_radius_searches_total",
			Help: "Radius searches by outcome",
		},
		[]string{"status"},
	)

	radiusSearchCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vehicle_locator_radius_search_candidates",
			Help:    "Bounding box candidates examined per radius search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	coordinateSyncRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vehicle_locator_coordinate_sync_rows_total",
			Help: "Vehicle rows updated by coordinate sync",
		},
	)

	coordinateSyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_locator_coordinate_sync_runs_total",
			Help: "Coordinate sync runs by outcome",
		},
		[]string{"status"},
	)

	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vehicle_locator_db_query_duration_seconds",
			Help:    "Database query execution time in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "status"},
	)
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// ObserveGeocodeResolution counts a successful resolution
func ObserveGeocodeResolution(source string, cached bool) {
	cachedLabel := "false"
	if cached {
		cachedLabel = "true"
	}
	geocodeResolutionsTotal.WithLabelValues(source, cachedLabel).Inc()
}

// ObserveProviderCall records provider latency and, on failure, its category
func ObserveProviderCall(duration time.Duration, err error) {
	geocodeProviderDuration.Observe(duration.Seconds())
	if err == nil {
		return
	}

	category := string(ErrorCategoryProcessing)
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		category = string(serviceErr.Category)
	}
	geocodeProviderFailuresTotal.WithLabelValues(category).Inc()
}

// ObserveRadiusSearch records one radius search
func ObserveRadiusSearch(candidates int, success bool) {
	radiusSearchesTotal.WithLabelValues(statusLabel(success)).Inc()
	if success {
		radiusSearchCandidates.Observe(float64(candidates))
	}
}

// ObserveCoordinateSync records one sync run
func ObserveCoordinateSync(rows int64, success bool) {
	coordinateSyncRunsTotal.WithLabelValues(statusLabel(success)).Inc()
	if success && rows > 0 {
		coordinateSyncRowsTotal.Add(float64(rows))
	}
}

// ObserveDBQuery records a database query latency
func ObserveDBQuery(operation string, duration time.Duration, success bool) {
	dbQueryDuration.WithLabelValues(operation, statusLabel(success)).Observe(duration.Seconds())
}
