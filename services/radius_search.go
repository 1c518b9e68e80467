package services

import (
	"context"
	"sort"
	"time"

	"github.com/fenilmodi00/vehicle-locator/database"
	"github.com/fenilmodi00/vehicle-locator/geo"
	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/sirupsen/logrus"
)

const radiusSearchName = "RadiusSearchService"

// RadiusSearchService ranks vehicles by distance from a center point.
// The store narrows candidates with a bounding box; exact distances are computed here.
type RadiusSearchService struct {
	store   database.VehicleStore
	metrics *shared.ServiceMetrics
	logger  *logrus.Entry
}

// NewRadiusSearchService creates a search service over a vehicle store
func NewRadiusSearchService(store database.VehicleStore) *RadiusSearchService {
	return &RadiusSearchService{
		store:   store,
		metrics: shared.NewServiceMetrics(radiusSearchName),
		logger:  logrus.WithField("component", radiusSearchName),
	}
}

// Metrics exposes search counters
func (s *RadiusSearchService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

// Search returns one page of vehicles within query.RadiusMiles of query.Center, nearest first
func (s *RadiusSearchService) Search(ctx context.Context, query models.RadiusQuery) (models.SearchResult, error) {
	if err := query.Validate(); err != nil {
		return models.SearchResult{}, shared.FromSentinel(shared.ErrInvalidRadiusQuery, err.Error(), radiusSearchName, "Search", err)
	}

	start := time.Now()
	box := geo.NewBoundingBox(query.Center.Latitude, query.Center.Longitude, query.RadiusMiles)

	candidates, err := s.store.FindInBoundingBox(ctx, box, query.Filters)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		shared.ObserveRadiusSearch(0, false)
		s.logger.WithFields(logrus.Fields{
			"operation": "Search",
			"lat":       query.Center.Latitude,
			"lng":       query.Center.Longitude,
			"radius":    query.RadiusMiles,
			"page":      query.Page,
			"error":     err.Error(),
		}).Error("Radius search query failed")
		return models.SearchResult{}, shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeDatabaseError, radiusSearchName, "Search", false)
	}

	hits := make([]models.VehicleWithDistance, 0, len(candidates))
	for _, v := range candidates {
		if !v.HasCoordinates() || !query.Filters.Matches(v) {
			continue
		}
		distance := geo.DistanceMiles(query.Center.Latitude, query.Center.Longitude, *v.SellerLatitude, *v.SellerLongitude)
		if distance <= query.RadiusMiles {
			hits = append(hits, models.VehicleWithDistance{Vehicle: v, DistanceMiles: distance})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].DistanceMiles != hits[j].DistanceMiles {
			return hits[i].DistanceMiles < hits[j].DistanceMiles
		}
		return hits[i].ID < hits[j].ID
	})

	result := models.SearchResult{Total: len(hits), Vehicles: []models.VehicleWithDistance{}}
	if offset := query.Offset(); offset < len(hits) {
		end := offset + query.PageSize
		if end > len(hits) {
			end = len(hits)
		}
		result.Vehicles = hits[offset:end]
	}

	s.metrics.RecordRequest(true, time.Since(start))
	shared.ObserveRadiusSearch(len(candidates), true)

	s.logger.WithFields(logrus.Fields{
		"lat":        query.Center.Latitude,
		"lng":        query.Center.Longitude,
		"radius":     query.RadiusMiles,
		"candidates": len(candidates),
		"matches":    result.Total,
		"page":       query.Page,
	}).Debug("Radius search completed")

	return result, nil
}

// ListVehicles returns the plain listing without location filtering
func (s *RadiusSearchService) ListVehicles(ctx context.Context, query models.ListQuery) (models.ListResult, error) {
	if err := query.Validate(); err != nil {
		return models.ListResult{}, shared.FromSentinel(shared.ErrInvalidRadiusQuery, err.Error(), radiusSearchName, "ListVehicles", err)
	}

	result, err := s.store.ListVehicles(ctx, query)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"operation": "ListVehicles",
			"page":      query.Page,
			"page_size": query.PageSize,
			"error":     err.Error(),
		}).Error("Vehicle listing query failed")
		return models.ListResult{}, shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeDatabaseError, radiusSearchName, "ListVehicles", false)
	}
	if result.Vehicles == nil {
		result.Vehicles = []models.Vehicle{}
	}
	return result, nil
}
