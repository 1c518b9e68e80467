package services

import (
	"context"
	"strings"
	"time"

	"github.com/fenilmodi00/vehicle-locator/database"
	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const coordinateSyncName = "CoordinateSyncService"

// CoordinateSyncService is the only writer of the denormalized seller fields on vehicles
type CoordinateSyncService struct {
	store   database.SellerSyncStore
	metrics *shared.ServiceMetrics
	logger  *logrus.Entry
}

// NewCoordinateSyncService creates a sync service over a seller sync store
func NewCoordinateSyncService(store database.SellerSyncStore) *CoordinateSyncService {
	return &CoordinateSyncService{
		store:   store,
		metrics: shared.NewServiceMetrics(coordinateSyncName),
		logger:  logrus.WithField("component", coordinateSyncName),
	}
}

// Metrics exposes sync counters
func (s *CoordinateSyncService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

// SyncSellerCoordinates copies seller location data onto vehicles. An empty account number resyncs every seller.
func (s *CoordinateSyncService) SyncSellerCoordinates(ctx context.Context, accountNumber string) (models.SyncResult, error) {
	result := models.SyncResult{
		RunID:         uuid.New(),
		AccountNumber: strings.TrimSpace(accountNumber),
		StartedAt:     time.Now(),
	}

	logger := s.logger.WithFields(logrus.Fields{
		"run_id":         result.RunID,
		"account_number": result.AccountNumber,
	})
	logger.Info("Starting coordinate sync")

	rows, err := s.store.SyncSellerCoordinates(ctx, result.AccountNumber)
	result.Duration = time.Since(result.StartedAt)
	s.metrics.RecordRequest(err == nil, result.Duration)
	shared.ObserveCoordinateSync(rows, err == nil)

	if err != nil {
		logger.WithError(err).Error("Coordinate sync failed")
		return result, shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeDatabaseError, coordinateSyncName, "SyncSellerCoordinates", true)
	}

	result.RowsAffected = rows
	logger.WithFields(logrus.Fields{
		"rows_affected": rows,
		"duration":      result.Duration,
	}).Info("Coordinate sync completed")

	return result, nil
}
