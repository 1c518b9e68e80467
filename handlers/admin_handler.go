package handlers

import (
	"errors"
	"time"

	"github.com/fenilmodi00/vehicle-locator/jobs"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	SyncJob *jobs.CoordinateSyncJob
}

func NewAdminHandler(syncJob *jobs.CoordinateSyncJob) *AdminHandler {
	return &AdminHandler{SyncJob: syncJob}
}

type syncRequest struct {
	AccountNumber string `json:"accountNumber"`
}

// TriggerCoordinateSync runs a coordinate sync now, for one seller when accountNumber is given
func (h *AdminHandler) TriggerCoordinateSync(c *fiber.Ctx) error {
	var request syncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid request body",
			})
		}
	}

	logrus.WithFields(logrus.Fields{
		"component":      "AdminHandler",
		"account_number": request.AccountNumber,
	}).Info("Manual coordinate sync triggered via admin endpoint")

	result, err := h.SyncJob.Run(c.UserContext(), request.AccountNumber)
	if errors.Is(err, jobs.ErrSyncInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "Coordinate sync already in progress",
		})
	}
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Coordinate sync completed",
		"data":      result,
		"duration":  result.Duration.String(),
		"timestamp": time.Now(),
	})
}

// GetSyncStatus reports the last attempt, success and error of the sync job
func (h *AdminHandler) GetSyncStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.SyncJob.Status(),
	})
}
