package handlers

import (
	"context"
	"time"

	"github.com/fenilmodi00/vehicle-locator/services"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/gofiber/fiber/v2"
)

// GeocodeHandler serves ZIP resolution and the geocode cache endpoints
type GeocodeHandler struct {
	Resolver *services.GeocodeResolver
}

func NewGeocodeHandler(resolver *services.GeocodeResolver) *GeocodeHandler {
	return &GeocodeHandler{Resolver: resolver}
}

type geocodeHealthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	services.GeocodeHealth
}

type batchGeocodeRequest struct {
	ZIPs []string `json:"zips"`
}

// GeocodeZIP handles GET /geocode/:zip
func (h *GeocodeHandler) GeocodeZIP(c *fiber.Ctx) error {
	resolved, err := h.Resolver.Resolve(c.UserContext(), c.Params("zip"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    resolved.Location,
		"meta": fiber.Map{
			"source": resolved.Source,
			"cached": resolved.Cached,
		},
	})
}

// GeocodeBatch handles POST /geocode/batch
func (h *GeocodeHandler) GeocodeBatch(c *fiber.Ctx) error {
	var request batchGeocodeRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, shared.CodeEmptyBatch, "Request body must contain 'zips' array with at least one ZIP code")
	}

	results, err := h.Resolver.ResolveBatch(c.UserContext(), request.ZIPs)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
		"meta":    services.BatchSummary(results),
	})
}

// Health handles GET /geocode/health
func (h *GeocodeHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	return c.JSON(geocodeHealthResponse{
		Success:       true,
		Message:       "Geocoding service healthy",
		GeocodeHealth: h.Resolver.Health(ctx),
	})
}
