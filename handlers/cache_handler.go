package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// CacheStats handles GET /geocode/cache/stats
func (h *GeocodeHandler) CacheStats(c *fiber.Ctx) error {
	entries := h.Resolver.Cache().Entries()

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"totalCached": len(entries),
			"ttl":         h.Resolver.Cache().TTL().String(),
			"entries":     entries,
		},
	})
}

// ClearCache handles DELETE /geocode/cache
func (h *GeocodeHandler) ClearCache(c *fiber.Ctx) error {
	cache := h.Resolver.Cache()
	previousSize := cache.Clear()

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      fmt.Sprintf("Geocoding cache cleared. Removed %d entries.", previousSize),
		"previousSize": previousSize,
		"currentSize":  cache.Size(),
	})
}
