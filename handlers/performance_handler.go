package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/gofiber/fiber/v2"
)

// MetricsSource is any service that keeps ServiceMetrics
type MetricsSource interface {
	Metrics() *shared.ServiceMetrics
}

// PerformanceHandler reports process health and service metrics. DB is nil when running on the memory store.
type PerformanceHandler struct {
	DB      *sql.DB
	Queries *shared.DatabaseMetrics
	Sources map[string]MetricsSource
}

func NewPerformanceHandler(db *sql.DB, sources map[string]MetricsSource) *PerformanceHandler {
	return &PerformanceHandler{DB: db, Sources: sources}
}

// Health handles GET /health: liveness plus a database ping
func (h *PerformanceHandler) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	}

	if h.DB == nil {
		body["database"] = "memory"
		return c.JSON(body)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		body["status"] = "degraded"
		body["database"] = "unreachable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}

	body["database"] = "ok"
	return c.JSON(body)
}

// GetPerformanceMetrics returns service metric snapshots and pool statistics
func (h *PerformanceHandler) GetPerformanceMetrics(c *fiber.Ctx) error {
	metrics := make(map[string]interface{})

	services := make(map[string]shared.MetricsSnapshot, len(h.Sources))
	for name, source := range h.Sources {
		services[name] = source.Metrics().GetSnapshot()
	}
	metrics["services"] = services

	if h.DB != nil {
		dbStats := h.DB.Stats()
		metrics["database_stats"] = map[string]interface{}{
			"open_connections":     dbStats.OpenConnections,
			"in_use":               dbStats.InUse,
			"idle":                 dbStats.Idle,
			"wait_count":           dbStats.WaitCount,
			"wait_duration_ms":     dbStats.WaitDuration.Milliseconds(),
			"max_idle_closed":      dbStats.MaxIdleClosed,
			"max_idle_time_closed": dbStats.MaxIdleTimeClosed,
			"max_lifetime_closed":  dbStats.MaxLifetimeClosed,
		}
	}
	if h.Queries != nil {
		metrics["query_stats"] = h.Queries.GetDatabaseSnapshot()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    metrics,
	})
}
