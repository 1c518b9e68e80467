package handlers

import (
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_locator_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vehicle_locator_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"method", "path"},
	)

	httpActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vehicle_locator_http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)
)

// RequestIDHeader carries the per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// PrometheusMiddleware records request counts and latency by route
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if strings.HasPrefix(path, "/metrics") {
			return c.Next()
		}

		start := time.Now()
		httpActiveRequests.Inc()
		defer httpActiveRequests.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			}
		}
		routePath := c.Route().Path
		if routePath == "" {
			routePath = path
		}

		httpRequestsTotal.WithLabelValues(c.Method(), routePath, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), routePath).Observe(time.Since(start).Seconds())

		return err
	}
}

// PrometheusHandler exposes the default registry
func PrometheusHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// RequestID propagates an incoming X-Request-ID or assigns a new one
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("requestid", id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

// AdminAuth requires "Authorization: Bearer <token>". An empty token leaves the routes open.
func AdminAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authorization header missing or invalid",
				"code":    shared.CodeUnauthorized,
			})
		}

		provided := strings.TrimPrefix(header, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid admin token",
				"code":    shared.CodeUnauthorized,
			})
		}

		return c.Next()
	}
}
