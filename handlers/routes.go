package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Routes holds everything the HTTP surface needs
type Routes struct {
	Geocode     *GeocodeHandler
	Vehicles    *VehicleHandler
	Admin       *AdminHandler
	Performance *PerformanceHandler

	AdminToken       string
	CORSAllowOrigins string
	DisableLogger    bool
}

// NewApp builds the Fiber application with middleware and every route registered
func NewApp(routes Routes) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "vehicle-locator",
	})

	app.Use(recover.New())
	app.Use(RequestID())
	if !routes.DisableLogger {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
		}))
	}
	origins := routes.CORSAllowOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{AllowOrigins: origins}))
	app.Use(PrometheusMiddleware())

	app.Get("/metrics", PrometheusHandler())
	if routes.Performance != nil {
		app.Get("/health", routes.Performance.Health)
	}

	api := app.Group("/api/v1")

	// Geocoding Routes
	if routes.Geocode != nil {
		geocode := api.Group("/geocode")
		geocode.Get("/health", routes.Geocode.Health)
		geocode.Get("/cache/stats", routes.Geocode.CacheStats)
		geocode.Delete("/cache", routes.Geocode.ClearCache)
		geocode.Post("/batch", routes.Geocode.GeocodeBatch)
		geocode.Get("/:zip", routes.Geocode.GeocodeZIP)
	}

	// Vehicle Routes
	if routes.Vehicles != nil {
		api.Get("/vehicles", routes.Vehicles.GetVehicles)
	}

	// Admin Routes
	admin := api.Group("/admin", AdminAuth(routes.AdminToken))
	if routes.Admin != nil {
		admin.Post("/sync/coordinates", routes.Admin.TriggerCoordinateSync)
		admin.Get("/sync/status", routes.Admin.GetSyncStatus)
	}
	if routes.Performance != nil {
		admin.Get("/performance/metrics", routes.Performance.GetPerformanceMetrics)
	}

	return app
}
