package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenilmodi00/vehicle-locator/config"
	"github.com/fenilmodi00/vehicle-locator/database"
	"github.com/fenilmodi00/vehicle-locator/handlers"
	"github.com/fenilmodi00/vehicle-locator/jobs"
	"github.com/fenilmodi00/vehicle-locator/services"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	config.ConfigureLogging(cfg.LogLevel, cfg.LogFormat)
	unified := cfg.ToUnified()
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := unified.ToJSON(); err == nil {
			logrus.WithField("config", string(data)).Debug("Effective configuration")
		}
	}

	// Vehicle store: in-memory demo inventory or a SQL database
	var (
		store     database.VehicleStore
		syncStore database.SellerSyncStore
		queries   *shared.DatabaseMetrics
	)

	if unified.Database.Driver == "memory" {
		memory := database.NewMemoryVehicleStore()
		if err := database.SeedDemoInventory(context.Background(), memory); err != nil {
			logrus.Fatalf("Failed to seed demo inventory: %v", err)
		}
		store, syncStore = memory, memory
		logrus.Warn("DB_DRIVER=memory: serving the built-in demo inventory")
	} else {
		if err := database.ConnectWithConfig(cfg.DatabaseURL, &unified.Database); err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		// Run migrations
		if err := database.Migrate(database.SchemaPath(database.ActiveDialect)); err != nil {
			logrus.Warnf("Migration warning: %v", err)
		}
		if err := database.ValidateSchema(context.Background()); err != nil {
			logrus.Fatalf("Schema validation failed: %v", err)
		}
		if err := database.HealthCheck(context.Background()); err != nil {
			logrus.Fatalf("Database health check failed: %v", err)
		}

		sqlStore := database.NewSQLVehicleStore(database.DB, database.ActiveDialect, unified.Database.SlowQueryThreshold)
		store, syncStore, queries = sqlStore, sqlStore, sqlStore.Metrics()
	}

	// Geocoding chain: cache, Google provider, static fallback
	geocodeCache := services.NewGeocodeCacheWithConfig(unified.Geocode.CacheTTL, unified.Geocode.FallbackTTLFraction, time.Now)
	httpClients := shared.NewHTTPClientFactory(unified.Geocode.ProviderTimeout)
	defer httpClients.CleanupAllClients()
	provider := services.NewGoogleGeocodingProvider(unified.Geocode, httpClients)
	resolver := services.NewGeocodeResolver(unified.Geocode, geocodeCache, provider, services.NewFallbackTable())

	searchService := services.NewRadiusSearchService(store)
	syncService := services.NewCoordinateSyncService(syncStore)

	logrus.WithFields(logrus.Fields{
		"driver":           unified.Database.Driver,
		"provider_enabled": unified.Geocode.ProviderEnabled(),
		"cache_ttl":        unified.Geocode.CacheTTL,
		"batch_delay":      unified.Geocode.BatchDelay,
		"coalesce_lookups": unified.Geocode.CoalesceLookups,
		"sync_interval":    unified.Jobs.SyncInterval,
	}).Info("Vehicle locator services initialized")

	// Start Background Jobs
	syncJob := jobs.NewCoordinateSyncJob(syncService, unified.Jobs.SyncInterval)
	cleanupJob := jobs.NewGeocodeCacheCleanupJob(geocodeCache, unified.Jobs.CacheCleanupInterval)
	syncJob.Start()
	cleanupJob.Start()

	// Initialize handlers
	performanceHandler := handlers.NewPerformanceHandler(database.DB, map[string]handlers.MetricsSource{
		"geocode_provider": provider,
		"radius_search":    searchService,
		"coordinate_sync":  syncService,
	})
	performanceHandler.Queries = queries

	app := handlers.NewApp(handlers.Routes{
		Geocode:          handlers.NewGeocodeHandler(resolver),
		Vehicles:         handlers.NewVehicleHandler(searchService, resolver),
		Admin:            handlers.NewAdminHandler(syncJob),
		Performance:      performanceHandler,
		AdminToken:       cfg.AdminToken,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})
	if cfg.AdminToken == "" {
		logrus.Warn("ADMIN_TOKEN is not set, admin routes are unauthenticated")
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		logrus.Info("Shutting down server")

		syncJob.Stop()
		cleanupJob.Stop()

		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.Errorf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	logrus.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.Fatalf("Server failed to start: %v", err)
	}

	searchService.Metrics().LogSummary()
	syncService.Metrics().LogSummary()
	if queries != nil {
		queries.LogDatabaseSummary()
	}
}
