package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort  string
	DBDriver    string
	DatabaseURL string
	AdminToken  string
	LogLevel    string
	LogFormat   string

	GoogleMapsAPIKey         string
	GeocodeCacheTTLHours     string
	GeocodeProviderTimeout   string
	GeocodeBatchDelayMs      string
	GeocodeCoalesceLookups   string
	SyncIntervalMinutes      string
	CacheCleanupIntervalMins string
	CORSAllowOrigins         string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		GoogleMapsAPIKey:         getEnv("GOOGLE_MAPS_API_KEY", ""),
		GeocodeCacheTTLHours:     getEnv("GEOCODE_CACHE_TTL_HOURS", "24"),
		GeocodeProviderTimeout:   getEnv("GEOCODE_PROVIDER_TIMEOUT_SECONDS", "12"),
		GeocodeBatchDelayMs:      getEnv("GEOCODE_BATCH_DELAY_MS", "100"),
		GeocodeCoalesceLookups:   getEnv("GEOCODE_COALESCE_LOOKUPS", "false"),
		SyncIntervalMinutes:      getEnv("SYNC_INTERVAL_MINUTES", "60"),
		CacheCleanupIntervalMins: getEnv("CACHE_CLEANUP_INTERVAL_MINUTES", "60"),
		CORSAllowOrigins:         getEnv("CORS_ALLOW_ORIGINS", "*"),
	}
}

// GetCacheTTL returns the geocode cache TTL from environment or default
func (c *Config) GetCacheTTL() time.Duration {
	return parseDuration("GEOCODE_CACHE_TTL_HOURS", c.GeocodeCacheTTLHours, time.Hour, shared.DefaultGeocodeCacheTTL)
}

// GetProviderTimeout returns the geocoding provider timeout
func (c *Config) GetProviderTimeout() time.Duration {
	return parseDuration("GEOCODE_PROVIDER_TIMEOUT_SECONDS", c.GeocodeProviderTimeout, time.Second, shared.DefaultProviderTimeout)
}

// GetBatchDelay returns the pause after each provider-sourced batch item
func (c *Config) GetBatchDelay() time.Duration {
	if strings.TrimSpace(c.GeocodeBatchDelayMs) == "0" {
		return 0
	}
	return parseDuration("GEOCODE_BATCH_DELAY_MS", c.GeocodeBatchDelayMs, time.Millisecond, shared.DefaultBatchDelay)
}

// GetSyncInterval returns the coordinate sync schedule
func (c *Config) GetSyncInterval() time.Duration {
	return parseDuration("SYNC_INTERVAL_MINUTES", c.SyncIntervalMinutes, time.Minute, shared.DefaultSyncInterval)
}

// GetCacheCleanupInterval returns the geocode cache purge schedule
func (c *Config) GetCacheCleanupInterval() time.Duration {
	return parseDuration("CACHE_CLEANUP_INTERVAL_MINUTES", c.CacheCleanupIntervalMins, time.Minute, shared.DefaultCacheCleanupInterval)
}

// CoalesceLookups reports whether concurrent provider lookups for one ZIP share a call
func (c *Config) CoalesceLookups() bool {
	enabled, err := strconv.ParseBool(c.GeocodeCoalesceLookups)
	if err != nil {
		return false
	}
	return enabled
}

// ToUnified builds the typed configuration consumed by the services
func (c *Config) ToUnified() *shared.UnifiedConfiguration {
	unified := shared.NewDefaultUnifiedConfiguration()

	unified.Geocode.APIKey = c.GoogleMapsAPIKey
	unified.Geocode.CacheTTL = c.GetCacheTTL()
	unified.Geocode.ProviderTimeout = c.GetProviderTimeout()
	unified.Geocode.BatchDelay = c.GetBatchDelay()
	unified.Geocode.CoalesceLookups = c.CoalesceLookups()

	unified.Database.Driver = strings.ToLower(c.DBDriver)

	unified.Jobs.SyncInterval = c.GetSyncInterval()
	unified.Jobs.CacheCleanupInterval = c.GetCacheCleanupInterval()

	unified.Logging.Level = c.LogLevel
	unified.Logging.Format = c.LogFormat

	unified.ValidateAndApplyDefaults()
	return unified
}

// ConfigureLogging sets the global logrus level and formatter
func ConfigureLogging(level, format string) {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL value: %s, using info", level)
		parsedLevel = logrus.InfoLevel
	}
	logrus.SetLevel(parsedLevel)

	if strings.EqualFold(format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
}

func parseDuration(key, raw string, unit time.Duration, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		logrus.Warnf("Invalid %s value: %s, using default %v", key, raw, fallback)
		return fallback
	}

	return time.Duration(value) * unit
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
