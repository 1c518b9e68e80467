package shared

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// Defaults shared by the configuration loader and the services
const (
	DefaultGeocodeProviderURL   = "https://maps.googleapis.com/maps/api/geocode/json"
	DefaultGeocodeCacheTTL      = 24 * time.Hour
	DefaultFallbackTTLFraction  = 0.2
	DefaultProviderTimeout      = 12 * time.Second
	DefaultBatchDelay           = 100 * time.Millisecond
	DefaultMaxBatchSize         = 50
	DefaultHealthCheckZIP       = "98498"
	DefaultSyncInterval         = 1 * time.Hour
	DefaultCacheCleanupInterval = 1 * time.Hour
)

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Geocode  GeocodeConfig  `json:"geocode"`
	Database DatabaseConfig `json:"database"`
	Jobs     JobsConfig     `json:"jobs"`
	Logging  LoggingConfig  `json:"logging"`
}

// GeocodeConfig holds ZIP resolution settings
type GeocodeConfig struct {
	ProviderURL         string        `json:"provider_url"`
	APIKey              string        `json:"-"`
	ProviderTimeout     time.Duration `json:"provider_timeout"`
	CacheTTL            time.Duration `json:"cache_ttl"`
	FallbackTTLFraction float64       `json:"fallback_ttl_fraction"`
	BatchDelay          time.Duration `json:"batch_delay"`
	MaxBatchSize        int           `json:"max_batch_size"`
	CoalesceLookups     bool          `json:"coalesce_lookups"`
	HealthCheckZIP      string        `json:"health_check_zip"`
}

// ProviderEnabled reports whether a provider credential is configured
func (g GeocodeConfig) ProviderEnabled() bool {
	return g.APIKey != ""
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver             string        `json:"driver"`
	MaxOpenConns       int           `json:"max_open_conns"`
	MaxIdleConns       int           `json:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `json:"conn_max_idle_time"`
	PingTimeout        time.Duration `json:"ping_timeout"`
	SlowQueryThreshold time.Duration `json:"slow_query_threshold"`
}

// JobsConfig holds background job schedules
type JobsConfig struct {
	SyncInterval         time.Duration `json:"sync_interval"`
	CacheCleanupInterval time.Duration `json:"cache_cleanup_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Geocode: GeocodeConfig{
			ProviderURL:         DefaultGeocodeProviderURL,
			ProviderTimeout:     DefaultProviderTimeout,
			CacheTTL:            DefaultGeocodeCacheTTL,
			FallbackTTLFraction: DefaultFallbackTTLFraction,
			BatchDelay:          DefaultBatchDelay,
			MaxBatchSize:        DefaultMaxBatchSize,
			HealthCheckZIP:      DefaultHealthCheckZIP,
		},
		Database: DatabaseConfig{
			Driver:             "postgres",
			MaxOpenConns:       25,
			MaxIdleConns:       5,
			ConnMaxLifetime:    5 * time.Minute,
			ConnMaxIdleTime:    5 * time.Minute,
			PingTimeout:        5 * time.Second,
			SlowQueryThreshold: 1 * time.Second,
		},
		Jobs: JobsConfig{
			SyncInterval:         DefaultSyncInterval,
			CacheCleanupInterval: DefaultCacheCleanupInterval,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "vehicle-locator",
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")

	if c.Geocode.ProviderURL == "" {
		c.Geocode.ProviderURL = DefaultGeocodeProviderURL
		logger.Debug("Applied default Geocode.ProviderURL")
	}

	if c.Geocode.ProviderTimeout <= 0 {
		c.Geocode.ProviderTimeout = DefaultProviderTimeout
		logger.Debug("Applied default Geocode.ProviderTimeout")
	}

	if c.Geocode.CacheTTL <= 0 {
		c.Geocode.CacheTTL = DefaultGeocodeCacheTTL
		logger.Debug("Applied default Geocode.CacheTTL")
	}

	if c.Geocode.FallbackTTLFraction <= 0 || c.Geocode.FallbackTTLFraction > 1 {
		c.Geocode.FallbackTTLFraction = DefaultFallbackTTLFraction
		logger.Debug("Applied default Geocode.FallbackTTLFraction")
	}

	// zero is a valid batch delay
	if c.Geocode.BatchDelay < 0 {
		c.Geocode.BatchDelay = DefaultBatchDelay
		logger.Debug("Applied default Geocode.BatchDelay")
	}

	if c.Geocode.MaxBatchSize <= 0 {
		c.Geocode.MaxBatchSize = DefaultMaxBatchSize
		logger.Debug("Applied default Geocode.MaxBatchSize")
	}

	if c.Geocode.HealthCheckZIP == "" {
		c.Geocode.HealthCheckZIP = DefaultHealthCheckZIP
		logger.Debug("Applied default Geocode.HealthCheckZIP")
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
		logger.Debug("Applied default Database.Driver")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 25
		logger.Debug("Applied default Database.MaxOpenConns")
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
		logger.Debug("Applied default Database.MaxIdleConns")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = 5 * time.Minute
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}

	if c.Database.ConnMaxIdleTime <= 0 {
		c.Database.ConnMaxIdleTime = 5 * time.Minute
		logger.Debug("Applied default Database.ConnMaxIdleTime")
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = 5 * time.Second
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Database.SlowQueryThreshold <= 0 {
		c.Database.SlowQueryThreshold = 1 * time.Second
		logger.Debug("Applied default Database.SlowQueryThreshold")
	}

	if c.Jobs.SyncInterval <= 0 {
		c.Jobs.SyncInterval = DefaultSyncInterval
		logger.Debug("Applied default Jobs.SyncInterval")
	}

	if c.Jobs.CacheCleanupInterval <= 0 {
		c.Jobs.CacheCleanupInterval = DefaultCacheCleanupInterval
		logger.Debug("Applied default Jobs.CacheCleanupInterval")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
		logger.Debug("Applied default Logging.Level")
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "json"
		logger.Debug("Applied default Logging.Format")
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = "vehicle-locator"
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// ToJSON serializes the configuration to JSON. The provider key is never included.
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
