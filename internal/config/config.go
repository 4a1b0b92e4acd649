package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"insightforge/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Ops      OpsConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Analysis AnalysisConfig
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port         string
	GinMode      string
	ReadTimeout  time.Duration
	MaxUploadMB  int64
	ShutdownWait time.Duration
}

// OpsConfig holds the metrics and pprof listener settings
type OpsConfig struct {
	Port        string
	Enabled     bool
	CORSOrigins []string
}

// DatabaseConfig holds database connection settings. An empty URL disables
// persistence.
type DatabaseConfig struct {
	URL    string
	Driver string
}

// Enabled reports whether snapshots should be stored
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// CacheConfig selects the result cache. An empty RedisAddr selects the
// in-process cache.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	// PurgeSchedule is the cron spec for sweeping the in-process cache
	PurgeSchedule string
}

// AnalysisConfig holds engine defaults. The CLI fills it through viper, so
// the mapstructure names are also the config file keys.
type AnalysisConfig struct {
	CorrelationThreshold float64 `mapstructure:"correlation_threshold" yaml:"correlation_threshold"`
	CorrelationMethod    string  `mapstructure:"correlation_method" yaml:"correlation_method"`
	TypeSampleSize       int     `mapstructure:"type_sample_size" yaml:"type_sample_size"`
	MaxAnomalies         int     `mapstructure:"max_anomalies" yaml:"max_anomalies"`
	ForecastHorizon      int     `mapstructure:"forecast_horizon" yaml:"forecast_horizon"`
	OffloadRowThreshold  int     `mapstructure:"offload_row_threshold" yaml:"offload_row_threshold"`
	Workers              int     `mapstructure:"workers" yaml:"workers"`
	Dispersion           string  `mapstructure:"dispersion" yaml:"dispersion"`
}

// DefaultAnalysisConfig returns the engine defaults
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		CorrelationThreshold: 0.1,
		CorrelationMethod:    "pearson",
		TypeSampleSize:       500,
		MaxAnomalies:         3,
		ForecastHorizon:      6,
		OffloadRowThreshold:  10000,
		Workers:              4,
		Dispersion:           "population",
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   *loadServerConfig(),
		Ops:      *loadOpsConfig(),
		Database: *loadDatabaseConfig(),
		Cache:    *loadCacheConfig(),
		Analysis: *loadAnalysisConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:         getEnvOrDefault("PORT", "8080"),
		GinMode:      getEnvOrDefault("GIN_MODE", "release"),
		ReadTimeout:  getEnvDurationOrDefault("READ_TIMEOUT", 30*time.Second),
		MaxUploadMB:  int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 32)),
		ShutdownWait: getEnvDurationOrDefault("SHUTDOWN_WAIT", 10*time.Second),
	}
}

func loadOpsConfig() *OpsConfig {
	return &OpsConfig{
		Port:        getEnvOrDefault("OPS_PORT", "6060"),
		Enabled:     getEnvBoolOrDefault("OPS_ENABLED", true),
		CORSOrigins: getEnvListOrDefault("OPS_CORS_ORIGINS", nil),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:    os.Getenv("DATABASE_URL"),
		Driver: getEnvOrDefault("DATABASE_DRIVER", "postgres"),
	}
}

func loadCacheConfig() *CacheConfig {
	return &CacheConfig{
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		TTL:           getEnvDurationOrDefault("CACHE_TTL", time.Hour),
		PurgeSchedule: getEnvOrDefault("CACHE_PURGE_SCHEDULE", "@every 5m"),
	}
}

func loadAnalysisConfig() *AnalysisConfig {
	d := DefaultAnalysisConfig()
	return &AnalysisConfig{
		CorrelationThreshold: getEnvFloatOrDefault("CORRELATION_THRESHOLD", d.CorrelationThreshold),
		CorrelationMethod:    strings.ToLower(getEnvOrDefault("CORRELATION_METHOD", d.CorrelationMethod)),
		TypeSampleSize:       getEnvIntOrDefault("TYPE_SAMPLE_SIZE", d.TypeSampleSize),
		MaxAnomalies:         getEnvIntOrDefault("MAX_ANOMALIES", d.MaxAnomalies),
		ForecastHorizon:      getEnvIntOrDefault("FORECAST_HORIZON", d.ForecastHorizon),
		OffloadRowThreshold:  getEnvIntOrDefault("OFFLOAD_ROW_THRESHOLD", d.OffloadRowThreshold),
		Workers:              getEnvIntOrDefault("ANALYSIS_WORKERS", d.Workers),
		Dispersion:           strings.ToLower(getEnvOrDefault("DISPERSION", d.Dispersion)),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return errors.ConfigInvalid("DATABASE_DRIVER must be postgres or sqlite3")
	}
	return config.Analysis.Validate()
}

// Validate checks the engine settings
func (a AnalysisConfig) Validate() error {
	if a.CorrelationThreshold < 0 || a.CorrelationThreshold >= 1 {
		return errors.ConfigInvalid("correlation threshold must be in [0, 1)")
	}
	switch a.CorrelationMethod {
	case "pearson", "spearman", "kendall":
	default:
		return errors.ConfigInvalid("correlation method must be pearson, spearman or kendall")
	}
	switch a.Dispersion {
	case "population", "sample":
	default:
		return errors.ConfigInvalid("dispersion must be population or sample")
	}
	if a.TypeSampleSize <= 0 {
		return errors.ConfigInvalid("type sample size must be positive")
	}
	if a.ForecastHorizon <= 0 {
		return errors.ConfigInvalid("forecast horizon must be positive")
	}
	if a.Workers <= 0 {
		return errors.ConfigInvalid("workers must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
