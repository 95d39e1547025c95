package exdock

import (
	"time"
)

// Config consolidates settings for the catalog core.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Cache    CacheConfig    `json:"cache"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// DatabaseConfig contains datastore connection settings.
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode"`
	MaxConnections  int           `json:"maxConnections"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime"`
	Timeout         time.Duration `json:"timeout"`
}

// CacheConfig contains cache-flag and cache-service settings. When RedisAddr
// is empty the in-process flag set is used; otherwise flags live in Redis so
// that multiple processes share the same invalidation state.
type CacheConfig struct {
	Enabled   bool          `json:"enabled"`
	RedisAddr string        `json:"redisAddr,omitempty"`
	RedisDB   int           `json:"redisDb,omitempty"`
	KeyPrefix string        `json:"keyPrefix"`
	Timeout   time.Duration `json:"timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level              string `json:"level"`
	Format             string `json:"format"`
	EnableQueryLogging bool   `json:"enableQueryLogging"`
}

// MetricsConfig contains metrics collection settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

// DefaultConfig returns a default configuration. The pool size of 16 matches
// the sizing the storefront was tuned for.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "ex-dock",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  16,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			KeyPrefix: "exdock:cacheflag",
			Timeout:   5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "exdock",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}
	if c.Database.Timeout <= 0 {
		return &ConfigError{Field: "database.timeout", Message: "must be greater than 0"}
	}
	if c.Cache.Enabled && c.Cache.KeyPrefix == "" {
		return &ConfigError{Field: "cache.keyPrefix", Message: "must not be empty when cache is enabled"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
