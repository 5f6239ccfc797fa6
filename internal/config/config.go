// Package config provides configuration management for the application.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/amaumene/movieshelf/internal/constants"
	apperrors "github.com/amaumene/movieshelf/internal/errors"
)

const (
	// Default configuration file name
	defaultConfigFile = "config.json"
	// Default database path
	defaultDatabasePath = "./movieshelf.db"
	// Default devtools listen address, loopback only
	defaultDevtoolsAddr = "127.0.0.1:7070"
)

// Config holds the application configuration.
// It supports loading from a .env file, environment variables and a JSON file.
type Config struct {
	// Metadata API
	TMDBAPIKey       string        `json:"TMDB_API_KEY"`
	TMDBBaseURL      string        `json:"TMDB_BASE_URL"`
	TMDBImageBaseURL string        `json:"TMDB_IMAGE_BASE_URL"`
	RequestTimeout   time.Duration `json:"REQUEST_TIMEOUT"`
	RateLimit        int64         `json:"TMDB_RATE_LIMIT"`
	RateBurst        int64         `json:"TMDB_RATE_BURST"`

	// Storage settings
	StorageBackend string `json:"STORAGE_BACKEND"` // "bolt", "sqlite", "redis" or "postgres"
	DatabasePath   string `json:"DATABASE_PATH"`
	RedisAddr      string `json:"REDIS_ADDR"`
	RedisPassword  string `json:"REDIS_PASSWORD"`
	RedisDB        int    `json:"REDIS_DB"`
	PostgresDSN    string `json:"POSTGRES_DSN"`

	// Query cache
	CacheSize            int           `json:"CACHE_SIZE"`
	CacheCleanupInterval time.Duration `json:"CACHE_CLEANUP_INTERVAL"`

	// Devtools inspector; empty disables it
	DevtoolsAddr string `json:"DEVTOOLS_ADDR"`

	// System colour scheme fallback for the theme store
	ColorScheme string `json:"COLOR_SCHEME"`

	LogLevel string `json:"LOG_LEVEL"`
}

// Load reads configuration from .env, an optional JSON file and environment variables.
// Environment variables take precedence over file values.
// Returns an error if the configuration is invalid.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		DevtoolsAddr: defaultDevtoolsAddr,
	}

	// Load from config file if exists
	configFile := getEnvOrDefault("CONFIG_FILE", defaultConfigFile)
	if err := cfg.loadFromFile(configFile); err != nil {
		// Ignore file not found errors
		if !os.IsNotExist(err) {
			return nil, apperrors.NewConfigurationError("failed to load config file", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() error {
	setString(&c.TMDBAPIKey, "TMDB_API_KEY")
	setString(&c.TMDBBaseURL, "TMDB_BASE_URL")
	setString(&c.TMDBImageBaseURL, "TMDB_IMAGE_BASE_URL")
	setString(&c.StorageBackend, "STORAGE_BACKEND")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setString(&c.PostgresDSN, "POSTGRES_DSN")
	setString(&c.ColorScheme, "COLOR_SCHEME")
	setString(&c.LogLevel, "LOG_LEVEL")

	// DEVTOOLS_ADDR may be set to an empty string on purpose
	if v, ok := os.LookupEnv("DEVTOOLS_ADDR"); ok {
		c.DevtoolsAddr = v
	}

	if err := setDuration(&c.RequestTimeout, "REQUEST_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.CacheCleanupInterval, "CACHE_CLEANUP_INTERVAL"); err != nil {
		return err
	}
	if err := setInt(&c.CacheSize, "CACHE_SIZE"); err != nil {
		return err
	}
	if err := setInt(&c.RedisDB, "REDIS_DB"); err != nil {
		return err
	}

	var rateLimit, rateBurst int
	if err := setInt(&rateLimit, "TMDB_RATE_LIMIT"); err != nil {
		return err
	}
	if err := setInt(&rateBurst, "TMDB_RATE_BURST"); err != nil {
		return err
	}
	if rateLimit > 0 {
		c.RateLimit = int64(rateLimit)
	}
	if rateBurst > 0 {
		c.RateBurst = int64(rateBurst)
	}

	return nil
}

// loadFromFile loads configuration from a JSON file.
func (c *Config) loadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, c)
}

// Validate checks if the configuration is valid.
// Sets default values for missing optional fields.
func (c *Config) Validate() error {
	// TMDB_API_KEY may be empty; requests will then fail with a configuration error

	if c.TMDBBaseURL == "" {
		c.TMDBBaseURL = constants.DefaultTMDBBaseURL
	}
	c.TMDBBaseURL = strings.TrimRight(c.TMDBBaseURL, "/")

	if c.TMDBImageBaseURL == "" {
		c.TMDBImageBaseURL = constants.DefaultTMDBImageBaseURL
	}
	c.TMDBImageBaseURL = strings.TrimRight(c.TMDBImageBaseURL, "/")

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = constants.RequestTimeout
	}
	// RateLimit 0 disables client-side pacing
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	if c.RateBurst <= 0 {
		c.RateBurst = constants.TMDBRateBurst
	}

	c.StorageBackend = strings.ToLower(c.StorageBackend)
	switch c.StorageBackend {
	case "":
		c.StorageBackend = constants.StorageBackendBolt
	case constants.StorageBackendBolt, constants.StorageBackendSQLite:
	case constants.StorageBackendRedis:
		if c.RedisAddr == "" {
			return apperrors.NewConfigurationError("REDIS_ADDR is required for the redis storage backend", nil)
		}
	case constants.StorageBackendPostgres:
		if c.PostgresDSN == "" {
			return apperrors.NewConfigurationError("POSTGRES_DSN is required for the postgres storage backend", nil)
		}
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("unknown storage backend %q", c.StorageBackend), nil)
	}

	if c.DatabasePath == "" {
		c.DatabasePath = defaultDatabasePath
	}
	if c.CacheSize <= 0 {
		c.CacheSize = constants.DefaultCacheSize
	}
	if c.CacheCleanupInterval <= 0 {
		c.CacheCleanupInterval = constants.CacheCleanupInterval
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return apperrors.NewConfigurationError(fmt.Sprintf("%s must be an integer", key), err)
	}
	*dst = n
	return nil
}

// setDuration accepts Go duration strings ("30s") or bare seconds ("30").
func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return apperrors.NewConfigurationError(fmt.Sprintf("%s must be a duration", key), err)
	}
	*dst = d
	return nil
}
