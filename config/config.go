// Package config provides configuration management for the relay.
// Configuration is read once at startup from the environment (with optional
// .env autoload) and passed down explicitly; nothing re-reads the environment
// per request.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default values applied when the corresponding environment variable is unset.
const (
	DefaultPort            = "8080"
	DefaultDocumentTTL     = 10 * time.Minute
	DefaultSegmentTTL      = 30 * time.Minute
	DefaultClassifyTimeout = 800 * time.Millisecond
	DefaultOriginTimeout   = 30 * time.Second
	DefaultMetricsEndpoint = "/metrics"
	DefaultBodySizeLimit   = "10M"
	DefaultLocalCacheSize  = 4096
)

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	Origin     OriginConfig
	Classifier ClassifierConfig
	Metrics    MetricsConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          string
	BodySizeLimit string
	// AllowedOrigin is the value written to Access-Control-Allow-Origin on
	// relayed responses, overriding whatever the origin sent.
	AllowedOrigin string
}

// CacheConfig holds the two cache namespaces' configuration.
type CacheConfig struct {
	// RedisURL selects the redis backend when set; otherwise an in-process
	// expirable LRU is used (single-instance deployments, tests).
	RedisURL string

	// DocumentTTL bounds how long a fetched document may be served without
	// revalidation succeeding against the origin.
	DocumentTTL time.Duration

	// SegmentTTL bounds how long classification results are reused.
	SegmentTTL time.Duration

	// LocalSize caps entries per namespace for the in-process backend.
	LocalSize int
}

// OriginConfig holds origin fetch configuration.
type OriginConfig struct {
	// Timeout bounds the whole origin fetch, revalidation included.
	Timeout time.Duration
}

// ClassifierConfig holds classification service configuration.
type ClassifierConfig struct {
	URL   string
	Token string

	// Timeout is the classification call's own budget, independent of the
	// inbound request deadline. Classification is best-effort enrichment;
	// a short budget keeps it off the critical path.
	Timeout time.Duration
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	// Format is "json" (default) or "pretty".
	Format string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", DefaultPort),
			BodySizeLimit: getEnv("BODY_SIZE_LIMIT", DefaultBodySizeLimit),
			AllowedOrigin: getEnv("RELAY_ALLOWED_ORIGIN", "*"),
		},
		Cache: CacheConfig{
			RedisURL:    os.Getenv("REDIS_URL"),
			DocumentTTL: getEnvDuration("RELAY_DOC_TTL", DefaultDocumentTTL),
			SegmentTTL:  getEnvDuration("RELAY_SEG_TTL", DefaultSegmentTTL),
			LocalSize:   getEnvInt("RELAY_LOCAL_CACHE_SIZE", DefaultLocalCacheSize),
		},
		Origin: OriginConfig{
			Timeout: getEnvDuration("RELAY_ORIGIN_TIMEOUT", DefaultOriginTimeout),
		},
		Classifier: ClassifierConfig{
			URL:     os.Getenv("CLASSIFIER_URL"),
			Token:   os.Getenv("CLASSIFIER_TOKEN"),
			Timeout: getEnvDuration("CLASSIFIER_TIMEOUT", DefaultClassifyTimeout),
		},
		Metrics: MetricsConfig{
			Enabled:  getEnvBool("METRICS_ENABLED", false),
			Endpoint: getEnv("METRICS_ENDPOINT", DefaultMetricsEndpoint),
		},
		Logging: LoggingConfig{
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Cache.DocumentTTL <= 0 {
		return fmt.Errorf("RELAY_DOC_TTL must be positive, got %s", c.Cache.DocumentTTL)
	}
	if c.Cache.SegmentTTL <= 0 {
		return fmt.Errorf("RELAY_SEG_TTL must be positive, got %s", c.Cache.SegmentTTL)
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be positive, got %s", c.Classifier.Timeout)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvDuration reads a duration from an environment variable, returning the
// default if not set or invalid. Accepts plain integers (interpreted as
// seconds) or Go duration strings (e.g., "750ms", "10m").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return defaultVal
}
