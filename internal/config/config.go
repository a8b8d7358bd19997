// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// ErrNoAPIKey is returned when no provider API key is resolvable from any
// of the supported environment variables.
var ErrNoAPIKey = errors.New("config: missing API key (set GEMINI_API_KEY / GOOGLE_GENAI_API_KEY / _GEMINI_API_KEY)")

// APIKeySources lists the environment variable names a provider credential is
// resolved from, in priority order. The first non-empty value wins.
var APIKeySources = []string{"GEMINI_API_KEY", "GOOGLE_GENAI_API_KEY", "_GEMINI_API_KEY"}

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Provider credential sources, checked in order. See ResolveAPIKey.
	GeminiAPIKey      string `env:"GEMINI_API_KEY" json:"-"`
	GoogleGenAIAPIKey string `env:"GOOGLE_GENAI_API_KEY" json:"-"`
	FallbackGeminiKey string `env:"_GEMINI_API_KEY" json:"-"`

	// Provider settings
	ProviderBaseURL string `env:"VEO_BASE_URL, default=https://generativelanguage.googleapis.com/v1beta" json:"provider_base_url"`
	DefaultModel    string `env:"VEO_DEFAULT_MODEL, default=veo-3.0-fast-generate-001" json:"default_model"`
	MinDurationSec  int    `env:"MIN_DURATION, default=4" json:"min_duration_sec"`
	MaxDurationSec  int    `env:"MAX_DURATION, default=8" json:"max_duration_sec"`

	// Polling policy defaults (overridable per request)
	PollTimeoutMs     int `env:"POLL_TIMEOUT_MS, default=600000" json:"poll_timeout_ms"`
	PollMinIntervalMs int `env:"POLL_MIN_INTERVAL_MS, default=2000" json:"poll_min_interval_ms"`
	PollMaxIntervalMs int `env:"POLL_MAX_INTERVAL_MS, default=15000" json:"poll_max_interval_ms"`

	// Auth settings
	GoogleClientID string `env:"GOOGLE_CLIENT_ID" json:"google_client_id,omitempty"`

	// Quota settings
	DailyLimit    int    `env:"DAILY_LIMIT, default=3" json:"daily_limit"`
	RedisAddr     string `env:"REDIS_ADDR" json:"redis_addr,omitempty"`
	RedisUsername string `env:"REDIS_USERNAME" json:"-"`
	RedisPassword string `env:"REDIS_PASSWORD" json:"-"`
	RedisUseTLS   bool   `env:"REDIS_USE_TLS, default=false" json:"redis_use_tls"`
	RedisDB       int    `env:"REDIS_DB, default=0" json:"redis_db"`

	// Archive settings
	ArchiveDir         string `env:"ARCHIVE_DIR, default=/tmp/veo-gateway" json:"archive_dir"`
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// ResolveAPIKey returns the provider credential from the first non-empty
// configured source. It returns ErrNoAPIKey when none is set.
func (c *Config) ResolveAPIKey() (string, error) {
	for _, key := range []string{c.GeminiAPIKey, c.GoogleGenAIAPIKey, c.FallbackGeminiKey} {
		if key != "" {
			return key, nil
		}
	}
	return "", ErrNoAPIKey
}

// APIKeysFound returns the names of the credential sources that are set.
// Used by the health endpoint; names only, never values.
func (c *Config) APIKeysFound() []string {
	found := make([]string, 0, len(APIKeySources))
	values := []string{c.GeminiAPIKey, c.GoogleGenAIAPIKey, c.FallbackGeminiKey}
	for i, name := range APIKeySources {
		if values[i] != "" {
			found = append(found, name)
		}
	}
	return found
}

// RedisEnabled returns true if a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// S3Enabled returns true if S3 archive configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DefaultModel: %s, Duration: %d-%ds, DailyLimit: %d, RedisAddr: %s, ArchiveDir: %s, S3Bucket: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DefaultModel,
		c.MinDurationSec,
		c.MaxDurationSec,
		c.DailyLimit,
		c.RedisAddr,
		c.ArchiveDir,
		c.S3Bucket,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
