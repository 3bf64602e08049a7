// Package daemon manages the chompy daemon lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/chompy-labs/chompy/internal/domain"
	"github.com/chompy-labs/chompy/internal/logger"
)

// Config holds all daemon configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Storage    StorageConfig    `toml:"storage"`
	Engagement EngagementConfig `toml:"engagement"`
	Sessions   SessionsConfig   `toml:"sessions"`
	Logging    LoggingConfig    `toml:"logging"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig controls the state database and its document cache.
type StorageConfig struct {
	Dir       string `toml:"dir"`
	CacheSize int    `toml:"cache_size"`
	CacheTTL  string `toml:"cache_ttl"`
}

// EngagementConfig controls calendar and notification behavior.
type EngagementConfig struct {
	// Timezone is an IANA name. Day boundaries for streaks and the
	// notification cap are computed in this zone.
	Timezone            string `toml:"timezone"`
	NotificationsPerDay int    `toml:"notifications_per_day"`
}

// SessionsConfig controls the in-memory user session cache.
type SessionsConfig struct {
	Size int    `toml:"size"`
	TTL  string `toml:"ttl"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level       string `toml:"level"`
	Format      string `toml:"format"`
	Environment string `toml:"environment"`
	AddSource   bool   `toml:"add_source"`
}

// TelemetryConfig controls metrics and health checks.
type TelemetryConfig struct {
	Prometheus     bool   `toml:"prometheus"`
	HealthInterval string `toml:"health_interval"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8420,
		},
		Storage: StorageConfig{
			Dir:       chompyHome(),
			CacheSize: 1024,
			CacheTTL:  "5m",
		},
		Engagement: EngagementConfig{
			Timezone:            "Local",
			NotificationsPerDay: domain.DefaultNotificationPolicy().MaxPerDay,
		},
		Sessions: SessionsConfig{
			Size: 256,
			TTL:  "30m",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			Environment: "dev",
		},
		Telemetry: TelemetryConfig{
			Prometheus:     true,
			HealthInterval: "60s",
		},
	}
}

// LoadConfig reads config from ~/.chompy/config.toml, falling back to defaults.
// A .env file in the working directory or the chompy home is loaded first
// so CHOMPY_* variables may come from either.
func LoadConfig() (Config, error) {
	loadDotEnv()
	return LoadConfigFile(filepath.Join(chompyHome(), "config.toml"))
}

// LoadConfigFile reads config from path. A missing file yields defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.chompy/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(chompyHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// Validate checks values that cannot be defaulted silently.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("engagement.timezone: %w", err)
	}
	if c.Engagement.NotificationsPerDay < 0 {
		return fmt.Errorf("engagement.notifications_per_day must not be negative")
	}
	return nil
}

// Location resolves the engagement timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Engagement.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Engagement.Timezone)
}

// LoggerConfig maps the [logging] section onto the logger package.
func (c Config) LoggerConfig(version string) logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Environment = c.Logging.Environment
	lc.AddSource = c.Logging.AddSource
	lc.Version = version
	return lc
}

func loadDotEnv() {
	for _, p := range []string{".env", filepath.Join(chompyHome(), ".env")} {
		// Missing files are fine; godotenv never overrides variables already set.
		_ = godotenv.Load(p)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CHOMPY_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("CHOMPY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CHOMPY_TIMEZONE"); v != "" {
		cfg.Engagement.Timezone = v
	}
}

// chompyHome returns the chompy data directory.
func chompyHome() string {
	if env := os.Getenv("CHOMPY_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chompy")
}

// ChompyHome is exported for use by other packages.
func ChompyHome() string {
	return chompyHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
