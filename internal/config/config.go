package config

import (
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Version     string `envconfig:"VERSION" default:"dev"`
	BcryptCost  int    `envconfig:"BCRYPT_COST" default:"12"`

	// DefaultTierSlug is the tier for organizations without an override.
	// Empty means such organizations fail to resolve.
	DefaultTierSlug string `envconfig:"DEFAULT_TIER_SLUG" default:""`

	// RedisURL enables entitlement change events when set.
	RedisURL        string `envconfig:"REDIS_URL" default:""`
	EventsChannel   string `envconfig:"EVENTS_CHANNEL" default:"rentdesk:entitlements"`
	SweeperSchedule string `envconfig:"SWEEPER_SCHEDULE" default:"@every 1h"`
	MigrateOnStart  bool   `envconfig:"MIGRATE_ON_START" default:"true"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
