// Package config defines the application configuration surface and its
// defaults, loaded through viper from config file, environment, and flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/warungkas/warungkas/internal/common"
)

// Config carries every tunable with its default.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Debounce  DebounceConfig  `mapstructure:"debounce"`
	Intent    IntentConfig    `mapstructure:"intent"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// RedisConfig configures the shared expiring store. An empty Addr selects the
// in-process store (single-node mode).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig configures the SQLite persistence layer.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SessionConfig configures session and recovery lifetimes.
type SessionConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	PartialTTL    time.Duration `mapstructure:"partial_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitConfig configures the fixed-window limiter.
type RateLimitConfig struct {
	Window       time.Duration `mapstructure:"window"`
	MaxPerWindow int           `mapstructure:"max_per_window"`
}

// DebounceConfig configures the duplicate-click guard.
type DebounceConfig struct {
	Window time.Duration `mapstructure:"window"`
}

// IntentConfig configures the command classifier.
type IntentConfig struct {
	MaxDistance          float64 `mapstructure:"max_distance"`
	MinFragmentLen       int     `mapstructure:"min_fragment_len"`
	AutoExecuteThreshold float64 `mapstructure:"auto_execute_threshold"`
	SuggestionFloor      float64 `mapstructure:"suggestion_floor"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", defaultDatabasePath())
	v.SetDefault("session.timeout", 10*time.Minute)
	v.SetDefault("session.partial_ttl", time.Hour)
	v.SetDefault("session.sweep_interval", 5*time.Minute)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.max_per_window", 15)
	v.SetDefault("debounce.window", 3*time.Second)
	v.SetDefault("intent.max_distance", 0.4)
	v.SetDefault("intent.min_fragment_len", 2)
	v.SetDefault("intent.auto_execute_threshold", 0.7)
	v.SetDefault("intent.suggestion_floor", 0.3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load unmarshals the effective configuration.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// Validate checks the fields serving has no sane default for.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: telegram.token is required", common.ErrMissingConfig)
	}
	return nil
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "warungkas.db"
	}
	return filepath.Join(home, ".local", "share", "warungkas", "warungkas.db")
}
