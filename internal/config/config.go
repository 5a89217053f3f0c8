// Package config defines the fsbroker configuration surface. Values are
// loaded through viper from an optional fsbroker.yaml, environment variables
// (FSBROKER_*), and compiled-in defaults. The resulting Config is an
// immutable value object handed to the file-access manager at construction.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete fsbroker configuration.
type Config struct {
	Lock        LockConfig        `mapstructure:"lock"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Watch       WatchConfig       `mapstructure:"watch"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// LockConfig controls lock acquisition behavior.
type LockConfig struct {
	// MaxTimeoutMs bounds how long a lock acquisition may wait (default: 5000)
	MaxTimeoutMs int `mapstructure:"max_timeout_ms"`
}

// RetryConfig controls the generic retry wrapper and lock backoff.
type RetryConfig struct {
	// BaseDelayMs is the base for exponential backoff (default: 1000)
	BaseDelayMs int `mapstructure:"base_delay_ms"`
	// MaxRetries caps retry attempts for transient errors (default: 3)
	MaxRetries int `mapstructure:"max_retries"`
	// MaxDelayMs caps a single backoff sleep (default: 10000)
	MaxDelayMs int `mapstructure:"max_delay_ms"`
}

// CacheConfig controls the in-memory content cache.
type CacheConfig struct {
	// MaxEntries is the eviction threshold (default: 1000)
	MaxEntries int `mapstructure:"max_entries"`
	// TTLMs is the cache entry lifetime in milliseconds (default: 30000)
	TTLMs int `mapstructure:"ttl_ms"`
}

// WatchConfig controls file-change watching.
type WatchConfig struct {
	// DebounceMs is the coalescing window for change callbacks (default: 100)
	DebounceMs int `mapstructure:"debounce_ms"`
}

// MaintenanceConfig controls the periodic maintenance task.
type MaintenanceConfig struct {
	// IntervalMs is the sweep cadence in milliseconds (default: 60000)
	IntervalMs int `mapstructure:"interval_ms"`
	// BackupRetentionHours is how long timestamped backups are kept (default: 168)
	BackupRetentionHours int `mapstructure:"backup_retention_hours"`
}

// LoggingConfig controls structured logging behavior.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for the log file; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// MaxLockTimeout returns the lock wait bound as a duration.
func (c *LockConfig) MaxLockTimeout() time.Duration {
	return time.Duration(c.MaxTimeoutMs) * time.Millisecond
}

// BaseDelay returns the backoff base as a duration.
func (c *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// MaxDelay returns the backoff cap as a duration.
func (c *RetryConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

// TTL returns the cache entry lifetime as a duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMs) * time.Millisecond
}

// Debounce returns the coalescing window as a duration.
func (c *WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Interval returns the maintenance cadence as a duration.
func (c *MaintenanceConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// BackupRetention returns the backup pruning age as a duration.
func (c *MaintenanceConfig) BackupRetention() time.Duration {
	return time.Duration(c.BackupRetentionHours) * time.Hour
}

// Default returns a Config with the documented default values.
func Default() *Config {
	return &Config{
		Lock: LockConfig{
			MaxTimeoutMs: 5000,
		},
		Retry: RetryConfig{
			BaseDelayMs: 1000,
			MaxRetries:  3,
			MaxDelayMs:  10000,
		},
		Cache: CacheConfig{
			MaxEntries: 1000,
			TTLMs:      30000,
		},
		Watch: WatchConfig{
			DebounceMs: 100,
		},
		Maintenance: MaintenanceConfig{
			IntervalMs:           60000,
			BackupRetentionHours: 168, // one week
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// SetDefaults registers default values with viper so they are available
// even when no config file exists.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("lock.max_timeout_ms", defaults.Lock.MaxTimeoutMs)

	viper.SetDefault("retry.base_delay_ms", defaults.Retry.BaseDelayMs)
	viper.SetDefault("retry.max_retries", defaults.Retry.MaxRetries)
	viper.SetDefault("retry.max_delay_ms", defaults.Retry.MaxDelayMs)

	viper.SetDefault("cache.max_entries", defaults.Cache.MaxEntries)
	viper.SetDefault("cache.ttl_ms", defaults.Cache.TTLMs)

	viper.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)

	viper.SetDefault("maintenance.interval_ms", defaults.Maintenance.IntervalMs)
	viper.SetDefault("maintenance.backup_retention_hours", defaults.Maintenance.BackupRetentionHours)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fsbroker")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fsbroker"
	}
	return filepath.Join(home, ".config", "fsbroker")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "fsbroker.yaml")
}
