// Package config loads teamboard settings.
//
// Settings are layered: built-in defaults, then the config file
// (.teamboard/config.yaml unless another path is given; YAML, TOML or JSON
// by extension), then TB_* environment variables, then any flags bound to
// the returned viper instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/teamboard/teamboard/internal/sync"
)

// DefaultDir is the per-project settings directory.
const DefaultDir = ".teamboard"

// DefaultPath is the config file read when no path is given.
var DefaultPath = filepath.Join(DefaultDir, "config.yaml")

// Config is the full teamboard configuration.
type Config struct {
	User      string          `mapstructure:"user"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Log       LogConfig       `mapstructure:"log"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// RemoteConfig selects the authoritative board store.
type RemoteConfig struct {
	// URL is memory:// for an in-process store, or a libSQL DSN
	// (libsql://..., file:...).
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig locates the local SQLite cache.
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig controls retries and the daemon's pass interval.
type SyncConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	Backoff       time.Duration `mapstructure:"backoff"`
	BackoffPolicy string        `mapstructure:"backoff_policy"`
	MaxBackoff    time.Duration `mapstructure:"max_backoff"`
	Interval      time.Duration `mapstructure:"interval"`
	SeedSamples   bool          `mapstructure:"seed_samples"`
}

// LogConfig controls component log output and rotation.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Quiet      bool   `mapstructure:"quiet"`
}

// DashboardConfig configures the WebSocket dashboard.
type DashboardConfig struct {
	Port int `mapstructure:"port"`
}

// MemoryURL selects the in-process remote store.
const MemoryURL = "memory://"

func setDefaults(v *viper.Viper) {
	v.SetDefault("user", "")

	v.SetDefault("remote.url", MemoryURL)
	v.SetDefault("remote.auth_token", "")

	v.SetDefault("cache.path", filepath.Join(DefaultDir, "cache.db"))

	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.backoff", 500*time.Millisecond)
	v.SetDefault("sync.backoff_policy", sync.PolicyExponential)
	v.SetDefault("sync.max_backoff", 10*time.Second)
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.seed_samples", false)

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.quiet", false)

	v.SetDefault("dashboard.port", 8080)
}

// New returns a viper instance with defaults and environment binding set
// up. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path into v and returns the decoded,
// validated settings. An empty path reads DefaultPath if it exists.
func Load(v *viper.Viper, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals and validates the current settings of v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []string

	if c.Remote.URL == "" {
		errs = append(errs, "remote.url is required")
	}
	if c.Cache.Path == "" {
		errs = append(errs, "cache.path is required")
	}
	if c.Sync.MaxAttempts < 1 {
		errs = append(errs, "sync.max_attempts must be at least 1")
	}
	if c.Sync.Backoff < 0 {
		errs = append(errs, "sync.backoff must not be negative")
	}
	if c.Sync.MaxBackoff < 0 {
		errs = append(errs, "sync.max_backoff must not be negative")
	}
	if _, err := sync.ParseBackoff(c.Sync.BackoffPolicy, c.Sync.Backoff, c.Sync.MaxBackoff); err != nil {
		errs = append(errs, "sync.backoff_policy must be one of: linear, exponential")
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, "sync.interval must be positive")
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		errs = append(errs, "dashboard.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// RetryBackoff returns the configured backoff policy.
func (s SyncConfig) RetryBackoff() sync.Backoff {
	b, err := sync.ParseBackoff(s.BackoffPolicy, s.Backoff, s.MaxBackoff)
	if err != nil {
		return sync.ExponentialBackoff{Base: s.Backoff, Max: s.MaxBackoff}
	}
	return b
}

// IsMemory reports whether the in-process remote store is selected.
func (r RemoteConfig) IsMemory() bool {
	return r.URL == MemoryURL
}

// Watch calls fn with freshly decoded settings every time the config file
// read into v changes. A file that fails to decode is passed as an error,
// and the previous settings stay in effect for the caller to keep.
func Watch(v *viper.Viper, fn func(*Config, error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		fn(Decode(v))
	})
	v.WatchConfig()
}
