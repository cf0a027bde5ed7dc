// ABOUTME: healthexport configuration management with backend selection.
// ABOUTME: Handles settings, environment overrides, and the descriptor store factory.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/healthexport/internal/charm"
	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/sleep"
	"github.com/harperreed/healthexport/internal/storage"
)

// Backend names accepted in the config file.
const (
	BackendBadger = "badger"
	BackendCharm  = "charm"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config stores healthexport configuration.
type Config struct {
	// Backend selects where session descriptors live: "badger" (default),
	// "charm", "redis" or "memory".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for data storage.
	// samples.db and the badger directory live here.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/healthexport.
	DataDir string `json:"data_dir,omitempty"`

	// RedisAddr is host:port for the redis backend.
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	// Concurrency bounds batch execution: negative is unlimited,
	// 0 or 1 runs batches one at a time.
	Concurrency int `json:"concurrency,omitempty"`

	// SleepGap is the largest gap joining sleep samples into one session,
	// as a Go duration string.
	SleepGap string `json:"max_sleep_gap,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "badger".
// HEALTHEXPORT_BACKEND overrides the file.
func (c *Config) GetBackend() string {
	if env := os.Getenv("HEALTHEXPORT_BACKEND"); env != "" {
		return strings.ToLower(env)
	}
	if c.Backend == "" {
		return BackendBadger
	}
	return strings.ToLower(c.Backend)
}

// GetLogLevel returns the log level. HEALTHEXPORT_LOG_LEVEL overrides the file.
func (c *Config) GetLogLevel() string {
	if env := os.Getenv("HEALTHEXPORT_LOG_LEVEL"); env != "" {
		return env
	}
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetRedisAddr returns the redis address, defaulting to localhost.
func (c *Config) GetRedisAddr() string {
	if c.RedisAddr == "" {
		return "localhost:6379"
	}
	return c.RedisAddr
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// ExportConcurrency maps the configured integer to a concurrency policy.
func (c *Config) ExportConcurrency() export.Concurrency {
	return export.ConcurrencyFromInt(c.Concurrency)
}

// MaxSleepGap returns the sleep session gap, falling back to the
// builder default when unset or unparseable.
func (c *Config) MaxSleepGap() time.Duration {
	if c.SleepGap == "" {
		return sleep.DefaultMaxDistance
	}
	d, err := time.ParseDuration(c.SleepGap)
	if err != nil || d <= 0 {
		return sleep.DefaultMaxDistance
	}
	return d
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenSampleDB opens the SQLite sample database in the data directory.
func (c *Config) OpenSampleDB() (*storage.DB, error) {
	return storage.Open(filepath.Join(c.GetDataDir(), "samples.db"))
}

// OpenDescriptorStore creates the descriptor backend selected by the config.
func (c *Config) OpenDescriptorStore(ctx context.Context) (storage.DescriptorBackend, error) {
	return c.OpenBackend(ctx, c.GetBackend())
}

// OpenBackend opens a named descriptor backend using this config's settings.
func (c *Config) OpenBackend(ctx context.Context, backend string) (storage.DescriptorBackend, error) {
	switch backend {
	case BackendBadger:
		return storage.OpenBadgerStore(filepath.Join(c.GetDataDir(), "sessions"))
	case BackendCharm:
		return charm.InitClient()
	case BackendRedis:
		return storage.NewRedisStore(ctx, storage.RedisConfig{
			Addr:     c.GetRedisAddr(),
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
	case BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "healthexport", "config.json")
}

// Load reads config from disk.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
