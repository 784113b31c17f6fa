// Package config provides configuration loading and management for backlog.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/backlog/internal/core/board"
	"github.com/colonyops/backlog/internal/data/db"
)

// Backend selects where tasks and sprints are persisted.
type Backend string

const (
	// BackendRemote is the multi-user relational store, scoped by project.
	BackendRemote Backend = "remote"
	// BackendLocal is the per-user key-value store.
	BackendLocal Backend = "local"
)

// IsValid reports whether b is a known backend.
func (b Backend) IsValid() bool {
	return b == BackendRemote || b == BackendLocal
}

// LocalDriver selects the key-value implementation behind the local backend.
type LocalDriver string

const (
	// LocalDriverFile keeps all keys in one JSON document guarded by a file lock.
	LocalDriverFile LocalDriver = "file"
	// LocalDriverSQLite keeps keys in the kv_store table of the database.
	LocalDriverSQLite LocalDriver = "sqlite"
)

// IsValid reports whether d is a known driver.
func (d LocalDriver) IsValid() bool {
	return d == LocalDriverFile || d == LocalDriverSQLite
}

// DefaultProject is the project id used by the remote backend when none is configured.
const DefaultProject = "default"

// Config holds the application configuration.
type Config struct {
	Backend       Backend             `yaml:"backend"`
	User          string              `yaml:"user"`
	Project       string              `yaml:"project"`
	LogLevel      string              `yaml:"log_level"`
	LogFile       string              `yaml:"log_file"`
	Database      DatabaseConfig      `yaml:"database"`
	Local         LocalConfig         `yaml:"local"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Users         []board.User        `yaml:"users"`
	DataDir       string              `yaml:"-"` // set by caller, not from config file
}

// DatabaseConfig tunes the SQLite connection pool.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// OpenOptions converts the config into db.OpenOptions.
func (d DatabaseConfig) OpenOptions() db.OpenOptions {
	return db.OpenOptions{
		MaxOpenConns: d.MaxOpenConns,
		MaxIdleConns: d.MaxIdleConns,
		BusyTimeout:  d.BusyTimeout,
	}
}

// LocalConfig configures the local backend.
type LocalConfig struct {
	Driver LocalDriver `yaml:"driver"`
	Path   string      `yaml:"path"` // JSON file for the file driver
}

// NotificationsConfig controls the notification history.
type NotificationsConfig struct {
	// History records every notification in the database when true.
	History bool `yaml:"history"`
	// Limit is the default number of entries shown by `notifications ls`.
	Limit int `yaml:"limit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	opts := db.DefaultOpenOptions()
	return Config{
		Backend:  BackendRemote,
		Project:  DefaultProject,
		LogLevel: "info",
		Database: DatabaseConfig{
			MaxOpenConns: opts.MaxOpenConns,
			MaxIdleConns: opts.MaxIdleConns,
			BusyTimeout:  opts.BusyTimeout,
		},
		Local: LocalConfig{
			Driver: LocalDriverFile,
		},
		Notifications: NotificationsConfig{
			History: true,
			Limit:   20,
		},
	}
}

// Option overrides a loaded value before defaults and validation apply.
type Option func(*Config)

// WithBackend overrides the backend when b is non-empty.
func WithBackend(b string) Option {
	return func(c *Config) {
		if b != "" {
			c.Backend = Backend(b)
		}
	}
}

// WithUser overrides the acting user when id is non-empty.
func WithUser(id string) Option {
	return func(c *Config) {
		if id != "" {
			c.User = id
		}
	}
}

// WithProject overrides the remote project when id is non-empty.
func WithProject(id string) Option {
	return func(c *Config) {
		if id != "" {
			c.Project = id
		}
	}
}

// Load reads configuration from the given path and merges with defaults.
// A missing file is not an error. opts are applied after the file is read.
func Load(configPath, dataDir string, opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.User == "" {
		c.User = os.Getenv("USER")
	}
	if c.Project == "" {
		c.Project = defaults.Project
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Local.Driver == "" {
		c.Local.Driver = defaults.Local.Driver
	}
	if c.Local.Path == "" && c.DataDir != "" {
		c.Local.Path = filepath.Join(c.DataDir, "local.json")
	}
	if c.Notifications.Limit == 0 {
		c.Notifications.Limit = defaults.Notifications.Limit
	}
}

// LocalFile returns the JSON file used by the file driver.
func (c *Config) LocalFile() string {
	return c.Local.Path
}

// DatabaseFile returns the path of the SQLite database.
func (c *Config) DatabaseFile() string {
	return filepath.Join(c.DataDir, db.FileName)
}
