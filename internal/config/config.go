package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the top-level repovault configuration.
type Config struct {
	Archive ArchiveConfig `koanf:"archive"`
	GitHub  GitHubConfig  `koanf:"github"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// ArchiveConfig controls where saved repositories live on disk.
type ArchiveConfig struct {
	// Root is the base directory under which all categories and saved
	// repositories are written.
	Root string `koanf:"root"`

	// IndexPath is the metadata index file. Defaults to
	// <root>/repositories.json when empty.
	IndexPath string `koanf:"index_path"`
}

// GitHubConfig configures the remote repository source.
type GitHubConfig struct {
	// Token is an optional bearer token. Without it the source is limited
	// to unauthenticated rate limits.
	Token Secret `koanf:"token"`

	// RequestsPerSecond caps outgoing API calls.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// Burst is the rate limiter burst size.
	Burst int `koanf:"burst"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config, home string) {
	if cfg.Archive.Root == "" {
		cfg.Archive.Root = filepath.Join(home, ".local", "share", "repovault", "archives")
	}
	if cfg.Archive.IndexPath == "" {
		cfg.Archive.IndexPath = filepath.Join(cfg.Archive.Root, "repositories.json")
	}

	if cfg.GitHub.RequestsPerSecond == 0 {
		cfg.GitHub.RequestsPerSecond = 2
	}
	if cfg.GitHub.Burst == 0 {
		cfg.GitHub.Burst = 5
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9190
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Archive.Root == "" {
		return fmt.Errorf("archive root cannot be empty")
	}
	if !filepath.IsAbs(c.Archive.Root) {
		return fmt.Errorf("archive root must be an absolute path: %s", c.Archive.Root)
	}
	if c.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("github requests_per_second cannot be negative")
	}
	if c.GitHub.Burst < 0 {
		return fmt.Errorf("github burst cannot be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
