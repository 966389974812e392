// Package config provides configuration loading for fusiond.
//
// Configuration is layered: hardcoded defaults, then a YAML file, then
// environment variables, highest last.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete fusiond configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Storage StorageConfig `koanf:"storage"`
	Fusion  FusionConfig  `koanf:"fusion"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`
}

// StorageConfig holds feedback persistence configuration.
type StorageConfig struct {
	// Backend is memory or file.
	Backend string `koanf:"backend"`

	// Path is the snapshot location for the file backend.
	Path string `koanf:"path"`
}

// FusionConfig holds fusion engine configuration.
type FusionConfig struct {
	// Seed seeds the engine's random source. Zero means time-seeded;
	// set a fixed value for reproducible fusions.
	Seed int64 `koanf:"seed"`

	// DefaultTaskType is applied to fusion requests that carry no task
	// type of their own.
	DefaultTaskType string `koanf:"default_task_type"`
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	switch c.Storage.Backend {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the file backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory or file, got %q", c.Storage.Backend)
	}

	return nil
}
