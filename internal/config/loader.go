package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// maxConfigFileSize bounds the config file to keep a corrupt or hostile
// file from exhausting memory.
const maxConfigFileSize = 1024 * 1024

// envPrefix scopes the environment variables fusiond reads.
const envPrefix = "FUSIOND_"

// Load reads configuration from the YAML file at configPath, then overrides
// with FUSIOND_* environment variables, then fills the gaps with defaults.
//
// An empty configPath means the default location,
// ~/.config/fusiond/config.yaml; a missing file is not an error.
//
// Environment variables map section and field through the first underscore:
//
//	FUSIOND_SERVER_PORT         -> server.port
//	FUSIOND_LOGGING_LEVEL       -> logging.level
//	FUSIOND_FUSION_DEFAULT_TASK_TYPE -> fusion.default_task_type
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "fusiond", "config.yaml")
	}

	if info, err := os.Stat(configPath); err == nil {
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// FUSIOND_SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout:
		// split on the first underscore after the prefix, keep the rest
		// of the underscores inside the field name.
		trimmed := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(trimmed, "_", 2)
		if len(parts) == 1 {
			return trimmed
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyDefaults fills zero values with working defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9141
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.Backend == "file" && cfg.Storage.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Storage.Path = filepath.Join(home, ".config", "fusiond", "feedback.json")
		}
	}
}
