package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9141, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Zero(t, cfg.Fusion.Seed)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
  shutdown_timeout: 5s
logging:
  level: debug
  format: console
storage:
  backend: file
  path: /tmp/fusiond-test/feedback.json
fusion:
  seed: 42
  default_task_type: diagnostic
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/fusiond-test/feedback.json", cfg.Storage.Path)
	assert.Equal(t, int64(42), cfg.Fusion.Seed)
	assert.Equal(t, "diagnostic", cfg.Fusion.DefaultTaskType)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FUSIOND_SERVER_PORT", "7070")
	t.Setenv("FUSIOND_LOGGING_LEVEL", "warn")

	path := writeConfig(t, "server:\n  port: 8080\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "environment beats file")
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9141, cfg.Server.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 99999\n"},
		{"bad level", "logging:\n  level: chatty\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"bad backend", "storage:\n  backend: s3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidateFileBackendNeedsPath(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9141, ShutdownTimeout: time.Second},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Storage: StorageConfig{Backend: "file"},
	}
	assert.Error(t, cfg.Validate())
}
