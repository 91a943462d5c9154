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
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Table.Type)
	assert.Equal(t, "memory", cfg.Objects.Type)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
logging:
  level: debug
  format: json
server:
  listen_addr: ":9090"
  seed_admin: true
table:
  type: badger
  badger:
    path: /tmp/filedock-table
    gc_interval: 10m
`))
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized to uppercase")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.True(t, cfg.Server.SeedAdmin)
	assert.Equal(t, "badger", cfg.Table.Type)
	assert.Equal(t, "/tmp/filedock-table", cfg.Table.Badger["path"])

	interval, err := BadgerGCInterval(&cfg.Table)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, interval)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Table.Type)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "logging:\n  invalid yaml [[["))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	t.Run("UnknownLogLevel", func(t *testing.T) {
		_, err := Load(writeConfig(t, "logging:\n  level: verbose\n"))
		assert.Error(t, err)
	})

	t.Run("UnknownTableType", func(t *testing.T) {
		_, err := Load(writeConfig(t, "table:\n  type: postgres\n"))
		assert.Error(t, err)
	})

	t.Run("S3RequiresBucketAndRegion", func(t *testing.T) {
		_, err := Load(writeConfig(t, "objects:\n  type: s3\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket")
	})

	t.Run("BadgerWithoutPath", func(t *testing.T) {
		cfg := &Config{}
		ApplyDefaults(cfg)
		cfg.Table.Type = "badger"
		cfg.Table.Badger["path"] = ""
		require.Error(t, Validate(cfg))

		cfg.Table.Badger["in_memory"] = true
		assert.NoError(t, Validate(cfg))
	})
}

func TestWriteSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteSampleConfig(path))

	// The generated file must load cleanly and carry comments.
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "#")
	assert.Contains(t, string(content), "listen_addr")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Table.Type)

	// Refuses to clobber.
	assert.Error(t, WriteSampleConfig(path))
}
