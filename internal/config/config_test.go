package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MONGO_URI", "DB_NAME", "LOG_LEVEL", "LOG_DIR"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "config")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.Mongo.URI)
	assert.Equal(t, "sda", cfg.Storage.Mongo.DatabaseName)
	assert.Equal(t, "agents", cfg.Storage.Agents.Collection)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(filepath.Dir(dir), "logs"), cfg.Logging.Dir)
}

func TestLoadConfig_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://test:27017")
	t.Setenv("DB_NAME", "testdb")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "mongodb://test:27017", cfg.Storage.Mongo.URI)
	assert.Equal(t, "testdb", cfg.Storage.Mongo.DatabaseName)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "debug", cfg.Logging.Console.Level)
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
storage:
  mongo:
    uri: "mongodb://file:27017"
    database_name: "filedb"
    connect_timeout: 2s
  agents:
    collection: "clerks"
logging:
  level: "warn"
  format: "json"
`), 0644))

	// local file overrides config.yml
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.yml"), []byte(`
storage:
  mongo:
    database_name: "localdb"
`), 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://file:27017", cfg.Storage.Mongo.URI)
	assert.Equal(t, "localdb", cfg.Storage.Mongo.DatabaseName)
	assert.Equal(t, 2*time.Second, cfg.Storage.Mongo.ConnectTimeout)
	assert.Equal(t, "clerks", cfg.Storage.Agents.Collection)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfig_LoadFileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	// A directory where a file is expected triggers the read error path
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config.yml"), 0755))

	// Malformed YAML triggers the parse error path
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.yml"), []byte("not: [valid"), 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	// Defaults remain when files fail to load
	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.Mongo.URI)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
logging:
  level: "loud"
`), 0644))

	cfg, err := LoadConfig(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
	assert.Nil(t, cfg)
}
