package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 0.5, cfg.Scoring.Threshold)
	assert.Equal(t, "models", cfg.Model.Dir)
	assert.Equal(t, 100, cfg.Model.Trees)
	assert.Equal(t, 0.3, cfg.Model.TestFraction)
	assert.Equal(t, int64(42), cfg.Model.Seed)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, "streetquality.db", cfg.Store.Path)
	assert.False(t, cfg.Store.Disable)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STREETQUALITY_LOG_LEVEL", "debug")
	t.Setenv("STREETQUALITY_MODEL_TREES", "250")
	t.Setenv("STREETQUALITY_STORE_PATH", "/tmp/runs.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250, cfg.Model.Trees)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
log:
  level: warn
  format: console
model:
  dir: /var/lib/streetquality/models
  trees: 50
adapters:
  osm:
    network_type: walk
    simplify: false
  postgis:
    connection: postgresql://localhost/streets
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/var/lib/streetquality/models", cfg.Model.Dir)
	assert.Equal(t, 50, cfg.Model.Trees)
	// Unset keys fall back to defaults.
	assert.Equal(t, 0.3, cfg.Model.TestFraction)

	osmSection := cfg.AdapterSection("osm")
	require.NotNil(t, osmSection)
	assert.Equal(t, "walk", osmSection["network_type"])
	assert.Equal(t, false, osmSection["simplify"])

	pg := cfg.AdapterSection("postgis")
	require.NotNil(t, pg)
	assert.Equal(t, "postgresql://localhost/streets", pg["connection"])
}

func TestLoadMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [broken"), 0o644))
	t.Chdir(dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestAdapterSectionUnknown(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.AdapterSection("csv"))
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
