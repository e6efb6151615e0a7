package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "surfatlas.db", cfg.Store.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 27, cfg.Scrape.Pages)
	assert.Equal(t, 15, cfg.Scrape.TimeoutSecs)
	assert.Equal(t, 4, cfg.Scrape.RateLimit)
	assert.Equal(t, 8, cfg.Scrape.DetailConcurrency)
	assert.InDelta(t, 0.75, cfg.Match.ScoreThreshold, 0.001)
	assert.InDelta(t, 0.7, cfg.Match.NameWeight, 0.001)
	assert.InDelta(t, 0.3, cfg.Match.RegionWeight, 0.001)
	assert.InDelta(t, 0.85, cfg.Country.FuzzyThreshold, 0.001)
	assert.InDelta(t, 0.05, cfg.Country.FuzzyMargin, 0.001)
	assert.Equal(t, "data", cfg.Pipeline.DataDir)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/surfatlas
log:
  level: debug
  format: console
server:
  port: 9090
match:
  score_threshold: 0.8
`
	require.NoError(t, os.WriteFile(filepath.Join(".", "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/surfatlas", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.8, cfg.Match.ScoreThreshold, 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 27, cfg.Scrape.Pages)
	assert.InDelta(t, 0.7, cfg.Match.NameWeight, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o644))

	t.Setenv("SURFATLAS_STORE_DRIVER", "postgres")
	t.Setenv("SURFATLAS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("SURFATLAS_SERVER_PORT", "3000")
	t.Setenv("SURFATLAS_SCRAPE_PAGES", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Scrape.Pages)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
