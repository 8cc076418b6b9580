package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "revcollect.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrent)
	assert.Empty(t, cfg.Batch.Jobs)
	assert.False(t, cfg.Collect.VerifiedOnly)
	assert.Nil(t, cfg.Collect.SrcMin)
	assert.Nil(t, cfg.Collect.TgtMax)
	assert.Nil(t, cfg.Collect.Limit)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/revcollect
log:
  level: debug
  format: console
server:
  port: 9090
collect:
  src_min: 15
  tgt_min: 5
  tgt_max: 10
  verified_only: true
  limit: 1000
batch:
  max_concurrent: 2
  jobs:
    - name: electronics
      domain: amazon
      paths: [a.json.gz, b.json.gz]
      limit: 50
    - name: restaurants
      domain: yelp
      paths: [reviews.jsonl]
      verified_only: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	require.NotNil(t, cfg.Collect.SrcMin)
	assert.Equal(t, 15, *cfg.Collect.SrcMin)
	assert.Nil(t, cfg.Collect.SrcMax)
	require.NotNil(t, cfg.Collect.TgtMax)
	assert.Equal(t, 10, *cfg.Collect.TgtMax)
	assert.True(t, cfg.Collect.VerifiedOnly)
	require.NotNil(t, cfg.Collect.Limit)
	assert.Equal(t, 1000, *cfg.Collect.Limit)

	assert.Equal(t, 2, cfg.Batch.MaxConcurrent)
	require.Len(t, cfg.Batch.Jobs, 2)
	assert.Equal(t, "electronics", cfg.Batch.Jobs[0].Name)
	assert.Equal(t, []string{"a.json.gz", "b.json.gz"}, cfg.Batch.Jobs[0].Paths)
	require.NotNil(t, cfg.Batch.Jobs[0].Limit)
	assert.Equal(t, 50, *cfg.Batch.Jobs[0].Limit)
	assert.Nil(t, cfg.Batch.Jobs[0].VerifiedOnly)
	require.NotNil(t, cfg.Batch.Jobs[1].VerifiedOnly)
	assert.False(t, *cfg.Batch.Jobs[1].VerifiedOnly)

	// Defaults still apply for unset values
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("REVCOLLECT_STORE_DRIVER", "postgres")
	t.Setenv("REVCOLLECT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("REVCOLLECT_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadEnvSetsOptionalBounds(t *testing.T) {
	chdirTemp(t)

	t.Setenv("REVCOLLECT_COLLECT_SRC_MIN", "12")
	t.Setenv("REVCOLLECT_COLLECT_LIMIT", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Collect.SrcMin)
	assert.Equal(t, 12, *cfg.Collect.SrcMin)
	require.NotNil(t, cfg.Collect.Limit)
	assert.Equal(t, 0, *cfg.Collect.Limit)
	assert.Nil(t, cfg.Collect.TgtMin)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unterminated"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
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
