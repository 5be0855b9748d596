package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chtemp runs the test from an empty directory so a developer's config.yaml
// cannot leak in.
func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://api.mistral.ai", cfg.Mistral.BaseURL)
	assert.Equal(t, "mistral-large-latest", cfg.Mistral.Model)
	assert.Equal(t, "mistral", cfg.Generation.Provider)
	assert.InDelta(t, 0.4, cfg.Generation.Temperature, 0.001)
	assert.Equal(t, 400, cfg.Generation.MaxTokens)
	assert.Equal(t, 1, cfg.Generation.WordCountRetries)
	assert.InDelta(t, 0.1, cfg.Verification.Temperature, 0.001)
	assert.Equal(t, 1500, cfg.Verification.MaxTokens)
	assert.InDelta(t, 0.20, cfg.Safeguards.MaxHallucinationRate, 0.001)
	assert.InDelta(t, 0.30, cfg.Safeguards.MaxHallucinationRateNone, 0.001)
	assert.InDelta(t, 0.20, cfg.Safeguards.WordCountTolerance, 0.001)
	assert.Equal(t, 50, cfg.Batch.CheckpointEvery)
	assert.Equal(t, 3, cfg.Batch.MaxAttempts)
	assert.Equal(t, 5, cfg.Batch.BreakerFailures)
	assert.Equal(t, 60, cfg.Batch.BreakerResetSeconds)
	assert.Equal(t, []string{"nl", "de", "es", "fr"}, cfg.Translate.Languages)
	assert.Equal(t, 4, cfg.Translate.Concurrency)
	assert.Equal(t, 25, cfg.Translate.CheckpointEvery)
	assert.Equal(t, "destinations.yaml", cfg.Destinations.Path)
	assert.Equal(t, 120, cfg.Destinations.FreshnessCutoffDays)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chtemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
  format: console
batch:
  checkpoint_every: 25
generation:
  temperature: 0.3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 25, cfg.Batch.CheckpointEvery)
	assert.InDelta(t, 0.3, cfg.Generation.Temperature, 0.001)
	// Defaults still apply for unset values.
	assert.Equal(t, 400, cfg.Generation.MaxTokens)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chtemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("HOLIDAI_STORE_DRIVER", "postgres")
	t.Setenv("HOLIDAI_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)
	t.Setenv("HOLIDAI_BATCH_CHECKPOINT_EVERY", "100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Batch.CheckpointEvery)
}

func TestValidateProvider(t *testing.T) {
	cfg := &Config{}
	cfg.Generation.Provider = "mistral"
	assert.Error(t, cfg.ValidateProvider())

	cfg.Mistral.Key = "key"
	assert.NoError(t, cfg.ValidateProvider())

	cfg.Generation.Provider = "anthropic"
	assert.Error(t, cfg.ValidateProvider())

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.ValidateProvider())

	cfg.Generation.Provider = "openai"
	err := cfg.ValidateProvider()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown generation provider")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.NotNil(t, zap.L())

	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level", Format: "json"}))
}
