package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/powerwatch/internal/config"
	"codeberg.org/mutker/powerwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetArgs(t *testing.T) {
	t.Helper()
	oldArgs := os.Args
	os.Args = []string{"powerwatch"}
	t.Cleanup(func() { os.Args = oldArgs })
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "powerwatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	resetArgs(t)

	configPath := writeConfig(t, `
interval = 250
output = "/var/lib/powerwatch/run.db"
format = "sqlite"
require_marker = true
resolution = "microseconds"
log_level = "debug"
metrics_listen = "127.0.0.1:9090"
nvml = false
`)
	t.Setenv("POWERWATCH_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Interval, "Expected Interval 250")
	assert.Equal(t, "/var/lib/powerwatch/run.db", cfg.Output)
	assert.Equal(t, config.FormatSQLite, cfg.Format)
	assert.True(t, cfg.RequireMarker, "Expected RequireMarker true")
	assert.Equal(t, "microseconds", cfg.Resolution)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9090", cfg.MetricsListen)
	assert.False(t, cfg.NVML, "Expected NVML false")
	assert.True(t, cfg.RAPL, "Expected RAPL default true")
}

func TestLoadDefaults(t *testing.T) {
	resetArgs(t)
	t.Setenv("POWERWATCH_CONFIG", writeConfig(t, ""))

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.Equal(t, config.DefaultOutput, cfg.Output)
	assert.Equal(t, config.DefaultFormat, cfg.Format)
	assert.False(t, cfg.RequireMarker)
	assert.Equal(t, config.DefaultResolution, cfg.Resolution)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.True(t, cfg.NVML)
	assert.True(t, cfg.RAPL)
	assert.False(t, cfg.Dump)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	resetArgs(t)
	t.Setenv("POWERWATCH_CONFIG", writeConfig(t, `
This is not a valid TOML file
`))

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	resetArgs(t)
	t.Setenv("POWERWATCH_CONFIG", writeConfig(t, `
log_level = "invalid"
`))

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestInvalidFormat(t *testing.T) {
	resetArgs(t)
	t.Setenv("POWERWATCH_CONFIG", writeConfig(t, `
format = "parquet"
`))

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestInvalidInterval(t *testing.T) {
	resetArgs(t)
	t.Setenv("POWERWATCH_CONFIG", writeConfig(t, `
interval = 0
`))

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval))
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"powerwatch", "--log-level", "warning", "--interval", "50"}
	t.Cleanup(func() { os.Args = oldArgs })

	t.Setenv("POWERWATCH_CONFIG", writeConfig(t, `
interval = 250
log_level = "debug"
`))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "warning", cfg.LogLevel, "Expected LogLevel to be set by flag")
	assert.Equal(t, 50, cfg.Interval, "Expected Interval to be set by flag")
}

func TestSamplingInterval(t *testing.T) {
	resetArgs(t)
	t.Setenv("POWERWATCH_CONFIG", writeConfig(t, `
interval = 250
`))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(250), cfg.SamplingInterval().Milliseconds())
}
