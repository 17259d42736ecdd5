package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/worldstat/pkg/constants"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultDocumentPath, config.Output)
	assert.Equal(t, constants.RunTimeout, config.Timeout)
	assert.Equal(t, "auto", config.LogFormat)
	assert.Empty(t, config.LogLevel, "the explicit level only comes from the flag")
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WORLDSTAT_OUTPUT", "/srv/www/global_data.json")
	t.Setenv("WORLDSTAT_EVERY", "24h")
	t.Setenv("LOG_LEVEL", "debug")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/www/global_data.json", config.Output)
	assert.Equal(t, 24*time.Hour, config.Every)
	assert.Equal(t, "debug", config.EnvLogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worldstat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: docs/data.json\ntimeout: 2m\nmode: history\nprovenance: prov.yaml\n"), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "docs/data.json", config.Output)
	assert.Equal(t, 2*time.Minute, config.Timeout)
	assert.Equal(t, "history", config.Mode)
	assert.Equal(t, "prov.yaml", config.Provenance)
	assert.Equal(t, path, config.ConfigFile)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestUpdateFromFlags(t *testing.T) {
	config := &Config{Dataset: "a.yaml"}
	config.UpdateFromFlags(true, false, true, "trace", "")
	assert.True(t, config.Verbose)
	assert.True(t, config.NoColor)
	assert.Equal(t, "trace", config.LogLevel)
	assert.Equal(t, "a.yaml", config.Dataset)

	config.UpdateFromFlags(false, false, false, "", "b.yaml")
	assert.Equal(t, "b.yaml", config.Dataset)
	assert.Equal(t, "trace", config.LogLevel)
}
