package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	defaults := GetDefault()
	assert.Equal(t, defaults.Metadata.SQLite.Path, cfg.Metadata.SQLite.Path)
	assert.Equal(t, StrategyAuto, cfg.Storage.Strategy)
	assert.Equal(t, 8192, cfg.Storage.ChunkSize)
	assert.Equal(t, 2, cfg.Workers.Items)
	assert.Equal(t, 1, cfg.Workers.Tags)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoadConfig_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("storage.strategy", StrategyDirect)
	viper.Set("storage.root", "/tmp/memobox-files")
	viper.Set("workers.items", 4)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StrategyDirect, cfg.Storage.Strategy)
	assert.Equal(t, "/tmp/memobox-files", cfg.Storage.Root)
	assert.Equal(t, 4, cfg.Workers.Items)
}

func TestLoadConfig_RejectsUnknownStrategy(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("storage.strategy", "cloud")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloud")
}

func TestValidate(t *testing.T) {
	cfg := GetDefault()
	require.NoError(t, cfg.Validate())

	cfg.Workers.Tags = 0
	assert.Error(t, cfg.Validate())

	cfg = GetDefault()
	cfg.Storage.Index.Volume = "tape"
	assert.Error(t, cfg.Validate())

	cfg = GetDefault()
	cfg.Metadata.Type = "postgres"
	assert.Error(t, cfg.Validate())
}
