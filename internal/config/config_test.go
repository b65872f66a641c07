package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "Spain", cfg.Harvest.Country)
	assert.Equal(t, "negocios", cfg.Harvest.Query)
	assert.Equal(t, 165, cfg.Harvest.GridSize)
	assert.Equal(t, "auto", cfg.Harvest.Mode)
	assert.Equal(t, []string{"gmaps"}, cfg.Harvest.Sources)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MAPHARVEST_HARVEST_COUNTRY", "France")
	t.Setenv("MAPHARVEST_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "France", cfg.Harvest.Country)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "chatty", Format: "json"})
	require.Error(t, err)
}
