package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "zip_codes.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data", cfg.Fetch.DataDir)
	assert.Equal(t, 120, cfg.Fetch.TimeoutSecs)
	assert.Contains(t, cfg.Fetch.GazetteerURL, "Gaz_zcta_national")
	assert.Equal(t, "dist", cfg.Build.OutDir)
	assert.Equal(t, "GEOID", cfg.Build.ZipColumn)
	assert.Equal(t, "INTPTLAT", cfg.Build.LatColumn)
	assert.Equal(t, "INTPTLONG", cfg.Build.LngColumn)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ZIPDATA_STORE_DRIVER", "postgres")
	t.Setenv("ZIPDATA_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level"})
	require.Error(t, err)
}
