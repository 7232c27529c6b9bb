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
	assert.Equal(t, "lendops.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 25.0, cfg.Server.RatePerSecond)
	assert.Equal(t, 50, cfg.Server.RateBurst)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Reviews ship on; execution ships off.
	assert.True(t, cfg.Reviews.Enabled)
	assert.False(t, cfg.Reviews.ExecutionEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LENDOPS_STORE_DRIVER", "postgres")
	t.Setenv("LENDOPS_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadLegacyReviewGateEnvNames(t *testing.T) {
	t.Setenv("AI_REVIEWS_ENABLED", "false")
	t.Setenv("AI_EXECUTION_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Reviews.Enabled)
	assert.True(t, cfg.Reviews.ExecutionEnabled)
}

func TestLoadPrefixedGateEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("LENDOPS_REVIEWS_ENABLED", "true")
	t.Setenv("AI_REVIEWS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Reviews.Enabled)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}
