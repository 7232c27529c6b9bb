package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yaml := `
engine:
  payment:
    grace_days: 10
    short_pay_tolerance: 2.50
  inspection:
    required_photos:
      - name: exterior
        match: [exterior, outside]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Payment.GraceDays)
	assert.Equal(t, 2.50, cfg.Payment.ShortPayTolerance)

	// Unset sections fall back to the defaults.
	def := DefaultConfig()
	assert.Equal(t, def.Payment.Allocation, cfg.Payment.Allocation)
	assert.Equal(t, def.Payment.Confidence, cfg.Payment.Confidence)
	assert.Equal(t, def.Inspection.Confidence, cfg.Inspection.Confidence)

	require.Len(t, cfg.Inspection.RequiredPhotos, 1)
	assert.Equal(t, "exterior", cfg.Inspection.RequiredPhotos[0].Name)
	assert.Equal(t, []string{"exterior", "outside"}, cfg.Inspection.RequiredPhotos[0].Match)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [not a map"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
