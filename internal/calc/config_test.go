package calc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfig_OverlaysOntoDefaults(t *testing.T) {
	path := writeConfig(t, "nominal_rate_floor: 0.002\nhigh_rate_threshold: 0.02\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.002, cfg.NominalRateFloor)
	assert.Equal(t, 0.02, cfg.HighRateThreshold)
	// Untouched fields keep their defaults.
	assert.Equal(t, 999.0, cfg.MaxRemainingLifeYears)
	assert.Equal(t, 0.70, cfg.FallbackJointEfficiency)
	assert.Equal(t, 0.125, cfg.NozzleWallTolerance)
}

func TestLoadConfig_FallbackMaterial(t *testing.T) {
	path := writeConfig(t, `fallback_material: "SA-285 Gr C"`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "SA-285 Gr C", cfg.FallbackMaterial)
}

func TestLoadConfig_RejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "nominal_rate_flor: 0.002\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nominal_rate_flor")
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "fallback_joint_efficiency: 1.5\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback_joint_efficiency")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConfigValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rate floor", func(c *Config) { c.NominalRateFloor = 0 }},
		{"negative rate floor", func(c *Config) { c.NominalRateFloor = -0.001 }},
		{"zero life cap", func(c *Config) { c.MaxRemainingLifeYears = 0 }},
		{"zero interval cap", func(c *Config) { c.MaxInspectionIntervalYears = 0 }},
		{"zero fallback efficiency", func(c *Config) { c.FallbackJointEfficiency = 0 }},
		{"fallback efficiency above one", func(c *Config) { c.FallbackJointEfficiency = 1.1 }},
		{"tolerance at one", func(c *Config) { c.NozzleWallTolerance = 1.0 }},
		{"negative tolerance", func(c *Config) { c.NozzleWallTolerance = -0.1 }},
		{"zero high-rate threshold", func(c *Config) { c.HighRateThreshold = 0 }},
		{"zero stddev limit", func(c *Config) { c.VariationStddevLimit = 0 }},
		{"zero deviation fraction", func(c *Config) { c.MAWPDeviationFraction = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
