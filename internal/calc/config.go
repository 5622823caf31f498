package calc

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config collects every fallback default and review threshold the
// engine consults. Calculators never reach for ad hoc constants;
// anything tunable lives here, and values that influence a calculation
// are recorded in its input snapshot so a config change is visible in
// the result identity.
type Config struct {
	// NominalRateFloor is the corrosion rate floor in inches/year.
	// When both measured rates fall below it (including apparent wall
	// growth), the governing rate is this floor with basis "nominal".
	// The floor unifies the legacy 1 mpy and 0.001 in/yr constants:
	// one mil per year IS 0.001 inches per year.
	NominalRateFloor float64 `yaml:"nominal_rate_floor"`

	// MaxRemainingLifeYears caps reported remaining life. A component
	// corroding at the nominal floor effectively outlives the plant;
	// the cap keeps "effectively unlimited" out of division results.
	MaxRemainingLifeYears float64 `yaml:"max_remaining_life_years"`

	// MaxInspectionIntervalYears caps the next inspection interval
	// (the half-remaining-life-or-ten-years rule).
	MaxInspectionIntervalYears float64 `yaml:"max_inspection_interval_years"`

	// FallbackJointEfficiency applies when a component has no recorded
	// joint efficiency. Conservative by intent; using it always raises
	// a missing-efficiency warning on the result.
	FallbackJointEfficiency float64 `yaml:"fallback_joint_efficiency"`

	// FallbackMaterial, when set, is tried after an unknown-material
	// resolution failure. Empty means unknown materials block the
	// component's stress-dependent calculations.
	FallbackMaterial string `yaml:"fallback_material"`

	// NozzleWallTolerance is the pipe manufacturing wall tolerance
	// fraction (mill under-tolerance), default 12.5%.
	NozzleWallTolerance float64 `yaml:"nozzle_wall_tolerance"`

	// HighRateThreshold flags corrosion rates above this value in
	// inches/year for review.
	HighRateThreshold float64 `yaml:"high_rate_threshold"`

	// VariationStddevLimit flags measurement events whose readings
	// scatter beyond this standard deviation in inches.
	VariationStddevLimit float64 `yaml:"variation_stddev_limit"`

	// MAWPDeviationFraction flags components whose computed MAWP
	// deviates from design pressure by more than this fraction without
	// a documented cause on file.
	MAWPDeviationFraction float64 `yaml:"mawp_deviation_fraction"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		NominalRateFloor:           0.001,
		MaxRemainingLifeYears:      999,
		MaxInspectionIntervalYears: 10,
		FallbackJointEfficiency:    0.70,
		FallbackMaterial:           "",
		NozzleWallTolerance:        0.125,
		HighRateThreshold:          0.010,
		VariationStddevLimit:       0.050,
		MAWPDeviationFraction:      0.50,
	}
}

// Validate reports configuration values the engine cannot run with.
func (c Config) Validate() error {
	if c.NominalRateFloor <= 0 {
		return fmt.Errorf("config: nominal_rate_floor must be positive, got %v", c.NominalRateFloor)
	}
	if c.MaxRemainingLifeYears <= 0 {
		return fmt.Errorf("config: max_remaining_life_years must be positive, got %v", c.MaxRemainingLifeYears)
	}
	if c.MaxInspectionIntervalYears <= 0 {
		return fmt.Errorf("config: max_inspection_interval_years must be positive, got %v", c.MaxInspectionIntervalYears)
	}
	if c.FallbackJointEfficiency <= 0 || c.FallbackJointEfficiency > 1 {
		return fmt.Errorf("config: fallback_joint_efficiency must be in (0, 1], got %v", c.FallbackJointEfficiency)
	}
	if c.NozzleWallTolerance < 0 || c.NozzleWallTolerance >= 1 {
		return fmt.Errorf("config: nozzle_wall_tolerance must be in [0, 1), got %v", c.NozzleWallTolerance)
	}
	if c.HighRateThreshold <= 0 {
		return fmt.Errorf("config: high_rate_threshold must be positive, got %v", c.HighRateThreshold)
	}
	if c.VariationStddevLimit <= 0 {
		return fmt.Errorf("config: variation_stddev_limit must be positive, got %v", c.VariationStddevLimit)
	}
	if c.MAWPDeviationFraction <= 0 {
		return fmt.Errorf("config: mawp_deviation_fraction must be positive, got %v", c.MAWPDeviationFraction)
	}
	return nil
}

// LoadConfig overlays a YAML file onto the defaults. Absent fields keep
// their default values; unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
