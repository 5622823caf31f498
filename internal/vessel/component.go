package vessel

import (
	"fmt"
	"time"
)

// Component is one pressure-retaining element of a vessel: a shell
// course, a head, or a nozzle. A component record is immutable; design
// changes create a new revision.
type Component struct {
	// ID uniquely identifies the component within the fleet,
	// e.g. "V-101-S1" for the first shell course of vessel V-101.
	ID string
	// VesselID groups components belonging to one vessel.
	VesselID string
	// Revision increments when design conditions change. Calculations
	// record the revision they ran against.
	Revision int

	Geometry Geometry

	// Material is the material specification as supplied,
	// e.g. "SA-516 Gr 70". Normalization happens at stress resolution.
	Material string

	// DesignPressure is the internal design pressure in psi.
	DesignPressure float64
	// DesignTemperature is the design temperature in degrees F used for
	// allowable stress lookup.
	DesignTemperature float64

	// JointEfficiency is the weld joint efficiency E in (0, 1].
	// nil means the efficiency was never recorded for this component;
	// calculations then fall back to a conservative configured default
	// and the gap is flagged for review.
	JointEfficiency *float64

	// NominalThickness is the as-built thickness in inches.
	NominalThickness float64
	// CorrosionAllowance is the design corrosion allowance in inches.
	CorrosionAllowance float64

	// InstallDate anchors the long-term corrosion rate baseline.
	InstallDate time.Time

	// MAWPNote documents an accepted cause for the component's MAWP
	// sitting unusually far from its design pressure (e.g. a recorded
	// de-rate). An empty note means no cause is on file.
	MAWPNote string
}

// Efficiency returns the joint efficiency to calculate with, falling
// back to fallback when none is recorded. The second return reports
// whether the component carried its own value.
func (c Component) Efficiency(fallback float64) (float64, bool) {
	if c.JointEfficiency != nil {
		return *c.JointEfficiency, true
	}
	return fallback, false
}

// Validate reports structural problems with the component record.
// Geometry-specific checks are delegated to the variant.
func (c Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("component ID is required")
	}
	if c.VesselID == "" {
		return fmt.Errorf("component %s: vessel ID is required", c.ID)
	}
	if c.Revision < 1 {
		return fmt.Errorf("component %s: revision must be >= 1, got %d", c.ID, c.Revision)
	}
	if c.Geometry == nil {
		return fmt.Errorf("component %s: geometry is required", c.ID)
	}
	if err := c.Geometry.Validate(); err != nil {
		return fmt.Errorf("component %s: %w", c.ID, err)
	}
	if c.Material == "" {
		return fmt.Errorf("component %s: material specification is required", c.ID)
	}
	if c.DesignPressure <= 0 {
		return fmt.Errorf("component %s: design pressure must be positive, got %v", c.ID, c.DesignPressure)
	}
	if c.JointEfficiency != nil {
		if e := *c.JointEfficiency; e <= 0 || e > 1 {
			return fmt.Errorf("component %s: joint efficiency must be in (0, 1], got %v", c.ID, e)
		}
	}
	if c.NominalThickness <= 0 {
		return fmt.Errorf("component %s: nominal thickness must be positive, got %v", c.ID, c.NominalThickness)
	}
	if c.CorrosionAllowance < 0 {
		return fmt.Errorf("component %s: corrosion allowance cannot be negative, got %v", c.ID, c.CorrosionAllowance)
	}
	if c.InstallDate.IsZero() {
		return fmt.Errorf("component %s: install date is required", c.ID)
	}
	return nil
}
