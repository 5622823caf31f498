package calc

import (
	"fmt"

	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// RequiredThickness computes the minimum wall thickness the component
// needs to hold its design pressure, per the code formula for its
// geometry. The result is the pressure minimum only: the corrosion
// allowance stays on the component and is never folded in here.
func RequiredThickness(c vessel.Component, res stress.Resolution, cfg Config) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, geometryError(c.ID, TypeRequiredThickness, "invalid component: %v", err)
	}
	f, err := formulasFor(c, TypeRequiredThickness)
	if err != nil {
		return Result{}, err
	}
	eff, documented := c.Efficiency(cfg.FallbackJointEfficiency)
	assumed := !documented
	value, ivs, err := f.requiredThickness(c.DesignPressure, res.StressPSI, eff)
	if err != nil {
		return Result{}, err
	}
	r := Result{
		ComponentID:   c.ID,
		Revision:      c.Revision,
		Type:          TypeRequiredThickness,
		Value:         value,
		Unit:          "in",
		Intermediates: ivs,
		CodeRef:       f.thicknessRef(),
		Inputs:        baseInputs(c, res, eff, assumed, f.dims()),
		EngineVersion: EngineVersion,
		TableVersion:  res.TableVersion,
	}
	if assumed {
		r.Warnings = append(r.Warnings, assumedEfficiencyWarning(eff))
	}
	if err := r.seal(); err != nil {
		return Result{}, err
	}
	return r, nil
}

// baseInputs assembles the snapshot fields shared by every pressure
// calculation. Each calculator adds its own fields on top before the
// result is sealed.
func baseInputs(c vessel.Component, res stress.Resolution, eff float64, assumed bool, dims snap.Object) snap.Object {
	return snap.Object{
		"component_id":             snap.String(c.ID),
		"revision":                 snap.Int(c.Revision),
		"kind":                     snap.String(c.Geometry.Kind().String()),
		"geometry":                 dims,
		"material":                 snap.String(res.Spec),
		"design_pressure_psi":      snap.Float(c.DesignPressure),
		"design_temperature_f":     snap.Float(c.DesignTemperature),
		"allowable_stress_psi":     snap.Float(res.StressPSI),
		"stress_status":            snap.String(string(res.Status)),
		"joint_efficiency":         snap.Float(eff),
		"joint_efficiency_assumed": snap.Bool(assumed),
	}
}

func assumedEfficiencyWarning(e float64) string {
	return fmt.Sprintf("joint efficiency not documented; conservative fallback E=%.2f applied", e)
}
