package calc

import (
	"math"

	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// MAWP computes the maximum allowable working pressure the component
// supports at the given wall thickness, normally the latest governing
// measurement. For shells both stress directions are evaluated and the
// lower pressure governs; heads have a single formula.
func MAWP(c vessel.Component, res stress.Resolution, thickness float64, cfg Config) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, geometryError(c.ID, TypeMAWP, "invalid component: %v", err)
	}
	if thickness <= 0 || math.IsNaN(thickness) || math.IsInf(thickness, 0) {
		return Result{}, geometryError(c.ID, TypeMAWP, "thickness %v in must be positive and finite", thickness)
	}
	f, err := formulasFor(c, TypeMAWP)
	if err != nil {
		return Result{}, err
	}
	eff, documented := c.Efficiency(cfg.FallbackJointEfficiency)
	assumed := !documented
	rating, err := f.mawpAt(thickness, res.StressPSI, eff)
	if err != nil {
		return Result{}, err
	}
	inputs := baseInputs(c, res, eff, assumed, f.dims())
	inputs["thickness_in"] = snap.Float(thickness)
	r := Result{
		ComponentID:   c.ID,
		Revision:      c.Revision,
		Type:          TypeMAWP,
		Value:         rating.value,
		Unit:          "psi",
		Governs:       rating.governs,
		Intermediates: rating.ivs,
		CodeRef:       rating.ref,
		Inputs:        inputs,
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
