package calc

import (
	"math"

	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// ParentContext carries the parent-component values a nozzle
// reinforcement evaluation needs: the shell or head the nozzle
// penetrates, its latest measured wall, and its required thickness at
// the opening.
type ParentContext struct {
	ComponentID       string
	ActualThickness   float64
	RequiredThickness float64
}

// NozzleMinimum computes the UG-45 minimum wall for a nozzle: the
// larger of the pressure thickness at the nozzle bore and the nominal
// pipe wall reduced by the manufacturing undertolerance. The governing
// criterion is recorded, as is whether a per-nozzle tolerance override
// replaced the configured default.
func NozzleMinimum(c vessel.Component, res stress.Resolution, cfg Config) (Result, error) {
	g, err := nozzleGeometry(c, TypeNozzleMinimum)
	if err != nil {
		return Result{}, err
	}
	eff, documented := c.Efficiency(cfg.FallbackJointEfficiency)
	assumed := !documented
	pressure, err := nozzlePressureThickness(c, g, res, eff, TypeNozzleMinimum)
	if err != nil {
		return Result{}, err
	}
	tol, overridden := g.Tolerance(cfg.NozzleWallTolerance)
	pipeMinusTol := g.NominalWall * (1 - tol)

	value, governs := pressure, BasisPressure
	if pipeMinusTol > pressure {
		value, governs = pipeMinusTol, BasisPipeTolerance
	}

	inputs := baseInputs(c, res, eff, assumed, nozzleDims(g))
	inputs["tolerance"] = snap.Float(tol)
	inputs["tolerance_overridden"] = snap.Bool(overridden)
	r := Result{
		ComponentID: c.ID,
		Revision:    c.Revision,
		Type:        TypeNozzleMinimum,
		Value:       value,
		Unit:        "in",
		Governs:     governs,
		Intermediates: []Intermediate{
			{Name: "pressure_thickness", Value: pressure, Unit: "in"},
			{Name: "pipe_minus_tolerance", Value: pipeMinusTol, Unit: "in"},
			{Name: "tolerance", Value: tol, Unit: ""},
		},
		CodeRef:       "UG-45",
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

// Reinforcement evaluates UG-37 opening reinforcement for a nozzle,
// simplified to the data the component model carries. Required area is
// the opening diameter times the parent's required thickness.
// Available area is the excess parent wall beyond required plus the
// excess nozzle wall beyond its own pressure thickness, each taken as
// zero when negative.
func Reinforcement(c vessel.Component, res stress.Resolution, parent ParentContext, cfg Config) (Result, error) {
	g, err := nozzleGeometry(c, TypeReinforcement)
	if err != nil {
		return Result{}, err
	}
	if parent.ComponentID != g.Parent {
		return Result{}, geometryError(c.ID, TypeReinforcement,
			"parent context %q does not match nozzle parent %q", parent.ComponentID, g.Parent)
	}
	if parent.ActualThickness <= 0 || math.IsNaN(parent.ActualThickness) || math.IsInf(parent.ActualThickness, 0) {
		return Result{}, geometryError(c.ID, TypeReinforcement,
			"parent actual thickness %v in must be positive and finite", parent.ActualThickness)
	}
	if parent.RequiredThickness <= 0 || math.IsNaN(parent.RequiredThickness) || math.IsInf(parent.RequiredThickness, 0) {
		return Result{}, geometryError(c.ID, TypeReinforcement,
			"parent required thickness %v in must be positive and finite", parent.RequiredThickness)
	}

	eff, documented := c.Efficiency(cfg.FallbackJointEfficiency)
	assumed := !documented
	nozzleRequired, err := nozzlePressureThickness(c, g, res, eff, TypeReinforcement)
	if err != nil {
		return Result{}, err
	}

	d := g.OpeningDiameter()
	areaRequired := d * parent.RequiredThickness
	shellExcess := d * (parent.ActualThickness - parent.RequiredThickness)
	if shellExcess < 0 {
		shellExcess = 0
	}
	nozzleExcess := 5 * min(parent.ActualThickness, g.NominalWall) * (g.NominalWall - nozzleRequired)
	if nozzleExcess < 0 {
		nozzleExcess = 0
	}
	areaAvailable := shellExcess + nozzleExcess
	adequate := areaAvailable >= areaRequired
	margin := (areaAvailable - areaRequired) / areaRequired * 100

	inputs := baseInputs(c, res, eff, assumed, nozzleDims(g))
	inputs["parent_component_id"] = snap.String(parent.ComponentID)
	inputs["parent_actual_in"] = snap.Float(parent.ActualThickness)
	inputs["parent_required_in"] = snap.Float(parent.RequiredThickness)
	r := Result{
		ComponentID: c.ID,
		Revision:    c.Revision,
		Type:        TypeReinforcement,
		Value:       margin,
		Unit:        "%",
		Adequate:    &adequate,
		Intermediates: []Intermediate{
			{Name: "opening_diameter", Value: d, Unit: "in"},
			{Name: "area_required", Value: areaRequired, Unit: "in^2"},
			{Name: "area_shell_excess", Value: shellExcess, Unit: "in^2"},
			{Name: "area_nozzle_excess", Value: nozzleExcess, Unit: "in^2"},
			{Name: "area_available", Value: areaAvailable, Unit: "in^2"},
			{Name: "nozzle_pressure_thickness", Value: nozzleRequired, Unit: "in"},
		},
		CodeRef:       "UG-37",
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

func nozzleGeometry(c vessel.Component, calc Type) (vessel.Nozzle, error) {
	if err := c.Validate(); err != nil {
		return vessel.Nozzle{}, geometryError(c.ID, calc, "invalid component: %v", err)
	}
	g, ok := c.Geometry.(vessel.Nozzle)
	if !ok {
		return vessel.Nozzle{}, geometryError(c.ID, calc,
			"component geometry is %q, not a nozzle", c.Geometry.Kind())
	}
	return g, nil
}

// nozzlePressureThickness is the UG-27 circumferential formula applied
// at the nozzle bore radius.
func nozzlePressureThickness(c vessel.Component, g vessel.Nozzle, res stress.Resolution, eff float64, calc Type) (float64, error) {
	f := shellFormulas{componentID: c.ID, calc: calc, radius: g.InsideRadius()}
	t, _, err := f.requiredThickness(c.DesignPressure, res.StressPSI, eff)
	return t, err
}

func nozzleDims(g vessel.Nozzle) snap.Object {
	return snap.Object{
		"outside_diameter_in": snap.Float(g.OutsideDiameter),
		"nominal_wall_in":     snap.Float(g.NominalWall),
		"parent":              snap.String(g.Parent),
	}
}
