package calc

import (
	"fmt"
	"math"
	"time"

	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// RemainingLife projects how many years of service remain before the
// component's wall reaches its required thickness, and derives the
// next inspection interval from it.
//
// remaining life = (actual - required) / governingRate. A component
// already below required thickness yields a negative remaining life,
// which is reported exactly as computed: a negative value is the
// signal that the component is overdue, and clamping it to zero would
// hide that. Positive estimates are capped at MaxRemainingLifeYears
// so a floor-rate component reads "effectively unlimited" instead of
// an absurd quotient.
//
// The inspection interval is half the remaining life or
// MaxInspectionIntervalYears, whichever is less, and never negative.
func RemainingLife(c vessel.Component, actual, required, governingRate float64, asOf time.Time, cfg Config) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, geometryError(c.ID, TypeRemainingLife, "invalid component: %v", err)
	}
	if actual <= 0 || math.IsNaN(actual) || math.IsInf(actual, 0) {
		return Result{}, historyError(c.ID, TypeRemainingLife, "actual thickness %v in must be positive and finite", actual)
	}
	if required <= 0 || math.IsNaN(required) || math.IsInf(required, 0) {
		return Result{}, historyError(c.ID, TypeRemainingLife, "required thickness %v in must be positive and finite", required)
	}
	if governingRate <= 0 || math.IsNaN(governingRate) || math.IsInf(governingRate, 0) {
		return Result{}, historyError(c.ID, TypeRemainingLife, "governing rate %v in/yr must be positive and finite", governingRate)
	}
	if asOf.IsZero() {
		return Result{}, historyError(c.ID, TypeRemainingLife, "evaluation date is missing")
	}

	margin := actual - required
	raw := margin / governingRate

	rl := raw
	var rationale string
	switch {
	case margin < 0:
		rationale = fmt.Sprintf("actual thickness %.4f in is below required %.4f in; component is overdue", actual, required)
	case governingRate <= cfg.NominalRateFloor:
		rl = cfg.MaxRemainingLifeYears
		rationale = fmt.Sprintf("corrosion at the %.4f in/yr floor rate; remaining life reported as the %.0f yr maximum", governingRate, cfg.MaxRemainingLifeYears)
	case raw > cfg.MaxRemainingLifeYears:
		rl = cfg.MaxRemainingLifeYears
		rationale = fmt.Sprintf("projected %.0f yr exceeds the %.0f yr reporting maximum", raw, cfg.MaxRemainingLifeYears)
	default:
		rationale = fmt.Sprintf("corrosion margin %.4f in at %.4f in/yr governing rate", margin, governingRate)
	}

	interval := min(rl/2, cfg.MaxInspectionIntervalYears)
	if interval < 0 {
		interval = 0
	}
	next := asOf.AddDate(0, 0, int(math.Round(interval*365.25)))

	r := Result{
		ComponentID:    c.ID,
		Revision:       c.Revision,
		Type:           TypeRemainingLife,
		Value:          rl,
		Unit:           "yr",
		Rationale:      rationale,
		NextInspection: next,
		Intermediates: []Intermediate{
			{Name: "corrosion_margin", Value: margin, Unit: "in"},
			{Name: "remaining_life_raw", Value: raw, Unit: "yr"},
			{Name: "inspection_interval", Value: interval, Unit: "yr"},
		},
		CodeRef: "API 510 7.1.1.2",
		Inputs: snap.Object{
			"component_id":          snap.String(c.ID),
			"revision":              snap.Int(c.Revision),
			"actual_thickness_in":   snap.Float(actual),
			"required_thickness_in": snap.Float(required),
			"governing_rate":        snap.Float(governingRate),
			"as_of":                 snap.TimeString(asOf),
			"nominal_rate_floor":    snap.Float(cfg.NominalRateFloor),
			"max_remaining_life_yr": snap.Float(cfg.MaxRemainingLifeYears),
			"max_interval_yr":       snap.Float(cfg.MaxInspectionIntervalYears),
		},
		EngineVersion: EngineVersion,
	}
	if err := r.seal(); err != nil {
		return Result{}, err
	}
	return r, nil
}
