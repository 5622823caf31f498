package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/verity-ndt/tminus/internal/anomaly"
	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// runOne executes the calculation chain for one component without
// stamping. parents maps component IDs to the parent context nozzles
// reinforce against; nil when the run has no phase-one outcomes.
func (r *Runner) runOne(ctx context.Context, in ComponentInput, parents map[string]calc.ParentContext) ComponentOutcome {
	c := in.Component
	out := ComponentOutcome{ComponentID: c.ID, DesignPressure: c.DesignPressure}

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	if err := c.Validate(); err != nil {
		out.Err = fmt.Errorf("component %s: %w", c.ID, err)
		return out
	}

	evs, err := orderedMeasurements(c, in.Measurements)
	if err != nil {
		out.Err = err
		return out
	}

	res, warns, err := r.resolveStress(c)
	if err != nil {
		out.Err = err
		return out
	}

	// Governing actual thickness and the anchors for rate work.
	var (
		readings []float64
		asOf     time.Time
		history  *calc.RateHistory
	)
	actual := c.NominalThickness
	rateSkipped := true
	switch n := len(evs); {
	case n >= 2:
		prev, last := evs[n-2], evs[n-1]
		actual = last.Governing()
		readings = last.Readings
		asOf = last.TakenAt
		history = &calc.RateHistory{
			PreviousThickness: prev.Governing(),
			PreviousDate:      prev.TakenAt,
			CurrentThickness:  last.Governing(),
			CurrentDate:       last.TakenAt,
		}
		rateSkipped = false
	case n == 1:
		last := evs[0]
		actual = last.Governing()
		readings = last.Readings
		asOf = last.TakenAt
		warns = append(warns, "single measurement on file; corrosion rate and remaining life not computed")
	default:
		warns = append(warns, "no thickness measurements on file; evaluating at nominal thickness")
	}
	out.Actual = actual

	// Pressure evaluation: UG-45 for nozzles, the shell and head
	// formulas otherwise.
	requiredType := calc.TypeRequiredThickness
	if g, ok := c.Geometry.(vessel.Nozzle); ok {
		requiredType = calc.TypeNozzleMinimum

		minRes, err := calc.NozzleMinimum(c, res, r.cfg)
		if err != nil {
			out.Err = err
			return out
		}
		out.Results = append(out.Results, minRes)

		if parent, ok := parents[g.Parent]; ok {
			reinf, err := calc.Reinforcement(c, res, parent, r.cfg)
			if err != nil {
				out.Err = err
				return out
			}
			out.Results = append(out.Results, reinf)
		} else {
			warns = append(warns, fmt.Sprintf("parent component %s not available in this run; reinforcement not evaluated", g.Parent))
		}
	} else {
		reqRes, err := calc.RequiredThickness(c, res, r.cfg)
		if err != nil {
			out.Err = err
			return out
		}
		out.Results = append(out.Results, reqRes)

		mawpRes, err := calc.MAWP(c, res, actual, r.cfg)
		if err != nil {
			out.Err = err
			return out
		}
		out.Results = append(out.Results, mawpRes)
	}
	requiredVal := out.Result(requiredType).Value

	// Rate chain: degrade, never fail, when history is unusable.
	if history != nil {
		rateRes, err := calc.CorrosionRate(c, *history, r.cfg)
		switch {
		case err == nil:
			out.Results = append(out.Results, rateRes)

			lifeRes, err := calc.RemainingLife(c, actual, requiredVal, rateRes.Value, asOf, r.cfg)
			if err != nil {
				out.Err = err
				return out
			}
			out.Results = append(out.Results, lifeRes)
		case calc.IsInsufficientHistory(err):
			rateSkipped = true
			warns = append(warns, fmt.Sprintf("history unusable for rates: %v", err))
			r.log.Warn("skipping rate outputs", "component", c.ID, "reason", err)
		default:
			out.Err = err
			return out
		}
	}

	out.Anomalies = anomaly.Detect(anomaly.Input{
		Component:   c,
		Readings:    readings,
		Actual:      actual,
		Required:    out.Result(requiredType),
		MAWP:        out.Result(calc.TypeMAWP),
		Rate:        out.Result(calc.TypeCorrosionRate),
		Life:        out.Result(calc.TypeRemainingLife),
		RateSkipped: rateSkipped,
	}, r.cfg)
	out.Warnings = warns

	r.log.Debug("component run complete",
		"component", c.ID,
		"results", len(out.Results),
		"anomalies", len(out.Anomalies))
	return out
}

// resolveStress looks up the allowable stress, retrying once with the
// configured fallback material when the component's specification is
// not in the table.
func (r *Runner) resolveStress(c vessel.Component) (stress.Resolution, []string, error) {
	res, err := r.table.Resolve(c.Material, c.DesignTemperature)
	if err == nil {
		return res, nil, nil
	}
	if stress.IsUnknownMaterial(err) && r.cfg.FallbackMaterial != "" {
		fres, ferr := r.table.Resolve(r.cfg.FallbackMaterial, c.DesignTemperature)
		if ferr != nil {
			return stress.Resolution{}, nil, fmt.Errorf("component %s: material %q unknown and fallback failed: %w",
				c.ID, c.Material, ferr)
		}
		r.log.Warn("material fallback applied",
			"component", c.ID,
			"material", c.Material,
			"fallback", fres.Spec)
		warn := fmt.Sprintf("material %q not in stress table %s; conservative fallback %q applied",
			c.Material, r.table.Version(), fres.Spec)
		return fres, []string{warn}, nil
	}
	return stress.Resolution{}, nil, fmt.Errorf("component %s: %w", c.ID, err)
}

// orderedMeasurements validates the history and returns it sorted by
// measurement date, oldest first. Ties keep input order.
func orderedMeasurements(c vessel.Component, evs []vessel.MeasurementEvent) ([]vessel.MeasurementEvent, error) {
	ordered := slices.Clone(evs)
	for _, ev := range ordered {
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("component %s: %w", c.ID, err)
		}
		if ev.ComponentID != c.ID {
			return nil, fmt.Errorf("component %s: history contains measurement for %s", c.ID, ev.ComponentID)
		}
	}
	slices.SortStableFunc(ordered, func(a, b vessel.MeasurementEvent) int {
		return a.TakenAt.Compare(b.TakenAt)
	})
	return ordered, nil
}
