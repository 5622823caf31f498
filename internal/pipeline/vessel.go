package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// maxConcurrentComponents bounds the vessel fan-out.
const maxConcurrentComponents = 8

// VesselInput is a full vessel run: every component of one vessel,
// each with its measurement history, and the actor the audit trail
// attributes the run to.
type VesselInput struct {
	Components []ComponentInput
	ActorID    string
}

// Verdict is the vessel-level fitness call, in the shape the legacy
// assessment sheets reported: the lowest component MAWP governs, and
// an unsafe vessel carries the pressure it must be de-rated to.
type Verdict struct {
	// Evaluated is false when no component produced a MAWP.
	Evaluated bool
	// Safe means every evaluated component's MAWP meets or exceeds its
	// design pressure.
	Safe bool

	GoverningComponent string
	GoverningMAWP      float64
	// DesignPressure is the governing component's design pressure.
	DesignPressure float64
	// DeRateTo is the operating pressure the vessel must come down to
	// when unsafe: the governing MAWP.
	DeRateTo float64
}

// VesselOutcome is one complete vessel run.
type VesselOutcome struct {
	VesselID string
	RunToken string
	// Outcomes are sorted by component ID; sequence numbers follow
	// that order.
	Outcomes []ComponentOutcome
	Verdict  Verdict
}

// Outcome returns the outcome for one component, or nil.
func (v VesselOutcome) Outcome(componentID string) *ComponentOutcome {
	for i := range v.Outcomes {
		if v.Outcomes[i].ComponentID == componentID {
			return &v.Outcomes[i]
		}
	}
	return nil
}

// RunVessel runs every component of one vessel. Shells and heads run
// first so nozzles can reinforce against their parent's outcome; each
// phase fans out across goroutines. A failing component surfaces in
// its own outcome and never stops its siblings. Results are ordered
// and stamped after collection, so identical inputs produce identical
// output regardless of scheduling.
func (r *Runner) RunVessel(ctx context.Context, in VesselInput) (VesselOutcome, error) {
	if in.ActorID == "" {
		return VesselOutcome{}, fmt.Errorf("pipeline: actor id is required")
	}
	if len(in.Components) == 0 {
		return VesselOutcome{}, fmt.Errorf("pipeline: no components to run")
	}

	vesselID := in.Components[0].Component.VesselID
	seen := make(map[string]bool, len(in.Components))
	for _, ci := range in.Components {
		if ci.Component.VesselID != vesselID {
			return VesselOutcome{}, fmt.Errorf("pipeline: one run covers one vessel, got %q and %q",
				vesselID, ci.Component.VesselID)
		}
		if seen[ci.Component.ID] {
			return VesselOutcome{}, fmt.Errorf("pipeline: duplicate component %s", ci.Component.ID)
		}
		seen[ci.Component.ID] = true
	}

	var shells, nozzles []ComponentInput
	for _, ci := range in.Components {
		if ci.Component.Geometry != nil && ci.Component.Geometry.Kind() == vessel.KindNozzle {
			nozzles = append(nozzles, ci)
		} else {
			shells = append(shells, ci)
		}
	}

	shellOutcomes := r.fanOut(ctx, shells, nil)

	parents := make(map[string]calc.ParentContext, len(shellOutcomes))
	for _, o := range shellOutcomes {
		if o.Err != nil {
			continue
		}
		req := o.Result(calc.TypeRequiredThickness)
		if req == nil {
			continue
		}
		parents[o.ComponentID] = calc.ParentContext{
			ComponentID:       o.ComponentID,
			ActualThickness:   o.Actual,
			RequiredThickness: req.Value,
		}
	}

	nozzleOutcomes := r.fanOut(ctx, nozzles, parents)

	outcomes := append(shellOutcomes, nozzleOutcomes...)
	slices.SortFunc(outcomes, func(a, b ComponentOutcome) int {
		return strings.Compare(a.ComponentID, b.ComponentID)
	})

	token := r.tokens.Generate()
	if err := r.stampAndAudit(outcomes, token, in.ActorID); err != nil {
		return VesselOutcome{}, err
	}

	out := VesselOutcome{
		VesselID: vesselID,
		RunToken: token,
		Outcomes: outcomes,
		Verdict:  vesselVerdict(outcomes),
	}
	r.log.Info("vessel run complete",
		"vessel", vesselID,
		"run", token,
		"components", len(outcomes),
		"safe", out.Verdict.Safe)
	return out, nil
}

// fanOut runs components concurrently. Workers never return errors: a
// component failure lands in its own outcome so siblings keep running.
func (r *Runner) fanOut(ctx context.Context, ins []ComponentInput, parents map[string]calc.ParentContext) []ComponentOutcome {
	if len(ins) == 0 {
		return nil
	}
	outcomes := make([]ComponentOutcome, len(ins))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentComponents)
	for i, ci := range ins {
		i, ci := i, ci
		g.Go(func() error {
			outcomes[i] = r.runOne(gctx, ci, parents)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// vesselVerdict compares every evaluated component's MAWP with its own
// design pressure; the lowest MAWP governs the vessel.
func vesselVerdict(outcomes []ComponentOutcome) Verdict {
	v := Verdict{Safe: true}
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		m := o.Result(calc.TypeMAWP)
		if m == nil {
			continue
		}
		if !v.Evaluated || m.Value < v.GoverningMAWP {
			v.Evaluated = true
			v.GoverningMAWP = m.Value
			v.GoverningComponent = o.ComponentID
			v.DesignPressure = o.DesignPressure
		}
		if m.Value < o.DesignPressure {
			v.Safe = false
		}
	}
	if !v.Evaluated {
		v.Safe = false
		return v
	}
	if !v.Safe {
		v.DeRateTo = v.GoverningMAWP
	}
	return v
}
