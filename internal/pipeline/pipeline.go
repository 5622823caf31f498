package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verity-ndt/tminus/internal/anomaly"
	"github.com/verity-ndt/tminus/internal/audit"
	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// ComponentInput is one component and its measurement history. The
// history may arrive in any order; the runner sorts it by measurement
// date.
type ComponentInput struct {
	Component    vessel.Component
	Measurements []vessel.MeasurementEvent
}

// ComponentOutcome is everything one component run produced. Err is
// set when the run failed outright; a degraded run (missing history)
// still succeeds with fewer results.
type ComponentOutcome struct {
	ComponentID    string
	DesignPressure float64

	// Actual is the governing thickness the run evaluated: the minimum
	// reading of the latest measurement, or nominal thickness when no
	// measurements exist.
	Actual float64

	Results   []calc.Result
	Anomalies []anomaly.Anomaly
	Audit     []audit.Entry

	// Warnings are run-level notes: degraded history, material
	// fallback, skipped evaluations.
	Warnings []string

	Err error
}

// Result returns the outcome's result of the given type, or nil when
// that calculation was not produced.
func (o ComponentOutcome) Result(t calc.Type) *calc.Result {
	for i := range o.Results {
		if o.Results[i].Type == t {
			return &o.Results[i]
		}
	}
	return nil
}

// Runner executes calculation runs against one stress table and one
// engine configuration.
type Runner struct {
	table  *stress.Table
	cfg    calc.Config
	clock  *Clock
	tokens TokenGenerator
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces the sequence clock, e.g. to resume numbering
// from the highest persisted seq.
func WithClock(c *Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithTokenGenerator replaces the run token source. Tests use fixed
// generators for byte-identical runs.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(r *Runner) { r.tokens = g }
}

// WithNow replaces the wall-clock source stamped on results and audit
// entries.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// New builds a Runner. The stress table is required and the
// configuration is validated once here; calculators trust it after
// that.
func New(table *stress.Table, cfg calc.Config, opts ...Option) (*Runner, error) {
	if table == nil {
		return nil, fmt.Errorf("pipeline: stress table is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	r := &Runner{
		table:  table,
		cfg:    cfg,
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunComponent runs the full calculation chain for a single component.
// Nozzle reinforcement needs the parent component in the same run, so
// a solo nozzle run skips it with a warning; use RunVessel for the
// complete nozzle evaluation.
func (r *Runner) RunComponent(ctx context.Context, in ComponentInput, actorID string) (ComponentOutcome, error) {
	if actorID == "" {
		return ComponentOutcome{}, fmt.Errorf("pipeline: actor id is required")
	}

	out := r.runOne(ctx, in, nil)
	if out.Err != nil {
		return out, out.Err
	}

	token := r.tokens.Generate()
	outcomes := []ComponentOutcome{out}
	if err := r.stampAndAudit(outcomes, token, actorID); err != nil {
		return outcomes[0], err
	}
	return outcomes[0], nil
}

// stampAndAudit assigns sequence numbers, the run token, and the
// computation timestamp to every result, then records audit entries.
// Called exactly once per run, single-threaded, after outcome order is
// fixed: the stamps are execution bookkeeping and must not depend on
// scheduling.
func (r *Runner) stampAndAudit(outcomes []ComponentOutcome, token, actorID string) error {
	at := r.now().UTC()
	for i := range outcomes {
		o := &outcomes[i]
		if o.Err != nil {
			continue
		}
		for j := range o.Results {
			res := &o.Results[j]
			res.Seq = r.clock.Next()
			res.RunToken = token
			res.ComputedAt = at

			entry, err := audit.Record(*res, actorID, at)
			if err != nil {
				return fmt.Errorf("pipeline: audit for %s/%s: %w", o.ComponentID, res.Type, err)
			}
			o.Audit = append(o.Audit, entry)
		}
	}
	return nil
}
