package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/verity-ndt/tminus/internal/anomaly"
	"github.com/verity-ndt/tminus/internal/audit"
	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/compiler"
	"github.com/verity-ndt/tminus/internal/pipeline"
	"github.com/verity-ndt/tminus/internal/store"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/testutil"
)

// harnessEpoch is the frozen wall-clock instant every scenario runs at.
// Stamped timestamps never appear in traces, but a fixed instant keeps
// the persisted rows reproducible too.
var harnessEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes one scenario end to end:
//
//  1. open a fresh in-memory database and load the stress table
//  2. compile and validate the vessel definition, import its
//     components and surveys
//  3. run the full calculation chain under a frozen clock and the
//     scenario's fixed run token
//  4. persist the run and rebuild the execution trace
//  5. evaluate the expect block and every assertion
//
// The error return covers harness-level failures (unreadable files,
// invalid definitions, database errors). Expectation and assertion
// failures land in Result.Errors with Pass set to false.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	defer st.Close()

	table, err := scenarioTable(scenario)
	if err != nil {
		return nil, err
	}
	if err := st.WriteStressTable(ctx, table); err != nil {
		return nil, fmt.Errorf("store stress table: %w", err)
	}

	cfg := calc.DefaultConfig()
	if scenario.Config != "" {
		cfg, err = calc.LoadConfig(scenario.Config)
		if err != nil {
			return nil, fmt.Errorf("config overlay: %w", err)
		}
	}

	def, err := loadDefinition(scenario.Definition)
	if err != nil {
		return nil, err
	}
	if verrs := compiler.Validate(def); len(verrs) > 0 {
		return nil, fmt.Errorf("definition %s rejected: %s", scenario.Definition, verrs[0].Error())
	}

	for _, c := range def.Components {
		if err := st.WriteComponent(ctx, c); err != nil {
			return nil, fmt.Errorf("import component %s: %w", c.ID, err)
		}
	}
	for _, m := range def.Surveys {
		if err := st.WriteMeasurement(ctx, m); err != nil {
			return nil, fmt.Errorf("import survey for %s: %w", m.ComponentID, err)
		}
	}

	clock := testutil.NewClock(harnessEpoch)
	runner, err := pipeline.New(table, cfg,
		pipeline.WithNow(clock.Now),
		pipeline.WithTokenGenerator(testutil.NewFixedToken(scenario.RunToken)),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	inputs := make([]pipeline.ComponentInput, 0, len(def.Components))
	for _, c := range def.Components {
		history, err := st.ReadMeasurements(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("read measurements for %s: %w", c.ID, err)
		}
		inputs = append(inputs, pipeline.ComponentInput{Component: c, Measurements: history})
	}

	actor := scenario.Actor
	if actor == "" {
		actor = "harness"
	}

	out, err := runner.RunVessel(ctx, pipeline.VesselInput{Components: inputs, ActorID: actor})
	if err != nil {
		return nil, fmt.Errorf("vessel run: %w", err)
	}

	var (
		results []calc.Result
		raised  []anomaly.Anomaly
		entries []audit.Entry
	)
	for _, o := range out.Outcomes {
		results = append(results, o.Results...)
		raised = append(raised, o.Anomalies...)
		entries = append(entries, o.Audit...)
	}
	if err := st.WriteRun(ctx, out.RunToken, results, raised, entries); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}

	result := NewResult()
	result.VesselID = out.VesselID
	result.RunToken = out.RunToken
	result.Safe = out.Verdict.Safe
	result.Governing = out.Verdict.GoverningComponent
	for _, o := range out.Outcomes {
		result.Statuses[o.ComponentID] = componentStatus(o)
		for _, res := range o.Results {
			result.AddResultTrace(res)
		}
		for _, a := range o.Anomalies {
			result.AddAnomalyTrace(a)
		}
	}

	evaluateExpect(result, scenario.Expect)

	actx := &AssertionContext{Ctx: ctx, Store: st}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// componentStatus grades one outcome the way reports do: a run error
// fails the component, warnings degrade it, anything else is ok.
func componentStatus(o pipeline.ComponentOutcome) string {
	switch {
	case o.Err != nil:
		return "failed"
	case len(o.Warnings) > 0:
		return "degraded"
	default:
		return "ok"
	}
}

// scenarioTable resolves the stress table a scenario runs against.
func scenarioTable(s *Scenario) (*stress.Table, error) {
	if s.StressTable != "" {
		table, err := stress.LoadFile(s.StressTable)
		if err != nil {
			return nil, fmt.Errorf("load stress table: %w", err)
		}
		return table, nil
	}
	table, err := stress.Default()
	if err != nil {
		return nil, fmt.Errorf("load default stress table: %w", err)
	}
	return table, nil
}

// loadDefinition compiles one CUE vessel definition file.
func loadDefinition(path string) (*compiler.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	cctx := cuecontext.New()
	v := cctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	vesselVal := v.LookupPath(cue.ParsePath("vessel"))
	if !vesselVal.Exists() {
		return nil, fmt.Errorf("%s has no vessel block", path)
	}
	def, err := compiler.CompileVessel(vesselVal)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return def, nil
}

// evaluateExpect checks the scenario's expect block against the
// verdict and per-component statuses. Component checks run in sorted
// ID order so failure messages are deterministic.
func evaluateExpect(result *Result, expect *ExpectClause) {
	if expect == nil {
		return
	}
	if expect.Safe != nil && *expect.Safe != result.Safe {
		result.AddError(fmt.Sprintf("expected safe=%v, got safe=%v", *expect.Safe, result.Safe))
	}
	if expect.Governing != "" && expect.Governing != result.Governing {
		result.AddError(fmt.Sprintf("expected governing component %s, got %q", expect.Governing, result.Governing))
	}

	ids := make([]string, 0, len(expect.Components))
	for id := range expect.Components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		want := expect.Components[id]
		got, ok := result.Statuses[id]
		if !ok {
			result.AddError(fmt.Sprintf("expected component %s in the run; not evaluated", id))
			continue
		}
		if got != want {
			result.AddError(fmt.Sprintf("component %s: expected status %s, got %s", id, want, got))
		}
	}
}
