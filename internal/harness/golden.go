package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/verity-ndt/tminus/internal/snap"
)

// TraceSnapshot is the canonical-JSON view of one scenario run used
// for golden comparison. It carries the verdict and the full ordered
// trace; wall-clock stamps are excluded so snapshots stay stable.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	VesselID     string       `json:"vessel_id"`
	RunToken     string       `json:"run_token,omitempty"`
	Safe         bool         `json:"safe"`
	Governing    string       `json:"governing_component,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot into the plain map form
// snap.MarshalCanonical accepts. Optional fields are included only
// when set, matching the omitempty JSON shape.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type":      event.Type,
			"component": event.Component,
		}
		if event.Calc != "" {
			eventMap["calc"] = event.Calc
			eventMap["value"] = event.Value
			eventMap["unit"] = event.Unit
		}
		if event.Governs != "" {
			eventMap["governs"] = event.Governs
		}
		if event.Adequate != nil {
			eventMap["adequate"] = *event.Adequate
		}
		if event.Seq > 0 {
			eventMap["seq"] = event.Seq
		}
		if event.Category != "" {
			eventMap["category"] = event.Category
			eventMap["severity"] = event.Severity
		}
		traceList[i] = eventMap
	}

	m := map[string]any{
		"scenario_name": s.ScenarioName,
		"vessel_id":     s.VesselID,
		"safe":          s.Safe,
		"trace":         traceList,
	}
	if s.RunToken != "" {
		m["run_token"] = s.RunToken
	}
	if s.Governing != "" {
		m["governing_component"] = s.Governing
	}
	return m
}

// RunWithGolden executes a scenario and compares its canonical trace
// against testdata/golden/<scenario name>.golden.
//
// Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-executed result's canonical trace
// against the named golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		VesselID:     result.VesselID,
		RunToken:     result.RunToken,
		Safe:         result.Safe,
		Governing:    result.Governing,
		Trace:        result.Trace,
	}
	traceJSON, err := snap.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
