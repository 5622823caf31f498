package harness

import (
	"github.com/verity-ndt/tminus/internal/anomaly"
	"github.com/verity-ndt/tminus/internal/calc"
)

// TraceEvent is one entry in a scenario's execution trace: a stamped
// calculation result or a raised anomaly. Events are ordered by
// component ID, then by sequence within each component, with a
// component's anomalies following its results.
type TraceEvent struct {
	Type      string `json:"type"` // "result" or "anomaly"
	Component string `json:"component"`

	// Result events.
	Calc     string  `json:"calc,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Governs  string  `json:"governs,omitempty"`
	Adequate *bool   `json:"adequate,omitempty"`
	Seq      int64   `json:"seq,omitempty"`

	// Anomaly events.
	Category string `json:"category,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// Result is the outcome of one scenario execution.
type Result struct {
	Pass bool `json:"pass"`

	VesselID  string `json:"vessel_id"`
	RunToken  string `json:"run_token"`
	Safe      bool   `json:"safe"`
	Governing string `json:"governing_component,omitempty"`

	// Statuses maps component IDs to their run status: ok, degraded,
	// or failed.
	Statuses map[string]string `json:"statuses"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a passing result with empty trace.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Statuses: make(map[string]string),
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

// AddResultTrace appends a stamped calculation result to the trace.
func (r *Result) AddResultTrace(res calc.Result) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      "result",
		Component: res.ComponentID,
		Calc:      string(res.Type),
		Value:     res.Value,
		Unit:      res.Unit,
		Governs:   res.Governs,
		Adequate:  res.Adequate,
		Seq:       res.Seq,
	})
}

// AddAnomalyTrace appends a raised anomaly to the trace.
func (r *Result) AddAnomalyTrace(a anomaly.Anomaly) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      "anomaly",
		Component: a.ComponentID,
		Category:  string(a.Category),
		Severity:  string(a.Severity),
	})
}
