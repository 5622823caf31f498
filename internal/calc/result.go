package calc

import (
	"fmt"
	"time"

	"github.com/verity-ndt/tminus/internal/snap"
)

// Type identifies a calculation kind. The labels are stable: they
// participate in content-addressed identity and storage.
type Type string

const (
	TypeRequiredThickness Type = "required_thickness"
	TypeMAWP              Type = "mawp"
	TypeCorrosionRate     Type = "corrosion_rate"
	TypeRemainingLife     Type = "remaining_life"
	TypeNozzleMinimum     Type = "nozzle_minimum_thickness"
	TypeReinforcement     Type = "nozzle_reinforcement"
)

// Governing-basis labels recorded on results.
const (
	// Corrosion rate bases.
	BasisShortTerm = "short_term"
	BasisLongTerm  = "long_term"
	BasisNominal   = "nominal"

	// MAWP stress directions.
	BasisHoop         = "hoop"
	BasisLongitudinal = "longitudinal"

	// Nozzle minimum-thickness criteria.
	BasisPressure      = "pressure"
	BasisPipeTolerance = "pipe_tolerance"
)

// Intermediate is a named intermediate value preserved for the audit
// trail. Order is meaningful and deterministic per calculation type.
type Intermediate struct {
	Name  string
	Value float64
	Unit  string
}

// Result is one completed calculation.
//
// ID is content-addressed: SHA-256 over the canonical input snapshot
// plus calculation type, engine version, and stress table version.
// Re-running the engine on identical inputs reproduces the identical
// ID. Seq, RunToken, and ComputedAt are execution bookkeeping stamped
// by the pipeline and deliberately excluded from identity.
type Result struct {
	ID          string
	ComponentID string
	Revision    int
	Type        Type

	// Value is the headline number in Unit.
	Value float64
	Unit  string

	// Governs names the branch or criterion that produced Value when a
	// calculation compares several ("hoop", "short_term", ...).
	Governs string

	// Adequate carries the pass/fail verdict for reinforcement
	// evaluation. nil for calculation types without one.
	Adequate *bool

	// Rationale is the mandatory human-readable selection explanation
	// for rate calculations. Prose: excluded from the hash.
	Rationale string

	// NextInspection is the projected next inspection date, set only on
	// remaining-life results.
	NextInspection time.Time

	Intermediates []Intermediate
	Warnings      []string

	// CodeRef is the governing code paragraph, e.g. "UG-27(c)(1)".
	CodeRef string

	// Inputs is the canonical snapshot the ID was computed over.
	Inputs snap.Object

	EngineVersion string
	TableVersion  string

	// Stamped by the pipeline after the compute phase.
	Seq        int64
	RunToken   string
	ComputedAt time.Time
}

// seal computes the content-addressed ID from the snapshot and version
// fields. Every constructor calls it exactly once, after the snapshot
// is complete.
func (r *Result) seal() error {
	id, err := snap.ResultID(string(r.Type), r.Inputs, r.EngineVersion, r.TableVersion)
	if err != nil {
		return fmt.Errorf("seal %s result for %s: %w", r.Type, r.ComponentID, err)
	}
	r.ID = id
	return nil
}

// Intermediate returns the named intermediate value. The second return
// is false when the calculation did not record it.
func (r Result) Intermediate(name string) (float64, bool) {
	for _, iv := range r.Intermediates {
		if iv.Name == name {
			return iv.Value, true
		}
	}
	return 0, false
}
