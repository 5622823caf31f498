package audit

import (
	"fmt"
	"time"

	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/snap"
)

// Entry is one audit record for one calculation result.
//
// Hash is computed over the hashed fields (CalcType, Inputs,
// EngineVersion, TableVersion) under the audit hash domain; it differs
// from the result's own ID, which uses the result domain over the same
// payload. Everything else is context stored for review.
type Entry struct {
	Hash string

	ResultID    string
	ComponentID string
	CalcType    calc.Type

	Inputs        snap.Object
	EngineVersion string
	TableVersion  string

	CodeRef       string
	Intermediates []calc.Intermediate
	Warnings      []string
	Rationale     string

	ActorID    string
	Seq        int64
	RunToken   string
	RecordedAt time.Time
}

// Record builds the audit entry for a completed result. The result
// must be sealed (carry its content ID) and the actor performing or
// triggering the calculation must be named; anonymous audit records
// are not allowed.
func Record(r calc.Result, actorID string, at time.Time) (Entry, error) {
	if r.ID == "" {
		return Entry{}, fmt.Errorf("audit record: result for %s has no content ID", r.ComponentID)
	}
	if actorID == "" {
		return Entry{}, fmt.Errorf("audit record: actor id is required for result %s", r.ID)
	}
	if at.IsZero() {
		return Entry{}, fmt.Errorf("audit record: timestamp is required for result %s", r.ID)
	}

	hash, err := snap.AuditHash(string(r.Type), r.Inputs, r.EngineVersion, r.TableVersion)
	if err != nil {
		return Entry{}, fmt.Errorf("audit record: hashing result %s: %w", r.ID, err)
	}

	return Entry{
		Hash:          hash,
		ResultID:      r.ID,
		ComponentID:   r.ComponentID,
		CalcType:      r.Type,
		Inputs:        r.Inputs,
		EngineVersion: r.EngineVersion,
		TableVersion:  r.TableVersion,
		CodeRef:       r.CodeRef,
		Intermediates: r.Intermediates,
		Warnings:      r.Warnings,
		Rationale:     r.Rationale,
		ActorID:       actorID,
		Seq:           r.Seq,
		RunToken:      r.RunToken,
		RecordedAt:    at.UTC(),
	}, nil
}

// Verify recomputes the entry's hash from its stored fields. A nil
// return means the entry is intact; a mismatch returns IntegrityError
// and must never be swallowed.
func Verify(e Entry) error {
	want, err := snap.AuditHash(string(e.CalcType), e.Inputs, e.EngineVersion, e.TableVersion)
	if err != nil {
		return fmt.Errorf("audit verify: rehashing entry for result %s: %w", e.ResultID, err)
	}
	if want != e.Hash {
		return &IntegrityError{
			ResultID:     e.ResultID,
			ComponentID:  e.ComponentID,
			StoredHash:   e.Hash,
			ComputedHash: want,
		}
	}
	return nil
}
