package store

import (
	"context"
	"fmt"

	"github.com/verity-ndt/tminus/internal/audit"
	"github.com/verity-ndt/tminus/internal/calc"
)

// RunState is the persisted footprint of one calculation run,
// reconstructed for integrity analysis.
type RunState struct {
	RunToken     string
	Results      []calc.Result
	Anomalies    []StoredAnomaly
	AuditEntries []audit.Entry

	// LastSeq is the highest sequence number stamped in this run.
	LastSeq int64
	// Unaudited counts results written under this run with no matching
	// audit entry. Non-zero indicates an interrupted persist; replaying
	// the run completes the trail without duplicates.
	Unaudited int
	// IsComplete reports a non-empty run where every result is audited.
	IsComplete bool
}

// ReadRunState reconstructs the full persisted state of a run.
func (s *Store) ReadRunState(ctx context.Context, runToken string) (RunState, error) {
	state := RunState{RunToken: runToken}

	results, err := s.ReadResultsByRun(ctx, runToken)
	if err != nil {
		return state, fmt.Errorf("read run state: %w", err)
	}
	state.Results = results

	entries, err := s.ReadAuditByRun(ctx, runToken)
	if err != nil {
		return state, fmt.Errorf("read run state: %w", err)
	}
	state.AuditEntries = entries

	anomalies, err := s.ReadAnomalies(ctx, runToken)
	if err != nil {
		return state, fmt.Errorf("read run state: %w", err)
	}
	state.Anomalies = anomalies

	audited := make(map[string]bool, len(entries))
	for _, e := range entries {
		audited[e.ResultID] = true
		if e.Seq > state.LastSeq {
			state.LastSeq = e.Seq
		}
	}
	for _, r := range results {
		if r.Seq > state.LastSeq {
			state.LastSeq = r.Seq
		}
		if !audited[r.ID] {
			state.Unaudited++
		}
	}

	state.IsComplete = len(results) > 0 && state.Unaudited == 0

	return state, nil
}

// FindIncompleteRuns returns the tokens of runs whose results lack
// audit entries, ordered by token. These are candidates for replay:
// every write in a run is idempotent, so re-persisting the run
// completes the trail.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT r.run_token
		FROM results r
		LEFT JOIN audit_log a
		  ON r.id = a.result_id AND r.run_token = a.run_token
		WHERE a.id IS NULL
		ORDER BY r.run_token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("find incomplete runs: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
	}

	return tokens, nil
}

// ListAuditedComponents returns the IDs of every component with at
// least one audit entry, ordered by ID.
func (s *Store) ListAuditedComponents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT component_id
		FROM audit_log
		ORDER BY component_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list audited components: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list audited components: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audited components: %w", err)
	}

	return ids, nil
}

// VerifyFinding is one audit entry that failed re-verification.
type VerifyFinding struct {
	ResultID string
	Err      error
}

// VerifyAuditTrail recomputes the hash of every audit entry for a
// component against its stored snapshot. A non-empty return means the
// stored trail no longer matches what was recorded; an empty return on
// a non-empty trail means every entry still verifies.
func (s *Store) VerifyAuditTrail(ctx context.Context, componentID string) ([]VerifyFinding, error) {
	entries, err := s.ReadAuditTrail(ctx, componentID)
	if err != nil {
		return nil, fmt.Errorf("verify audit trail: %w", err)
	}

	findings := []VerifyFinding{}
	for _, e := range entries {
		if err := audit.Verify(e); err != nil {
			findings = append(findings, VerifyFinding{ResultID: e.ResultID, Err: err})
		}
	}

	return findings, nil
}
