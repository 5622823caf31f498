package store

import (
	"context"
	"fmt"

	"github.com/verity-ndt/tminus/internal/anomaly"
	"github.com/verity-ndt/tminus/internal/audit"
	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// WriteComponent inserts a component revision.
// Uses ON CONFLICT(id, revision) DO NOTHING for idempotency - a revision,
// once stored, is never mutated; design changes arrive as new revisions.
func (s *Store) WriteComponent(ctx context.Context, c vessel.Component) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("write component: %w", err)
	}

	geometryJSON, err := marshalGeometry(c.Geometry)
	if err != nil {
		return fmt.Errorf("write component: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO components
		(id, revision, vessel_id, kind, geometry, material,
		 design_pressure_psi, design_temperature_f, joint_efficiency,
		 nominal_thickness_in, corrosion_allowance_in, install_date, mawp_note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, revision) DO NOTHING
	`,
		c.ID,
		c.Revision,
		c.VesselID,
		c.Geometry.Kind().String(),
		geometryJSON,
		c.Material,
		c.DesignPressure,
		c.DesignTemperature,
		c.JointEfficiency,
		c.NominalThickness,
		c.CorrosionAllowance,
		storeTime(c.InstallDate),
		c.MAWPNote,
	)
	if err != nil {
		return fmt.Errorf("write component: %w", err)
	}

	return nil
}

// WriteMeasurement appends a thickness survey to the log.
// Writing the exact same survey twice is a no-op; a superseding survey
// (same date, different readings) inserts a new row - events are
// append-only and never edited.
func (s *Store) WriteMeasurement(ctx context.Context, m vessel.MeasurementEvent) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("write measurement: %w", err)
	}

	readingsJSON, err := marshalReadings(m.Readings)
	if err != nil {
		return fmt.Errorf("write measurement: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO measurements
		(component_id, taken_at, readings, inspector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(component_id, taken_at, readings, inspector) DO NOTHING
	`,
		m.ComponentID,
		storeTime(m.TakenAt),
		readingsJSON,
		m.Inspector,
	)
	if err != nil {
		return fmt.Errorf("write measurement: %w", err)
	}

	return nil
}

// WriteStressTable stores a versioned allowable-stress dataset.
// A version is immutable: re-writing the identical dataset is a no-op,
// while a different dataset arriving under a stored version string is
// rejected. Calculations that recorded a table version must always be
// able to re-resolve against exactly the data they used.
func (s *Store) WriteStressTable(ctx context.Context, t *stress.Table) error {
	points := stressPointsObject(t)
	hash, err := snap.TableHash(t.Version(), points)
	if err != nil {
		return fmt.Errorf("write stress table: %w", err)
	}
	pointsJSON, err := snap.MarshalCanonical(points)
	if err != nil {
		return fmt.Errorf("write stress table: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write stress table: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO stress_tables (version, hash, points)
		VALUES (?, ?, ?)
		ON CONFLICT(version) DO NOTHING
	`, t.Version(), hash, string(pointsJSON))
	if err != nil {
		return fmt.Errorf("write stress table: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write stress table: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var existing string
		err = tx.QueryRowContext(ctx,
			`SELECT hash FROM stress_tables WHERE version = ?`, t.Version(),
		).Scan(&existing)
		if err != nil {
			return fmt.Errorf("write stress table: select existing: %w", err)
		}
		if existing != hash {
			return fmt.Errorf("stress table version %q already holds a different dataset", t.Version())
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write stress table: commit: %w", err)
	}

	return nil
}

// stressPointsObject renders a table's datasets as a snapshot object:
// material spec mapped to ordered [temperature, stress] pairs.
func stressPointsObject(t *stress.Table) snap.Object {
	obj := make(snap.Object, len(t.Materials()))
	for _, spec := range t.Materials() {
		points, _ := t.Points(spec)
		arr := make(snap.Array, len(points))
		for i, p := range points {
			arr[i] = snap.Array{snap.Float(p.TemperatureF), snap.Float(p.StressPSI)}
		}
		obj[spec] = arr
	}
	return obj
}

// WriteResult inserts a calculation result.
// Results are write-once and content-addressed: ON CONFLICT(id) DO
// NOTHING means the first stamped copy wins and identical re-runs are
// silently ignored.
//
// The result must be sealed (carry its content ID) and stamped
// (sequence, run token, computation time assigned by the pipeline).
func (s *Store) WriteResult(ctx context.Context, r calc.Result) error {
	if r.ID == "" {
		return fmt.Errorf("write result: result for %s has no content ID", r.ComponentID)
	}
	if r.Seq == 0 || r.RunToken == "" || r.ComputedAt.IsZero() {
		return fmt.Errorf("write result: result %s is not stamped", r.ID)
	}

	intermediatesJSON, err := marshalIntermediates(r.Intermediates)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	warningsJSON, err := marshalWarnings(r.Warnings)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	inputsJSON, err := marshalInputs(r.Inputs)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	nextInspection := ""
	if !r.NextInspection.IsZero() {
		nextInspection = storeTime(r.NextInspection)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results
		(id, component_id, revision, calc_type, value, unit, governs, adequate,
		 rationale, next_inspection, intermediates, warnings, code_ref, inputs,
		 engine_version, table_version, seq, run_token, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.ComponentID,
		r.Revision,
		string(r.Type),
		r.Value,
		r.Unit,
		r.Governs,
		r.Adequate,
		r.Rationale,
		nextInspection,
		intermediatesJSON,
		warningsJSON,
		r.CodeRef,
		inputsJSON,
		r.EngineVersion,
		r.TableVersion,
		r.Seq,
		r.RunToken,
		storeTime(r.ComputedAt),
	)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	return nil
}

// WriteAnomalies appends a run's findings for review.
// Idempotent per (run token, component, category, result): re-writing
// the same run's findings is a no-op and never resets review status.
func (s *Store) WriteAnomalies(ctx context.Context, runToken string, anomalies []anomaly.Anomaly) error {
	if runToken == "" {
		return fmt.Errorf("write anomalies: run token is required")
	}

	for _, a := range anomalies {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO anomalies
			(run_token, category, severity, component_id, result_id,
			 detected, expected, detail, review_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_token, component_id, category, result_id) DO NOTHING
		`,
			runToken,
			string(a.Category),
			string(a.Severity),
			a.ComponentID,
			a.ResultID,
			a.Detected,
			a.Expected,
			a.Detail,
			string(a.ReviewStatus),
		)
		if err != nil {
			return fmt.Errorf("write anomaly %s/%s: %w", a.ComponentID, a.Category, err)
		}
	}

	return nil
}

// UpdateAnomalyReview moves a stored anomaly through the review
// workflow. The finding itself never changes; only review_status does.
func (s *Store) UpdateAnomalyReview(ctx context.Context, id int64, status anomaly.ReviewStatus) error {
	if _, err := anomaly.ParseReviewStatus(string(status)); err != nil {
		return fmt.Errorf("update anomaly review: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE anomalies SET review_status = ? WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("update anomaly review: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update anomaly review: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("update anomaly review: no anomaly with id %d", id)
	}

	return nil
}

// WriteAuditEntry appends one audit record.
// Idempotent per (result, run): a re-run under a new token extends the
// trail, a replayed write of the same run is silently ignored.
//
// Note: The result referenced by ResultID must exist (foreign key
// constraint) - write results before their audit entries.
func (s *Store) WriteAuditEntry(ctx context.Context, e audit.Entry) error {
	if e.Hash == "" || e.ResultID == "" {
		return fmt.Errorf("write audit entry: entry for %s is incomplete", e.ComponentID)
	}

	intermediatesJSON, err := marshalIntermediates(e.Intermediates)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	warningsJSON, err := marshalWarnings(e.Warnings)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	inputsJSON, err := marshalInputs(e.Inputs)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log
		(hash, result_id, component_id, calc_type, inputs, engine_version,
		 table_version, code_ref, intermediates, warnings, rationale,
		 actor_id, seq, run_token, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(result_id, run_token) DO NOTHING
	`,
		e.Hash,
		e.ResultID,
		e.ComponentID,
		string(e.CalcType),
		inputsJSON,
		e.EngineVersion,
		e.TableVersion,
		e.CodeRef,
		intermediatesJSON,
		warningsJSON,
		e.Rationale,
		e.ActorID,
		e.Seq,
		e.RunToken,
		storeTime(e.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}

	return nil
}

// WriteRun atomically persists one component run: its results, its
// findings, and its audit entries in a single transaction. Every
// insert is individually idempotent, so replaying a run after a crash
// completes it without duplicates.
func (s *Store) WriteRun(
	ctx context.Context,
	runToken string,
	results []calc.Result,
	anomalies []anomaly.Anomaly,
	entries []audit.Entry,
) error {
	if runToken == "" {
		return fmt.Errorf("write run: run token is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range results {
		if r.ID == "" {
			return fmt.Errorf("write run: result for %s has no content ID", r.ComponentID)
		}
		intermediatesJSON, err := marshalIntermediates(r.Intermediates)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		warningsJSON, err := marshalWarnings(r.Warnings)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		inputsJSON, err := marshalInputs(r.Inputs)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		nextInspection := ""
		if !r.NextInspection.IsZero() {
			nextInspection = storeTime(r.NextInspection)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO results
			(id, component_id, revision, calc_type, value, unit, governs, adequate,
			 rationale, next_inspection, intermediates, warnings, code_ref, inputs,
			 engine_version, table_version, seq, run_token, computed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			r.ID, r.ComponentID, r.Revision, string(r.Type), r.Value, r.Unit,
			r.Governs, r.Adequate, r.Rationale, nextInspection,
			intermediatesJSON, warningsJSON, r.CodeRef, inputsJSON,
			r.EngineVersion, r.TableVersion, r.Seq, r.RunToken, storeTime(r.ComputedAt),
		)
		if err != nil {
			return fmt.Errorf("write run: result %s: %w", r.ID, err)
		}
	}

	for _, a := range anomalies {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO anomalies
			(run_token, category, severity, component_id, result_id,
			 detected, expected, detail, review_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_token, component_id, category, result_id) DO NOTHING
		`,
			runToken, string(a.Category), string(a.Severity), a.ComponentID,
			a.ResultID, a.Detected, a.Expected, a.Detail, string(a.ReviewStatus),
		)
		if err != nil {
			return fmt.Errorf("write run: anomaly %s/%s: %w", a.ComponentID, a.Category, err)
		}
	}

	for _, e := range entries {
		intermediatesJSON, err := marshalIntermediates(e.Intermediates)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		warningsJSON, err := marshalWarnings(e.Warnings)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		inputsJSON, err := marshalInputs(e.Inputs)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO audit_log
			(hash, result_id, component_id, calc_type, inputs, engine_version,
			 table_version, code_ref, intermediates, warnings, rationale,
			 actor_id, seq, run_token, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(result_id, run_token) DO NOTHING
		`,
			e.Hash, e.ResultID, e.ComponentID, string(e.CalcType), inputsJSON,
			e.EngineVersion, e.TableVersion, e.CodeRef, intermediatesJSON,
			warningsJSON, e.Rationale, e.ActorID, e.Seq, e.RunToken,
			storeTime(e.RecordedAt),
		)
		if err != nil {
			return fmt.Errorf("write run: audit for %s: %w", e.ResultID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}

	return nil
}
