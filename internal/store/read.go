package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/verity-ndt/tminus/internal/anomaly"
	"github.com/verity-ndt/tminus/internal/audit"
	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// ReadComponent retrieves one component revision.
// Returns sql.ErrNoRows if the revision does not exist.
func (s *Store) ReadComponent(ctx context.Context, id string, revision int) (vessel.Component, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, revision, vessel_id, kind, geometry, material,
		       design_pressure_psi, design_temperature_f, joint_efficiency,
		       nominal_thickness_in, corrosion_allowance_in, install_date, mawp_note
		FROM components
		WHERE id = ? AND revision = ?
	`, id, revision)
	return scanComponent(row)
}

// ReadLatestComponent retrieves the highest revision of a component.
// Returns sql.ErrNoRows if the component is unknown.
func (s *Store) ReadLatestComponent(ctx context.Context, id string) (vessel.Component, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, revision, vessel_id, kind, geometry, material,
		       design_pressure_psi, design_temperature_f, joint_efficiency,
		       nominal_thickness_in, corrosion_allowance_in, install_date, mawp_note
		FROM components
		WHERE id = ?
		ORDER BY revision DESC
		LIMIT 1
	`, id)
	return scanComponent(row)
}

// ListComponents returns the latest revision of every component on a
// vessel, ordered by component ID.
func (s *Store) ListComponents(ctx context.Context, vesselID string) ([]vessel.Component, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.revision, c.vessel_id, c.kind, c.geometry, c.material,
		       c.design_pressure_psi, c.design_temperature_f, c.joint_efficiency,
		       c.nominal_thickness_in, c.corrosion_allowance_in, c.install_date, c.mawp_note
		FROM components c
		JOIN (
			SELECT id, MAX(revision) AS revision
			FROM components
			WHERE vessel_id = ?
			GROUP BY id
		) latest ON c.id = latest.id AND c.revision = latest.revision
		ORDER BY c.id COLLATE BINARY ASC
	`, vesselID)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()

	components := []vessel.Component{}
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("list components: %w", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}

	return components, nil
}

// rowScanner abstracts over *sql.Row and *sql.Rows for shared scan
// helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanComponent(row rowScanner) (vessel.Component, error) {
	var (
		c            vessel.Component
		kind         string
		geometryJSON string
		efficiency   sql.NullFloat64
		installDate  string
	)
	err := row.Scan(
		&c.ID, &c.Revision, &c.VesselID, &kind, &geometryJSON, &c.Material,
		&c.DesignPressure, &c.DesignTemperature, &efficiency,
		&c.NominalThickness, &c.CorrosionAllowance, &installDate, &c.MAWPNote,
	)
	if err != nil {
		return vessel.Component{}, err
	}

	c.Geometry, err = unmarshalGeometry(kind, geometryJSON)
	if err != nil {
		return vessel.Component{}, fmt.Errorf("component %s: %w", c.ID, err)
	}
	if efficiency.Valid {
		e := efficiency.Float64
		c.JointEfficiency = &e
	}
	c.InstallDate, err = parseTime(installDate)
	if err != nil {
		return vessel.Component{}, fmt.Errorf("component %s: install date: %w", c.ID, err)
	}

	return c, nil
}

// ReadMeasurements returns a component's thickness surveys oldest
// first. The calculation pipeline re-sorts defensively, so the order
// here is a convenience for display, not a correctness guarantee.
func (s *Store) ReadMeasurements(ctx context.Context, componentID string) ([]vessel.MeasurementEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT component_id, taken_at, readings, inspector
		FROM measurements
		WHERE component_id = ?
		ORDER BY taken_at ASC, id ASC
	`, componentID)
	if err != nil {
		return nil, fmt.Errorf("read measurements: %w", err)
	}
	defer rows.Close()

	events := []vessel.MeasurementEvent{}
	for rows.Next() {
		var (
			m        vessel.MeasurementEvent
			takenAt  string
			readings string
		)
		if err := rows.Scan(&m.ComponentID, &takenAt, &readings, &m.Inspector); err != nil {
			return nil, fmt.Errorf("read measurements: %w", err)
		}
		m.TakenAt, err = parseTime(takenAt)
		if err != nil {
			return nil, fmt.Errorf("read measurements: %w", err)
		}
		m.Readings, err = unmarshalReadings(readings)
		if err != nil {
			return nil, fmt.Errorf("read measurements: %w", err)
		}
		events = append(events, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read measurements: %w", err)
	}

	return events, nil
}

// ReadStressTable reconstructs a stored allowable-stress table.
// Returns sql.ErrNoRows if the version is unknown.
func (s *Store) ReadStressTable(ctx context.Context, version string) (*stress.Table, error) {
	var pointsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT points FROM stress_tables WHERE version = ?`, version,
	).Scan(&pointsJSON)
	if err != nil {
		return nil, err
	}

	var raw map[string][][2]float64
	if err := json.Unmarshal([]byte(pointsJSON), &raw); err != nil {
		return nil, fmt.Errorf("read stress table %s: %w", version, err)
	}

	materials := make(map[string][]stress.Point, len(raw))
	for spec, pairs := range raw {
		points := make([]stress.Point, len(pairs))
		for i, pair := range pairs {
			points[i] = stress.Point{TemperatureF: pair[0], StressPSI: pair[1]}
		}
		materials[spec] = points
	}

	t, err := stress.NewTable(version, materials)
	if err != nil {
		return nil, fmt.Errorf("read stress table %s: %w", version, err)
	}
	return t, nil
}

// ListStressVersions returns the stored table versions in lexical
// order.
func (s *Store) ListStressVersions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version FROM stress_tables ORDER BY version COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("list stress versions: %w", err)
	}
	defer rows.Close()

	versions := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("list stress versions: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stress versions: %w", err)
	}

	return versions, nil
}

const resultColumns = `
	id, component_id, revision, calc_type, value, unit, governs, adequate,
	rationale, next_inspection, intermediates, warnings, code_ref, inputs,
	engine_version, table_version, seq, run_token, computed_at`

// ReadResult retrieves one result by content ID.
// Returns sql.ErrNoRows if no result carries the ID.
func (s *Store) ReadResult(ctx context.Context, id string) (calc.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT`+resultColumns+` FROM results WHERE id = ?`, id)
	return scanResult(row)
}

// ReadResults returns every stored result for a component.
// Ordered by seq ASC, id COLLATE BINARY ASC for deterministic replay.
func (s *Store) ReadResults(ctx context.Context, componentID string) ([]calc.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+resultColumns+` FROM results WHERE component_id = ?
		 ORDER BY seq ASC, id COLLATE BINARY ASC`, componentID)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return collectResults(rows)
}

// ReadResultsByRun returns every result stamped under one run token.
// Ordered by seq ASC, id COLLATE BINARY ASC for deterministic replay.
func (s *Store) ReadResultsByRun(ctx context.Context, runToken string) ([]calc.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+resultColumns+` FROM results WHERE run_token = ?
		 ORDER BY seq ASC, id COLLATE BINARY ASC`, runToken)
	if err != nil {
		return nil, fmt.Errorf("read results by run: %w", err)
	}
	return collectResults(rows)
}

func collectResults(rows *sql.Rows) ([]calc.Result, error) {
	defer rows.Close()

	results := []calc.Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}

func scanResult(row rowScanner) (calc.Result, error) {
	var (
		r              calc.Result
		calcType       string
		adequate       sql.NullInt64
		nextInspection string
		intermediates  string
		warnings       string
		inputs         string
		computedAt     string
	)
	err := row.Scan(
		&r.ID, &r.ComponentID, &r.Revision, &calcType, &r.Value, &r.Unit,
		&r.Governs, &adequate, &r.Rationale, &nextInspection,
		&intermediates, &warnings, &r.CodeRef, &inputs,
		&r.EngineVersion, &r.TableVersion, &r.Seq, &r.RunToken, &computedAt,
	)
	if err != nil {
		return calc.Result{}, err
	}

	r.Type = calc.Type(calcType)
	if adequate.Valid {
		b := adequate.Int64 != 0
		r.Adequate = &b
	}
	if nextInspection != "" {
		r.NextInspection, err = parseTime(nextInspection)
		if err != nil {
			return calc.Result{}, fmt.Errorf("result %s: next inspection: %w", r.ID, err)
		}
	}
	r.Intermediates, err = unmarshalIntermediates(intermediates)
	if err != nil {
		return calc.Result{}, fmt.Errorf("result %s: %w", r.ID, err)
	}
	r.Warnings, err = unmarshalWarnings(warnings)
	if err != nil {
		return calc.Result{}, fmt.Errorf("result %s: %w", r.ID, err)
	}
	r.Inputs, err = unmarshalInputs(inputs)
	if err != nil {
		return calc.Result{}, fmt.Errorf("result %s: %w", r.ID, err)
	}
	r.ComputedAt, err = parseTime(computedAt)
	if err != nil {
		return calc.Result{}, fmt.Errorf("result %s: computed at: %w", r.ID, err)
	}

	return r, nil
}

// StoredAnomaly pairs a persisted finding with its row identity so
// review updates can address it.
type StoredAnomaly struct {
	ID       int64
	RunToken string
	anomaly.Anomaly
}

// ReadAnomalies returns a run's findings in detection order.
func (s *Store) ReadAnomalies(ctx context.Context, runToken string) ([]StoredAnomaly, error) {
	return s.queryAnomalies(ctx, `
		SELECT id, run_token, category, severity, component_id, result_id,
		       detected, expected, detail, review_status
		FROM anomalies
		WHERE run_token = ?
		ORDER BY id ASC
	`, runToken)
}

// ReadPendingAnomalies returns every finding still awaiting review,
// across all runs, oldest first.
func (s *Store) ReadPendingAnomalies(ctx context.Context) ([]StoredAnomaly, error) {
	return s.queryAnomalies(ctx, `
		SELECT id, run_token, category, severity, component_id, result_id,
		       detected, expected, detail, review_status
		FROM anomalies
		WHERE review_status = ?
		ORDER BY id ASC
	`, string(anomaly.ReviewPending))
}

func (s *Store) queryAnomalies(ctx context.Context, query string, args ...any) ([]StoredAnomaly, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read anomalies: %w", err)
	}
	defer rows.Close()

	anomalies := []StoredAnomaly{}
	for rows.Next() {
		var (
			a        StoredAnomaly
			category string
			severity string
			status   string
		)
		err := rows.Scan(
			&a.ID, &a.RunToken, &category, &severity, &a.ComponentID,
			&a.ResultID, &a.Detected, &a.Expected, &a.Detail, &status,
		)
		if err != nil {
			return nil, fmt.Errorf("read anomalies: %w", err)
		}
		a.Category = anomaly.Category(category)
		a.Severity = anomaly.Severity(severity)
		a.ReviewStatus = anomaly.ReviewStatus(status)
		anomalies = append(anomalies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read anomalies: %w", err)
	}

	return anomalies, nil
}

const auditColumns = `
	hash, result_id, component_id, calc_type, inputs, engine_version,
	table_version, code_ref, intermediates, warnings, rationale,
	actor_id, seq, run_token, recorded_at`

// ReadAuditTrail returns a component's audit entries.
// Ordered by seq ASC, result_id COLLATE BINARY ASC for deterministic
// replay.
func (s *Store) ReadAuditTrail(ctx context.Context, componentID string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+auditColumns+` FROM audit_log WHERE component_id = ?
		 ORDER BY seq ASC, result_id COLLATE BINARY ASC`, componentID)
	if err != nil {
		return nil, fmt.Errorf("read audit trail: %w", err)
	}
	return collectAuditEntries(rows)
}

// ReadAuditByRun returns every audit entry recorded under one run
// token.
// Ordered by seq ASC, result_id COLLATE BINARY ASC for deterministic
// replay.
func (s *Store) ReadAuditByRun(ctx context.Context, runToken string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+auditColumns+` FROM audit_log WHERE run_token = ?
		 ORDER BY seq ASC, result_id COLLATE BINARY ASC`, runToken)
	if err != nil {
		return nil, fmt.Errorf("read audit by run: %w", err)
	}
	return collectAuditEntries(rows)
}

// ReadAuditByResult returns every audit entry recorded for one result
// across runs, oldest first.
func (s *Store) ReadAuditByResult(ctx context.Context, resultID string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+auditColumns+` FROM audit_log WHERE result_id = ?
		 ORDER BY seq ASC`, resultID)
	if err != nil {
		return nil, fmt.Errorf("read audit by result: %w", err)
	}
	return collectAuditEntries(rows)
}

func collectAuditEntries(rows *sql.Rows) ([]audit.Entry, error) {
	defer rows.Close()

	entries := []audit.Entry{}
	for rows.Next() {
		var (
			e             audit.Entry
			calcType      string
			inputs        string
			intermediates string
			warnings      string
			recordedAt    string
		)
		err := rows.Scan(
			&e.Hash, &e.ResultID, &e.ComponentID, &calcType, &inputs,
			&e.EngineVersion, &e.TableVersion, &e.CodeRef, &intermediates,
			&warnings, &e.Rationale, &e.ActorID, &e.Seq, &e.RunToken, &recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CalcType = calc.Type(calcType)
		e.Inputs, err = unmarshalInputs(inputs)
		if err != nil {
			return nil, fmt.Errorf("audit entry %s: %w", e.ResultID, err)
		}
		e.Intermediates, err = unmarshalIntermediates(intermediates)
		if err != nil {
			return nil, fmt.Errorf("audit entry %s: %w", e.ResultID, err)
		}
		e.Warnings, err = unmarshalWarnings(warnings)
		if err != nil {
			return nil, fmt.Errorf("audit entry %s: %w", e.ResultID, err)
		}
		e.RecordedAt, err = parseTime(recordedAt)
		if err != nil {
			return nil, fmt.Errorf("audit entry %s: recorded at: %w", e.ResultID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}
