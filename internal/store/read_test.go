package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/verity-ndt/tminus/internal/anomaly"
	"github.com/verity-ndt/tminus/internal/audit"
	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// Component reads

func TestReadComponent_RoundTripShell(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := createTestShell("V-101-S1", 1)

	if err := s.WriteComponent(ctx, c); err != nil {
		t.Fatalf("WriteComponent() failed: %v", err)
	}

	got, err := s.ReadComponent(ctx, "V-101-S1", 1)
	if err != nil {
		t.Fatalf("ReadComponent() failed: %v", err)
	}

	if got.ID != c.ID || got.VesselID != c.VesselID || got.Revision != c.Revision {
		t.Errorf("identity = (%q, %q, %d), want (%q, %q, %d)",
			got.ID, got.VesselID, got.Revision, c.ID, c.VesselID, c.Revision)
	}
	shell, ok := got.Geometry.(vessel.Shell)
	if !ok {
		t.Fatalf("geometry type = %T, want vessel.Shell", got.Geometry)
	}
	if shell.InsideRadius != 35.375 {
		t.Errorf("inside radius = %v, want 35.375", shell.InsideRadius)
	}
	if got.Material != c.Material {
		t.Errorf("material = %q, want %q", got.Material, c.Material)
	}
	if got.DesignPressure != c.DesignPressure || got.DesignTemperature != c.DesignTemperature {
		t.Errorf("design conditions = (%v, %v), want (%v, %v)",
			got.DesignPressure, got.DesignTemperature, c.DesignPressure, c.DesignTemperature)
	}
	if got.JointEfficiency == nil || *got.JointEfficiency != 1.0 {
		t.Errorf("joint efficiency = %v, want 1.0", got.JointEfficiency)
	}
	if got.NominalThickness != c.NominalThickness || got.CorrosionAllowance != c.CorrosionAllowance {
		t.Errorf("thickness fields = (%v, %v), want (%v, %v)",
			got.NominalThickness, got.CorrosionAllowance, c.NominalThickness, c.CorrosionAllowance)
	}
	if !got.InstallDate.Equal(c.InstallDate) {
		t.Errorf("install date = %v, want %v", got.InstallDate, c.InstallDate)
	}
}

func TestReadComponent_RoundTripNozzleOverride(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := createTestNozzle("V-101-N2")

	if err := s.WriteComponent(ctx, c); err != nil {
		t.Fatalf("WriteComponent() failed: %v", err)
	}

	got, err := s.ReadComponent(ctx, "V-101-N2", 1)
	if err != nil {
		t.Fatalf("ReadComponent() failed: %v", err)
	}

	nozzle, ok := got.Geometry.(vessel.Nozzle)
	if !ok {
		t.Fatalf("geometry type = %T, want vessel.Nozzle", got.Geometry)
	}
	if nozzle.OutsideDiameter != 6.625 || nozzle.NominalWall != 0.280 {
		t.Errorf("nozzle dims = (%v, %v), want (6.625, 0.280)", nozzle.OutsideDiameter, nozzle.NominalWall)
	}
	if nozzle.Parent != "V-101-S1" {
		t.Errorf("parent = %q, want V-101-S1", nozzle.Parent)
	}
	if nozzle.ToleranceOverride == nil || *nozzle.ToleranceOverride != 0.10 {
		t.Errorf("tolerance override = %v, want 0.10", nozzle.ToleranceOverride)
	}
	// Nozzle fixture carries no efficiency: NULL must read back as nil.
	if got.JointEfficiency != nil {
		t.Errorf("joint efficiency = %v, want nil", got.JointEfficiency)
	}
}

func TestReadComponent_RoundTripHeads(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	heads := []vessel.Geometry{
		vessel.EllipsoidalHead{InsideDiameter: 70.75},
		vessel.TorisphericalHead{CrownRadius: 72, KnuckleRadius: 4.375},
		vessel.HemisphericalHead{InsideRadius: 35.375},
	}
	for i, g := range heads {
		c := createTestShell("V-101-H1", i+1)
		c.Geometry = g
		if err := s.WriteComponent(ctx, c); err != nil {
			t.Fatalf("WriteComponent() rev %d failed: %v", i+1, err)
		}

		got, err := s.ReadComponent(ctx, "V-101-H1", i+1)
		if err != nil {
			t.Fatalf("ReadComponent() rev %d failed: %v", i+1, err)
		}
		if got.Geometry != g {
			t.Errorf("rev %d geometry = %+v, want %+v", i+1, got.Geometry, g)
		}
	}
}

func TestReadComponent_MissingIsNoRows(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadComponent(context.Background(), "V-999-S1", 1)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestReadLatestComponent_PicksHighestRevision(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteComponent(ctx, createTestShell("V-101-S1", 1)); err != nil {
		t.Fatalf("WriteComponent() rev 1 failed: %v", err)
	}
	rev3 := createTestShell("V-101-S1", 3)
	rev3.DesignPressure = 225
	if err := s.WriteComponent(ctx, rev3); err != nil {
		t.Fatalf("WriteComponent() rev 3 failed: %v", err)
	}

	got, err := s.ReadLatestComponent(ctx, "V-101-S1")
	if err != nil {
		t.Fatalf("ReadLatestComponent() failed: %v", err)
	}
	if got.Revision != 3 {
		t.Errorf("revision = %d, want 3", got.Revision)
	}
	if got.DesignPressure != 225 {
		t.Errorf("design pressure = %v, want 225", got.DesignPressure)
	}
}

func TestListComponents_LatestRevisionsOrdered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteComponent(ctx, createTestShell("V-101-S2", 1)); err != nil {
		t.Fatalf("WriteComponent() failed: %v", err)
	}
	if err := s.WriteComponent(ctx, createTestShell("V-101-S1", 1)); err != nil {
		t.Fatalf("WriteComponent() failed: %v", err)
	}
	rev2 := createTestShell("V-101-S1", 2)
	if err := s.WriteComponent(ctx, rev2); err != nil {
		t.Fatalf("WriteComponent() failed: %v", err)
	}
	if err := s.WriteComponent(ctx, createTestNozzle("V-101-N1")); err != nil {
		t.Fatalf("WriteComponent() failed: %v", err)
	}
	// A different vessel must not appear.
	other := createTestShell("V-202-S1", 1)
	other.VesselID = "V-202"
	if err := s.WriteComponent(ctx, other); err != nil {
		t.Fatalf("WriteComponent() failed: %v", err)
	}

	got, err := s.ListComponents(ctx, "V-101")
	if err != nil {
		t.Fatalf("ListComponents() failed: %v", err)
	}

	wantIDs := []string{"V-101-N1", "V-101-S1", "V-101-S2"}
	if len(got) != len(wantIDs) {
		t.Fatalf("ListComponents() returned %d components, want %d", len(got), len(wantIDs))
	}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("component[%d] = %q, want %q", i, got[i].ID, want)
		}
	}
	if got[1].Revision != 2 {
		t.Errorf("V-101-S1 revision = %d, want latest 2", got[1].Revision)
	}
}

func TestListComponents_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ListComponents(context.Background(), "V-000")
	if err != nil {
		t.Fatalf("ListComponents() failed: %v", err)
	}
	if got == nil {
		t.Error("ListComponents() returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("ListComponents() returned %d components, want 0", len(got))
	}
}

// Measurement reads

func TestReadMeasurements_OrderedOldestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	newer := createTestMeasurement("V-101-S1", testDate(2024, time.June, 1), 0.568, 0.560)
	older := createTestMeasurement("V-101-S1", testDate(2016, time.June, 1), 0.608, 0.600)

	// Written newest first; reads still come back oldest first.
	if err := s.WriteMeasurement(ctx, newer); err != nil {
		t.Fatalf("WriteMeasurement() failed: %v", err)
	}
	if err := s.WriteMeasurement(ctx, older); err != nil {
		t.Fatalf("WriteMeasurement() failed: %v", err)
	}

	got, err := s.ReadMeasurements(ctx, "V-101-S1")
	if err != nil {
		t.Fatalf("ReadMeasurements() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadMeasurements() returned %d events, want 2", len(got))
	}
	if !got[0].TakenAt.Equal(older.TakenAt) {
		t.Errorf("first event taken at %v, want oldest %v", got[0].TakenAt, older.TakenAt)
	}
	if got[0].Readings[1] != 0.600 {
		t.Errorf("first event reading[1] = %v, want 0.600", got[0].Readings[1])
	}
	if got[1].Inspector != "insp-12" {
		t.Errorf("inspector = %q, want insp-12", got[1].Inspector)
	}
}

func TestReadMeasurements_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadMeasurements(context.Background(), "V-101-S1")
	if err != nil {
		t.Fatalf("ReadMeasurements() failed: %v", err)
	}
	if got == nil {
		t.Error("ReadMeasurements() returned nil, want empty slice")
	}
}

// Stress table reads

func TestReadStressTable_RoundTripResolves(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteStressTable(ctx, createTestStressTable(t)); err != nil {
		t.Fatalf("WriteStressTable() failed: %v", err)
	}

	table, err := s.ReadStressTable(ctx, "2024.1")
	if err != nil {
		t.Fatalf("ReadStressTable() failed: %v", err)
	}
	if table.Version() != "2024.1" {
		t.Errorf("version = %q, want 2024.1", table.Version())
	}

	res, err := table.Resolve("SA-516 Gr 70", 650)
	if err != nil {
		t.Fatalf("Resolve() at tabulated point failed: %v", err)
	}
	if res.StressPSI != 20000 || res.Status != stress.StatusOK {
		t.Errorf("resolution = (%v, %q), want (20000, ok)", res.StressPSI, res.Status)
	}

	// Midpoint between 650 (20000) and 700 (18100).
	res, err = table.Resolve("SA-516 Gr 70", 675)
	if err != nil {
		t.Fatalf("Resolve() interpolated failed: %v", err)
	}
	if res.StressPSI != 19050 || res.Status != stress.StatusInterpolated {
		t.Errorf("resolution = (%v, %q), want (19050, ok_interpolated)", res.StressPSI, res.Status)
	}

	res, err = table.Resolve("SA-285 Gr C", 650)
	if err != nil {
		t.Fatalf("Resolve() second material failed: %v", err)
	}
	if res.StressPSI != 14400 {
		t.Errorf("SA-285 Gr C stress = %v, want 14400", res.StressPSI)
	}
}

func TestReadStressTable_MissingIsNoRows(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadStressTable(context.Background(), "1999.0")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestListStressVersions_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteStressTable(ctx, createTestStressTable(t)); err != nil {
		t.Fatalf("WriteStressTable() failed: %v", err)
	}
	older, err := stress.NewTable("2019.3", map[string][]stress.Point{
		"SA-516 Gr 70": {{TemperatureF: 650, StressPSI: 20000}},
	})
	if err != nil {
		t.Fatalf("NewTable() failed: %v", err)
	}
	if err := s.WriteStressTable(ctx, older); err != nil {
		t.Fatalf("WriteStressTable() failed: %v", err)
	}

	versions, err := s.ListStressVersions(ctx)
	if err != nil {
		t.Fatalf("ListStressVersions() failed: %v", err)
	}
	want := []string{"2019.3", "2024.1"}
	if len(versions) != 2 || versions[0] != want[0] || versions[1] != want[1] {
		t.Errorf("versions = %v, want %v", versions, want)
	}
}

// Result reads

func TestReadResult_RoundTripPreservesIdentity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := sealedResult(t, "V-101-S1", 1, "run-0001")

	if err := s.WriteResult(ctx, r); err != nil {
		t.Fatalf("WriteResult() failed: %v", err)
	}

	got, err := s.ReadResult(ctx, r.ID)
	if err != nil {
		t.Fatalf("ReadResult() failed: %v", err)
	}

	// The stored snapshot must rehash to the stored content ID. This is
	// the property everything else rests on: a read-back record can be
	// re-verified without the original in memory.
	recomputed, err := snap.ResultID(string(got.Type), got.Inputs, got.EngineVersion, got.TableVersion)
	if err != nil {
		t.Fatalf("ResultID() failed: %v", err)
	}
	if recomputed != got.ID {
		t.Errorf("recomputed ID %s != stored ID %s", recomputed, got.ID)
	}

	if got.Type != calc.TypeRequiredThickness {
		t.Errorf("type = %q, want required_thickness", got.Type)
	}
	if got.Value != r.Value || got.Unit != r.Unit {
		t.Errorf("value = (%v, %q), want (%v, %q)", got.Value, got.Unit, r.Value, r.Unit)
	}
	if got.CodeRef != r.CodeRef {
		t.Errorf("code ref = %q, want %q", got.CodeRef, r.CodeRef)
	}
	if got.Adequate != nil {
		t.Errorf("adequate = %v, want nil for thickness result", got.Adequate)
	}
	if len(got.Intermediates) != len(r.Intermediates) {
		t.Fatalf("intermediates = %d, want %d", len(got.Intermediates), len(r.Intermediates))
	}
	for i := range r.Intermediates {
		if got.Intermediates[i] != r.Intermediates[i] {
			t.Errorf("intermediate[%d] = %+v, want %+v", i, got.Intermediates[i], r.Intermediates[i])
		}
	}
	if got.Seq != 1 || got.RunToken != "run-0001" {
		t.Errorf("stamp = (%d, %q), want (1, run-0001)", got.Seq, got.RunToken)
	}
	if !got.ComputedAt.Equal(r.ComputedAt) {
		t.Errorf("computed at = %v, want %v", got.ComputedAt, r.ComputedAt)
	}
}

func TestReadResult_MissingIsNoRows(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadResult(context.Background(), "sha256:nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestReadResults_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r2 := sealedResult(t, "V-101-S1", 2, "run-0001")

	// A second revision produces a different snapshot, hence a
	// different content ID, stamped earlier in the run.
	c := createTestShell("V-101-S1", 2)
	c.DesignPressure = 225
	res := stress.Resolution{
		Spec: "SA-516 Gr 70", TemperatureF: 650, StressPSI: 20000,
		Status: stress.StatusOK, TableVersion: "2024.1",
	}
	r1, err := calc.RequiredThickness(c, res, calc.DefaultConfig())
	if err != nil {
		t.Fatalf("RequiredThickness() failed: %v", err)
	}
	r1.Seq = 1
	r1.RunToken = "run-0001"
	r1.ComputedAt = testDate(2026, time.March, 1)

	if err := s.WriteResult(ctx, r2); err != nil {
		t.Fatalf("WriteResult() seq 2 failed: %v", err)
	}
	if err := s.WriteResult(ctx, r1); err != nil {
		t.Fatalf("WriteResult() seq 1 failed: %v", err)
	}

	got, err := s.ReadResults(ctx, "V-101-S1")
	if err != nil {
		t.Fatalf("ReadResults() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadResults() returned %d results, want 2", len(got))
	}
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Errorf("seq order = [%d, %d], want [1, 2]", got[0].Seq, got[1].Seq)
	}
}

func TestReadResultsByRun_FiltersByToken(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := sealedResult(t, "V-101-S1", 1, "run-0001")
	if err := s.WriteResult(ctx, r1); err != nil {
		t.Fatalf("WriteResult() failed: %v", err)
	}

	got, err := s.ReadResultsByRun(ctx, "run-0001")
	if err != nil {
		t.Fatalf("ReadResultsByRun() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != r1.ID {
		t.Errorf("run-0001 results = %d, want the one stamped result", len(got))
	}

	empty, err := s.ReadResultsByRun(ctx, "run-9999")
	if err != nil {
		t.Fatalf("ReadResultsByRun() failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("unknown run results = %v, want empty slice", empty)
	}
}

// Anomaly reads

func TestReadAnomalies_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	a := createTestAnomaly("V-101-S1")

	if err := s.WriteAnomalies(ctx, "run-0001", []anomaly.Anomaly{a}); err != nil {
		t.Fatalf("WriteAnomalies() failed: %v", err)
	}

	got, err := s.ReadAnomalies(ctx, "run-0001")
	if err != nil {
		t.Fatalf("ReadAnomalies() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadAnomalies() returned %d, want 1", len(got))
	}
	sa := got[0]
	if sa.ID == 0 {
		t.Error("stored anomaly has no row id")
	}
	if sa.RunToken != "run-0001" {
		t.Errorf("run token = %q, want run-0001", sa.RunToken)
	}
	if sa.Category != a.Category || sa.Severity != a.Severity {
		t.Errorf("classification = (%q, %q), want (%q, %q)", sa.Category, sa.Severity, a.Category, a.Severity)
	}
	if sa.Detected != a.Detected || sa.Expected != a.Expected || sa.Detail != a.Detail {
		t.Errorf("finding = (%v, %q, %q), want (%v, %q, %q)",
			sa.Detected, sa.Expected, sa.Detail, a.Detected, a.Expected, a.Detail)
	}
	if sa.ReviewStatus != anomaly.ReviewPending {
		t.Errorf("review status = %q, want pending", sa.ReviewStatus)
	}
}

func TestReadPendingAnomalies_FiltersReviewed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestAnomaly("V-101-S1")
	second := createTestAnomaly("V-101-S2")
	if err := s.WriteAnomalies(ctx, "run-0001", []anomaly.Anomaly{first, second}); err != nil {
		t.Fatalf("WriteAnomalies() failed: %v", err)
	}

	stored, err := s.ReadAnomalies(ctx, "run-0001")
	if err != nil {
		t.Fatalf("ReadAnomalies() failed: %v", err)
	}
	if err := s.UpdateAnomalyReview(ctx, stored[0].ID, anomaly.ReviewResolved); err != nil {
		t.Fatalf("UpdateAnomalyReview() failed: %v", err)
	}

	pending, err := s.ReadPendingAnomalies(ctx)
	if err != nil {
		t.Fatalf("ReadPendingAnomalies() failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending anomalies = %d, want 1", len(pending))
	}
	if pending[0].ComponentID != "V-101-S2" {
		t.Errorf("pending component = %q, want V-101-S2", pending[0].ComponentID)
	}
}

// Audit reads

func TestReadAuditTrail_RoundTripVerifies(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := sealedResult(t, "V-101-S1", 1, "run-0001")
	e := recordedEntry(t, r, "inspector-7")

	if err := s.WriteResult(ctx, r); err != nil {
		t.Fatalf("WriteResult() failed: %v", err)
	}
	if err := s.WriteAuditEntry(ctx, e); err != nil {
		t.Fatalf("WriteAuditEntry() failed: %v", err)
	}

	got, err := s.ReadAuditTrail(ctx, "V-101-S1")
	if err != nil {
		t.Fatalf("ReadAuditTrail() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadAuditTrail() returned %d entries, want 1", len(got))
	}

	entry := got[0]
	if entry.Hash != e.Hash || entry.ResultID != r.ID {
		t.Errorf("identity = (%s, %s), want (%s, %s)", entry.Hash, entry.ResultID, e.Hash, r.ID)
	}
	if entry.ActorID != "inspector-7" {
		t.Errorf("actor = %q, want inspector-7", entry.ActorID)
	}
	if !entry.RecordedAt.Equal(e.RecordedAt) {
		t.Errorf("recorded at = %v, want %v", entry.RecordedAt, e.RecordedAt)
	}

	// Stored snapshot must still verify against its stored hash.
	if err := audit.Verify(entry); err != nil {
		t.Errorf("Verify() on read-back entry failed: %v", err)
	}
}

func TestReadAuditByResult_SpansRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := sealedResult(t, "V-101-S1", 1, "run-0001")

	if err := s.WriteResult(ctx, r); err != nil {
		t.Fatalf("WriteResult() failed: %v", err)
	}
	if err := s.WriteAuditEntry(ctx, recordedEntry(t, r, "inspector-7")); err != nil {
		t.Fatalf("WriteAuditEntry() failed: %v", err)
	}
	rerun := r
	rerun.Seq = 9
	rerun.RunToken = "run-0002"
	if err := s.WriteAuditEntry(ctx, recordedEntry(t, rerun, "inspector-8")); err != nil {
		t.Fatalf("WriteAuditEntry() rerun failed: %v", err)
	}

	got, err := s.ReadAuditByResult(ctx, r.ID)
	if err != nil {
		t.Fatalf("ReadAuditByResult() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadAuditByResult() returned %d entries, want 2", len(got))
	}
	if got[0].RunToken != "run-0001" || got[1].RunToken != "run-0002" {
		t.Errorf("run order = [%q, %q], want [run-0001, run-0002]", got[0].RunToken, got[1].RunToken)
	}
}

// Run state and integrity

func TestReadRunState_CompleteRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := sealedResult(t, "V-101-S1", 3, "run-0001")
	a := createTestAnomaly("V-101-S1")
	e := recordedEntry(t, r, "inspector-7")

	err := s.WriteRun(ctx, "run-0001", []calc.Result{r}, []anomaly.Anomaly{a}, []audit.Entry{e})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	state, err := s.ReadRunState(ctx, "run-0001")
	if err != nil {
		t.Fatalf("ReadRunState() failed: %v", err)
	}
	if !state.IsComplete {
		t.Error("IsComplete = false, want true")
	}
	if state.Unaudited != 0 {
		t.Errorf("Unaudited = %d, want 0", state.Unaudited)
	}
	if state.LastSeq != 3 {
		t.Errorf("LastSeq = %d, want 3", state.LastSeq)
	}
	if len(state.Results) != 1 || len(state.AuditEntries) != 1 || len(state.Anomalies) != 1 {
		t.Errorf("state sizes = (%d, %d, %d), want (1, 1, 1)",
			len(state.Results), len(state.AuditEntries), len(state.Anomalies))
	}
}

func TestReadRunState_DetectsUnaudited(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := sealedResult(t, "V-101-S1", 1, "run-0001")

	// Result persisted, audit entry lost: the run is incomplete.
	if err := s.WriteResult(ctx, r); err != nil {
		t.Fatalf("WriteResult() failed: %v", err)
	}

	state, err := s.ReadRunState(ctx, "run-0001")
	if err != nil {
		t.Fatalf("ReadRunState() failed: %v", err)
	}
	if state.IsComplete {
		t.Error("IsComplete = true, want false")
	}
	if state.Unaudited != 1 {
		t.Errorf("Unaudited = %d, want 1", state.Unaudited)
	}
}

func TestReadRunState_EmptyRunIsIncomplete(t *testing.T) {
	s := createTestStore(t)

	state, err := s.ReadRunState(context.Background(), "run-none")
	if err != nil {
		t.Fatalf("ReadRunState() failed: %v", err)
	}
	if state.IsComplete {
		t.Error("IsComplete = true for empty run, want false")
	}
}

func TestFindIncompleteRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	complete := sealedResult(t, "V-101-S1", 1, "run-0001")
	err := s.WriteRun(ctx, "run-0001",
		[]calc.Result{complete}, nil, []audit.Entry{recordedEntry(t, complete, "inspector-7")})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	c := createTestShell("V-101-S2", 1)
	res := stress.Resolution{
		Spec: "SA-516 Gr 70", TemperatureF: 650, StressPSI: 20000,
		Status: stress.StatusOK, TableVersion: "2024.1",
	}
	interrupted, err := calc.RequiredThickness(c, res, calc.DefaultConfig())
	if err != nil {
		t.Fatalf("RequiredThickness() failed: %v", err)
	}
	interrupted.Seq = 2
	interrupted.RunToken = "run-0002"
	interrupted.ComputedAt = testDate(2026, time.March, 1)
	if err := s.WriteResult(ctx, interrupted); err != nil {
		t.Fatalf("WriteResult() failed: %v", err)
	}

	tokens, err := s.FindIncompleteRuns(ctx)
	if err != nil {
		t.Fatalf("FindIncompleteRuns() failed: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != "run-0002" {
		t.Errorf("incomplete runs = %v, want [run-0002]", tokens)
	}
}

func TestListAuditedComponents_DistinctOrdered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := sealedResult(t, "V-101-S2", 1, "run-0001")
	r2 := sealedResult(t, "V-101-S1", 2, "run-0001")
	err := s.WriteRun(ctx, "run-0001",
		[]calc.Result{r1, r2}, nil,
		[]audit.Entry{
			recordedEntry(t, r1, "inspector-7"),
			recordedEntry(t, r2, "inspector-7"),
		})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	ids, err := s.ListAuditedComponents(ctx)
	if err != nil {
		t.Fatalf("ListAuditedComponents() failed: %v", err)
	}
	want := []string{"V-101-S1", "V-101-S2"}
	if len(ids) != 2 || ids[0] != want[0] || ids[1] != want[1] {
		t.Errorf("audited components = %v, want %v", ids, want)
	}
}

func TestListAuditedComponents_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	ids, err := s.ListAuditedComponents(context.Background())
	if err != nil {
		t.Fatalf("ListAuditedComponents() failed: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("audited components = %v, want empty non-nil slice", ids)
	}
}

func TestVerifyAuditTrail_Clean(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := sealedResult(t, "V-101-S1", 1, "run-0001")

	err := s.WriteRun(ctx, "run-0001",
		[]calc.Result{r}, nil, []audit.Entry{recordedEntry(t, r, "inspector-7")})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	findings, err := s.VerifyAuditTrail(ctx, "V-101-S1")
	if err != nil {
		t.Fatalf("VerifyAuditTrail() failed: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %d, want 0 on intact trail", len(findings))
	}
}

func TestVerifyAuditTrail_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := sealedResult(t, "V-101-S1", 1, "run-0001")

	err := s.WriteRun(ctx, "run-0001",
		[]calc.Result{r}, nil, []audit.Entry{recordedEntry(t, r, "inspector-7")})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	// Edit a hashed field behind the store's back.
	_, err = s.db.Exec(`UPDATE audit_log SET engine_version = '9.9.9'`)
	if err != nil {
		t.Fatalf("tampering update failed: %v", err)
	}

	findings, err := s.VerifyAuditTrail(ctx, "V-101-S1")
	if err != nil {
		t.Fatalf("VerifyAuditTrail() failed: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	if findings[0].ResultID != r.ID {
		t.Errorf("finding result = %s, want %s", findings[0].ResultID, r.ID)
	}
	if !audit.IsIntegrityFailure(findings[0].Err) {
		t.Errorf("finding error = %v, want integrity failure", findings[0].Err)
	}
}
