package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/verity-ndt/tminus/internal/audit"
	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// createTestStore creates a file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// createTestShell builds a valid shell course record.
func createTestShell(id string, revision int) vessel.Component {
	eff := 1.0
	return vessel.Component{
		ID:                 id,
		VesselID:           "V-101",
		Revision:           revision,
		Geometry:           vessel.Shell{InsideRadius: 35.375},
		Material:           "SA-516 Gr 70",
		DesignPressure:     250,
		DesignTemperature:  650,
		JointEfficiency:    &eff,
		NominalThickness:   0.625,
		CorrosionAllowance: 0.125,
		InstallDate:        testDate(1998, time.June, 1),
	}
}

// createTestNozzle builds a nozzle carrying a tolerance override so
// round trips exercise the optional geometry field.
func createTestNozzle(id string) vessel.Component {
	tol := 0.10
	return vessel.Component{
		ID:       id,
		VesselID: "V-101",
		Revision: 1,
		Geometry: vessel.Nozzle{
			OutsideDiameter:   6.625,
			NominalWall:       0.280,
			Parent:            "V-101-S1",
			ToleranceOverride: &tol,
		},
		Material:           "SA-516 Gr 70",
		DesignPressure:     250,
		DesignTemperature:  650,
		NominalThickness:   0.280,
		CorrosionAllowance: 0.0625,
		InstallDate:        testDate(1998, time.June, 1),
	}
}

func createTestMeasurement(componentID string, takenAt time.Time, readings ...float64) vessel.MeasurementEvent {
	return vessel.MeasurementEvent{
		ComponentID: componentID,
		TakenAt:     takenAt,
		Readings:    readings,
		Inspector:   "insp-12",
	}
}

func createTestStressTable(t *testing.T) *stress.Table {
	t.Helper()
	table, err := stress.NewTable("2024.1", map[string][]stress.Point{
		"SA-516 Gr 70": {
			{TemperatureF: 100, StressPSI: 20000},
			{TemperatureF: 650, StressPSI: 20000},
			{TemperatureF: 700, StressPSI: 18100},
		},
		"SA-285 Gr C": {
			{TemperatureF: 100, StressPSI: 15700},
			{TemperatureF: 650, StressPSI: 14400},
		},
	})
	if err != nil {
		t.Fatalf("NewTable() failed: %v", err)
	}
	return table
}

// sealedResult computes a real required-thickness result and stamps it
// the way the pipeline would. The content ID is genuine, so tests can
// recompute it from stored fields.
func sealedResult(t *testing.T, componentID string, seq int64, runToken string) calc.Result {
	t.Helper()
	c := createTestShell(componentID, 1)
	res := stress.Resolution{
		Spec:         "SA-516 Gr 70",
		TemperatureF: 650,
		StressPSI:    20000,
		Status:       stress.StatusOK,
		TableVersion: "2024.1",
	}
	r, err := calc.RequiredThickness(c, res, calc.DefaultConfig())
	if err != nil {
		t.Fatalf("RequiredThickness() failed: %v", err)
	}
	r.Seq = seq
	r.RunToken = runToken
	r.ComputedAt = testDate(2026, time.March, 1)
	return r
}

// recordedEntry builds the audit entry for a stamped result.
func recordedEntry(t *testing.T, r calc.Result, actorID string) audit.Entry {
	t.Helper()
	e, err := audit.Record(r, actorID, r.ComputedAt)
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	return e
}
