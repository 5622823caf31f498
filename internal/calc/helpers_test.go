package calc

import (
	"testing"
	"time"

	"github.com/verity-ndt/tminus/internal/stress"
	"github.com/verity-ndt/tminus/internal/vessel"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timeZero() time.Time { return time.Time{} }

func testResolution() stress.Resolution {
	return stress.Resolution{
		Spec:         "SA-516 Gr 70",
		TemperatureF: 650,
		StressPSI:    20000,
		Status:       stress.StatusOK,
		TableVersion: "2024.1",
	}
}

func shellComponent(t *testing.T) vessel.Component {
	t.Helper()
	e := 1.0
	return vessel.Component{
		ID:                 "V-101-S1",
		VesselID:           "V-101",
		Revision:           1,
		Geometry:           vessel.Shell{InsideRadius: 35.375},
		Material:           "SA-516 Gr 70",
		DesignPressure:     250,
		DesignTemperature:  650,
		JointEfficiency:    &e,
		NominalThickness:   0.625,
		CorrosionAllowance: 0.125,
		InstallDate:        date(1998, 6, 1),
	}
}

func nozzleComponent(t *testing.T) vessel.Component {
	t.Helper()
	c := shellComponent(t)
	c.ID = "V-101-N1"
	c.Geometry = vessel.Nozzle{
		OutsideDiameter: 6.625,
		NominalWall:     0.280,
		Parent:          "V-101-S1",
	}
	c.NominalThickness = 0.280
	return c
}

func withGeometry(t *testing.T, g vessel.Geometry) vessel.Component {
	t.Helper()
	c := shellComponent(t)
	c.Geometry = g
	return c
}
