package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity-ndt/tminus/internal/vessel"
)

func defShell(id string) vessel.Component {
	eff := 0.85
	return vessel.Component{
		ID:                 id,
		VesselID:           "V-101",
		Revision:           1,
		Geometry:           vessel.Shell{InsideRadius: 35.375},
		Material:           "SA-516 Gr 70",
		DesignPressure:     250,
		DesignTemperature:  650,
		JointEfficiency:    &eff,
		NominalThickness:   0.625,
		CorrosionAllowance: 0.125,
		InstallDate:        time.Date(1998, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func defNozzle(id, parent string) vessel.Component {
	return vessel.Component{
		ID:       id,
		VesselID: "V-101",
		Revision: 1,
		Geometry: vessel.Nozzle{
			OutsideDiameter: 6.625,
			NominalWall:     0.280,
			Parent:          parent,
		},
		Material:           "SA-106 Gr B",
		DesignPressure:     250,
		DesignTemperature:  650,
		NominalThickness:   0.280,
		CorrosionAllowance: 0.0625,
		InstallDate:        time.Date(1998, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func defVessel(components ...vessel.Component) *Definition {
	return &Definition{VesselID: "V-101", Components: components}
}

func errorCodes(errs []ValidationError) []string {
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	return codes
}

// =============================================================================
// Definition Validation Tests
// =============================================================================

func TestValidateDefinitionValid(t *testing.T) {
	def := defVessel(defShell("V-101-S1"), defNozzle("V-101-N1", "V-101-S1"))

	errs := Validate(def)
	assert.Empty(t, errs, "valid definition should have no errors")
}

func TestValidateDefinitionValueNotPointer(t *testing.T) {
	def := defVessel(defShell("V-101-S1"))

	errs := Validate(*def)
	assert.Empty(t, errs)
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate(42)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedInput, errs[0].Code)
	assert.Contains(t, errs[0].Message, "int")
}

func TestValidateVesselIDEmpty(t *testing.T) {
	def := defVessel(defShell("V-101-S1"))
	def.VesselID = "   "

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrVesselIDEmpty, errs[0].Code)
	assert.Contains(t, errs[0].Message, "id")
}

func TestValidateNoComponents(t *testing.T) {
	def := &Definition{VesselID: "V-101"}

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNoComponents, errs[0].Code)
}

func TestValidateDuplicateComponentRevision(t *testing.T) {
	def := defVessel(defShell("V-101-S1"), defShell("V-101-S1"))

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateComponent, errs[0].Code)
	assert.Contains(t, errs[0].Message, "V-101-S1")
}

func TestValidateDistinctRevisionsAllowed(t *testing.T) {
	rev2 := defShell("V-101-S1")
	rev2.Revision = 2
	def := defVessel(defShell("V-101-S1"), rev2)

	errs := Validate(def)
	assert.Empty(t, errs)
}

// =============================================================================
// Component Validation Tests
// =============================================================================

func TestValidateComponentInvalid(t *testing.T) {
	c := defShell("V-101-S1")
	c.Material = ""
	def := defVessel(c)

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrComponentInvalid, errs[0].Code)
	assert.Contains(t, errs[0].Message, "material")
}

func TestValidateEfficiencyBelowBand(t *testing.T) {
	c := defShell("V-101-S1")
	low := 0.40
	c.JointEfficiency = &low
	def := defVessel(c)

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEfficiencyOutOfBand, errs[0].Code)
	assert.Contains(t, errs[0].Field, "joint_efficiency")
}

func TestValidateEfficiencyAboveBand(t *testing.T) {
	c := defShell("V-101-S1")
	high := 1.2
	c.JointEfficiency = &high
	def := defVessel(c)

	// 1.2 fails both the structural check and the acceptance band.
	errs := Validate(def)
	codes := errorCodes(errs)
	assert.Contains(t, codes, ErrComponentInvalid)
	assert.Contains(t, codes, ErrEfficiencyOutOfBand)
}

func TestValidateAbsentEfficiencyAllowed(t *testing.T) {
	c := defShell("V-101-S1")
	c.JointEfficiency = nil
	def := defVessel(c)

	errs := Validate(def)
	assert.Empty(t, errs)
}

func TestValidateNegativeAllowance(t *testing.T) {
	c := defShell("V-101-S1")
	c.CorrosionAllowance = -0.1
	def := defVessel(c)

	errs := Validate(def)
	codes := errorCodes(errs)
	assert.Contains(t, codes, ErrComponentInvalid)
	assert.Contains(t, codes, ErrNegativeAllowance)
}

func TestValidateKnuckleTooSharp(t *testing.T) {
	c := defShell("V-202-H2")
	c.Geometry = vessel.TorisphericalHead{CrownRadius: 60, KnuckleRadius: 3}
	def := defVessel(c)

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrKnuckleTooSharp, errs[0].Code)
	assert.Contains(t, errs[0].Field, "knuckle_radius_in")
}

func TestValidateKnuckleAtRatioLimit(t *testing.T) {
	c := defShell("V-202-H2")
	c.Geometry = vessel.TorisphericalHead{CrownRadius: 60, KnuckleRadius: 3.6}
	def := defVessel(c)

	errs := Validate(def)
	assert.Empty(t, errs)
}

func TestValidateUnknownParent(t *testing.T) {
	def := defVessel(defShell("V-101-S1"), defNozzle("V-101-N1", "V-101-S9"))

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownParent, errs[0].Code)
	assert.Contains(t, errs[0].Message, "V-101-S9")
}

func TestValidateParentIsNozzle(t *testing.T) {
	def := defVessel(
		defShell("V-101-S1"),
		defNozzle("V-101-N1", "V-101-S1"),
		defNozzle("V-101-N2", "V-101-N1"),
	)

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrParentIsNozzle, errs[0].Code)
	assert.Contains(t, errs[0].Message, "V-101-N1")
}

// =============================================================================
// Survey Validation Tests
// =============================================================================

func TestValidateDefinitionWithSurveys(t *testing.T) {
	def := defVessel(defShell("V-101-S1"))
	def.Surveys = []vessel.MeasurementEvent{{
		ComponentID: "V-101-S1",
		TakenAt:     time.Date(2016, 5, 20, 0, 0, 0, 0, time.UTC),
		Readings:    []float64{0.601, 0.598, 0.604},
		Inspector:   "insp-12",
	}}

	errs := Validate(def)
	assert.Empty(t, errs)
}

func TestValidateSurveyInvalid(t *testing.T) {
	def := defVessel(defShell("V-101-S1"))
	def.Surveys = []vessel.MeasurementEvent{{
		ComponentID: "V-101-S1",
		TakenAt:     time.Date(2016, 5, 20, 0, 0, 0, 0, time.UTC),
	}}

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrSurveyInvalid, errs[0].Code)
	assert.Contains(t, errs[0].Field, "surveys[0]")
}

func TestValidateSurveyForeignComponent(t *testing.T) {
	def := defVessel(defShell("V-101-S1"))
	def.Surveys = []vessel.MeasurementEvent{{
		ComponentID: "V-999-X",
		TakenAt:     time.Date(2016, 5, 20, 0, 0, 0, 0, time.UTC),
		Readings:    []float64{0.601},
	}}

	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrSurveyForeign, errs[0].Code)
	assert.Contains(t, errs[0].Message, "V-999-X")
}

// =============================================================================
// ValidationError Formatting Tests
// =============================================================================

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "components.V-101-S1.joint_efficiency", Message: "out of band", Code: ErrEfficiencyOutOfBand}
	assert.Equal(t, "[E105] components.V-101-S1.joint_efficiency: out of band", e.Error())
}

func TestValidationErrorStringWithLine(t *testing.T) {
	e := ValidationError{Field: "id", Message: "missing", Code: ErrVesselIDEmpty, Line: 7}
	assert.Equal(t, "[E101] line 7: id: missing", e.Error())
}
