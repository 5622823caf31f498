package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/vessel"
)

func TestRequiredThickness_ShellClosedForm(t *testing.T) {
	c := shellComponent(t)
	res := testResolution()

	r, err := RequiredThickness(c, res, DefaultConfig())
	require.NoError(t, err)

	// P*R/(S*E - 0.6*P) with P=250, R=35.375, S=20000, E=1.0.
	want := 250.0 * 35.375 / (20000.0*1.0 - 0.6*250.0)
	assert.Equal(t, want, r.Value)
	assert.InDelta(t, 0.4455, r.Value, 1e-4)
	assert.Equal(t, "in", r.Unit)
	assert.Equal(t, "UG-27(c)(1)", r.CodeRef)
	assert.Equal(t, TypeRequiredThickness, r.Type)
	assert.NotEmpty(t, r.ID)
}

func TestRequiredThickness_HeadFormulas(t *testing.T) {
	res := testResolution()
	den := 2*20000.0*1.0 - 0.2*250.0

	tests := []struct {
		name     string
		geometry vessel.Geometry
		want     float64
		ref      string
	}{
		{
			name:     "ellipsoidal",
			geometry: vessel.EllipsoidalHead{InsideDiameter: 70.75},
			want:     250.0 * 70.75 / den,
			ref:      "UG-32(d)",
		},
		{
			name:     "torispherical",
			geometry: vessel.TorisphericalHead{CrownRadius: 72, KnuckleRadius: 4.375},
			want:     250.0 * 72 * (0.25 * (3 + math.Sqrt(72/4.375))) / den,
			ref:      "UG-32(e)",
		},
		{
			name:     "hemispherical",
			geometry: vessel.HemisphericalHead{InsideRadius: 35.375},
			want:     250.0 * 35.375 / den,
			ref:      "UG-32(f)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := withGeometry(t, tc.geometry)
			r, err := RequiredThickness(c, res, DefaultConfig())
			require.NoError(t, err)
			assert.Equal(t, tc.want, r.Value)
			assert.Equal(t, tc.ref, r.CodeRef)
		})
	}
}

func TestRequiredThickness_TorisphericalRecordsMFactor(t *testing.T) {
	c := withGeometry(t, vessel.TorisphericalHead{CrownRadius: 72, KnuckleRadius: 4.375})

	r, err := RequiredThickness(c, testResolution(), DefaultConfig())
	require.NoError(t, err)

	m, ok := r.Intermediate("m_factor")
	require.True(t, ok)
	assert.Equal(t, 0.25*(3+math.Sqrt(72/4.375)), m)
}

func TestRequiredThickness_NonpositiveDenominator(t *testing.T) {
	c := shellComponent(t)
	c.DesignPressure = 34000 // S*E - 0.6*P = 20000 - 20400 < 0

	_, err := RequiredThickness(c, testResolution(), DefaultConfig())
	require.Error(t, err)
	assert.True(t, IsInvalidGeometry(err))
	assert.Contains(t, err.Error(), "must be positive")
}

func TestRequiredThickness_MissingEfficiencyFallsBack(t *testing.T) {
	c := shellComponent(t)
	c.JointEfficiency = nil
	cfg := DefaultConfig()

	r, err := RequiredThickness(c, testResolution(), cfg)
	require.NoError(t, err)

	want := 250.0 * 35.375 / (20000.0*cfg.FallbackJointEfficiency - 0.6*250.0)
	assert.Equal(t, want, r.Value)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "fallback E=0.70")
	assert.Equal(t, snap.Bool(true), r.Inputs["joint_efficiency_assumed"])
}

func TestRequiredThickness_DocumentedEfficiencyNotFlagged(t *testing.T) {
	r, err := RequiredThickness(shellComponent(t), testResolution(), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, snap.Bool(false), r.Inputs["joint_efficiency_assumed"])
}

func TestRequiredThickness_RejectsNozzle(t *testing.T) {
	_, err := RequiredThickness(nozzleComponent(t), testResolution(), DefaultConfig())
	require.Error(t, err)
	assert.True(t, IsInvalidGeometry(err))
	assert.Contains(t, err.Error(), "UG-45")
}

func TestRequiredThickness_RejectsInvalidComponent(t *testing.T) {
	c := shellComponent(t)
	c.DesignPressure = 0

	_, err := RequiredThickness(c, testResolution(), DefaultConfig())
	require.Error(t, err)
	assert.True(t, IsInvalidGeometry(err))
}

func TestRequiredThickness_IdentityIsDeterministic(t *testing.T) {
	c := shellComponent(t)
	res := testResolution()
	cfg := DefaultConfig()

	a, err := RequiredThickness(c, res, cfg)
	require.NoError(t, err)
	b, err := RequiredThickness(c, res, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	c.Revision = 2
	rev2, err := RequiredThickness(c, res, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, rev2.ID)
}

func TestRequiredThickness_ExecutionFieldsLeftForPipeline(t *testing.T) {
	r, err := RequiredThickness(shellComponent(t), testResolution(), DefaultConfig())
	require.NoError(t, err)
	assert.Zero(t, r.Seq)
	assert.Empty(t, r.RunToken)
	assert.True(t, r.ComputedAt.IsZero())
}
