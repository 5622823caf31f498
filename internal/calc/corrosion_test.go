package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHistory() RateHistory {
	return RateHistory{
		PreviousThickness: 0.520,
		PreviousDate:      date(2019, 4, 2),
		CurrentThickness:  0.455,
		CurrentDate:       date(2024, 3, 15),
	}
}

func TestCorrosionRate_ShortTermGoverns(t *testing.T) {
	c := shellComponent(t)
	h := testHistory()

	r, err := CorrosionRate(c, h, DefaultConfig())
	require.NoError(t, err)

	short := (0.520 - 0.455) / yearsBetween(h.PreviousDate, h.CurrentDate)
	long := (0.625 - 0.455) / yearsBetween(c.InstallDate, h.CurrentDate)
	require.Greater(t, short, long)

	assert.Equal(t, short, r.Value)
	assert.Equal(t, BasisShortTerm, r.Governs)
	assert.Equal(t, "in/yr", r.Unit)
	assert.Contains(t, r.Rationale, "short-term")
	assert.Contains(t, r.Rationale, "governs")

	gotShort, ok := r.Intermediate("short_term_rate")
	require.True(t, ok)
	assert.Equal(t, short, gotShort)
	gotLong, ok := r.Intermediate("long_term_rate")
	require.True(t, ok)
	assert.Equal(t, long, gotLong)
}

func TestCorrosionRate_LongTermGoverns(t *testing.T) {
	c := shellComponent(t)
	h := testHistory()
	h.PreviousThickness = 0.470
	h.CurrentThickness = 0.460

	r, err := CorrosionRate(c, h, DefaultConfig())
	require.NoError(t, err)

	long := (0.625 - 0.460) / yearsBetween(c.InstallDate, h.CurrentDate)
	assert.Equal(t, long, r.Value)
	assert.Equal(t, BasisLongTerm, r.Governs)
	assert.Contains(t, r.Rationale, "long-term")
}

func TestCorrosionRate_TiePrefersLongTerm(t *testing.T) {
	c := shellComponent(t)
	// Previous measurement at install, at nominal: both rates are the
	// same quotient.
	h := RateHistory{
		PreviousThickness: c.NominalThickness,
		PreviousDate:      c.InstallDate,
		CurrentThickness:  0.455,
		CurrentDate:       date(2024, 3, 15),
	}

	r, err := CorrosionRate(c, h, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, BasisLongTerm, r.Governs)
}

func TestCorrosionRate_NegligibleRatesFloorToNominal(t *testing.T) {
	c := shellComponent(t)
	h := testHistory()
	h.PreviousThickness = 0.6249
	h.CurrentThickness = 0.6248

	cfg := DefaultConfig()
	r, err := CorrosionRate(c, h, cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.NominalRateFloor, r.Value)
	assert.Equal(t, BasisNominal, r.Governs)
	assert.Contains(t, r.Rationale, "floor")
}

func TestCorrosionRate_ApparentGrowthNeverNegative(t *testing.T) {
	c := shellComponent(t)
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		prev, curr float64
		wantFloor  bool
	}{
		{name: "short-term growth, long-term real", prev: 0.500, curr: 0.510, wantFloor: false},
		{name: "growth beyond nominal", prev: 0.630, curr: 0.640, wantFloor: true},
		{name: "flat at nominal", prev: 0.625, curr: 0.625, wantFloor: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := testHistory()
			h.PreviousThickness = tc.prev
			h.CurrentThickness = tc.curr

			r, err := CorrosionRate(c, h, cfg)
			require.NoError(t, err)
			assert.Greater(t, r.Value, 0.0)
			if tc.wantFloor {
				assert.Equal(t, cfg.NominalRateFloor, r.Value)
				assert.Equal(t, BasisNominal, r.Governs)
			}
		})
	}
}

func TestCorrosionRate_GrowthPreservedInIntermediates(t *testing.T) {
	c := shellComponent(t)
	h := testHistory()
	h.PreviousThickness = 0.500
	h.CurrentThickness = 0.510

	r, err := CorrosionRate(c, h, DefaultConfig())
	require.NoError(t, err)

	short, ok := r.Intermediate("short_term_rate")
	require.True(t, ok)
	assert.Negative(t, short)
}

func TestCorrosionRate_RationaleAlwaysPresent(t *testing.T) {
	c := shellComponent(t)
	for _, h := range []RateHistory{
		testHistory(),
		{PreviousThickness: 0.6249, PreviousDate: date(2019, 4, 2), CurrentThickness: 0.6248, CurrentDate: date(2024, 3, 15)},
		{PreviousThickness: 0.470, PreviousDate: date(2019, 4, 2), CurrentThickness: 0.460, CurrentDate: date(2024, 3, 15)},
	} {
		r, err := CorrosionRate(c, h, DefaultConfig())
		require.NoError(t, err)
		assert.NotEmpty(t, r.Rationale)
	}
}

func TestCorrosionRate_InsufficientHistory(t *testing.T) {
	c := shellComponent(t)

	tests := []struct {
		name   string
		mutate func(*RateHistory)
	}{
		{"missing previous date", func(h *RateHistory) { h.PreviousDate = timeZero() }},
		{"zero previous thickness", func(h *RateHistory) { h.PreviousThickness = 0 }},
		{"missing current date", func(h *RateHistory) { h.CurrentDate = timeZero() }},
		{"non-finite current thickness", func(h *RateHistory) { h.CurrentThickness = math.NaN() }},
		{"previous not before current", func(h *RateHistory) { h.PreviousDate = h.CurrentDate }},
		{"previous after current", func(h *RateHistory) { h.PreviousDate = date(2025, 1, 1) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := testHistory()
			tc.mutate(&h)

			_, err := CorrosionRate(c, h, DefaultConfig())
			require.Error(t, err)
			assert.True(t, IsInsufficientHistory(err), "got %v", err)
		})
	}
}

func TestCorrosionRate_InstallAfterCurrent(t *testing.T) {
	c := shellComponent(t)
	c.InstallDate = date(2030, 1, 1)

	_, err := CorrosionRate(c, testHistory(), DefaultConfig())
	require.Error(t, err)
	assert.True(t, IsInsufficientHistory(err))
}

func TestCorrosionRate_IdentityIgnoresStressTable(t *testing.T) {
	r, err := CorrosionRate(shellComponent(t), testHistory(), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, r.TableVersion)
	assert.Equal(t, "API 510 7.1.1.1", r.CodeRef)
}
