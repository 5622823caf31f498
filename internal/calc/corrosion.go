package calc

import (
	"fmt"
	"math"
	"time"

	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// RateHistory carries the two measured reference points a corrosion
// rate is derived from. The nominal thickness and install date come
// from the component record.
type RateHistory struct {
	PreviousThickness float64
	PreviousDate      time.Time
	CurrentThickness  float64
	CurrentDate       time.Time
}

// CorrosionRate derives the governing corrosion rate for a component
// from its thickness history.
//
// Two candidate rates are computed: short-term between the previous
// and current measurements, and long-term between nominal thickness at
// install and the current measurement. The larger governs. Apparent
// wall growth (negative rates, usually measurement noise) is clamped:
// when both candidates fall below the configured floor the floor rate
// is reported with basis "nominal". The governing rate is therefore
// always positive.
func CorrosionRate(c vessel.Component, h RateHistory, cfg Config) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, geometryError(c.ID, TypeCorrosionRate, "invalid component: %v", err)
	}
	if err := h.validate(c.ID); err != nil {
		return Result{}, err
	}

	yearsPrev := yearsBetween(h.PreviousDate, h.CurrentDate)
	if yearsPrev <= 0 {
		return Result{}, historyError(c.ID, TypeCorrosionRate,
			"previous measurement %s is not before current measurement %s",
			h.PreviousDate.Format("2006-01-02"), h.CurrentDate.Format("2006-01-02"))
	}
	yearsInstall := yearsBetween(c.InstallDate, h.CurrentDate)
	if yearsInstall <= 0 {
		return Result{}, historyError(c.ID, TypeCorrosionRate,
			"install date %s is not before current measurement %s",
			c.InstallDate.Format("2006-01-02"), h.CurrentDate.Format("2006-01-02"))
	}

	short := (h.PreviousThickness - h.CurrentThickness) / yearsPrev
	long := (c.NominalThickness - h.CurrentThickness) / yearsInstall

	governing := max(short, long, 0)
	var basis, rationale string
	switch {
	case governing < cfg.NominalRateFloor:
		governing = cfg.NominalRateFloor
		basis = BasisNominal
		rationale = fmt.Sprintf(
			"short-term rate %.4f in/yr and long-term rate %.4f in/yr are both below the %.4f in/yr floor; nominal floor rate applied",
			short, long, cfg.NominalRateFloor)
	case long >= short:
		basis = BasisLongTerm
		rationale = fmt.Sprintf(
			"long-term rate %.4f in/yr since install %s meets or exceeds short-term rate %.4f in/yr (%s to %s); long-term governs",
			long, c.InstallDate.Format("2006-01-02"),
			short, h.PreviousDate.Format("2006-01-02"), h.CurrentDate.Format("2006-01-02"))
	default:
		basis = BasisShortTerm
		rationale = fmt.Sprintf(
			"short-term rate %.4f in/yr (%s to %s) exceeds long-term rate %.4f in/yr since install %s; short-term governs",
			short, h.PreviousDate.Format("2006-01-02"), h.CurrentDate.Format("2006-01-02"),
			long, c.InstallDate.Format("2006-01-02"))
	}

	r := Result{
		ComponentID: c.ID,
		Revision:    c.Revision,
		Type:        TypeCorrosionRate,
		Value:       governing,
		Unit:        "in/yr",
		Governs:     basis,
		Rationale:   rationale,
		Intermediates: []Intermediate{
			{Name: "short_term_rate", Value: short, Unit: "in/yr"},
			{Name: "long_term_rate", Value: long, Unit: "in/yr"},
			{Name: "years_since_previous", Value: yearsPrev, Unit: "yr"},
			{Name: "years_since_install", Value: yearsInstall, Unit: "yr"},
		},
		CodeRef: "API 510 7.1.1.1",
		Inputs: snap.Object{
			"component_id":          snap.String(c.ID),
			"revision":              snap.Int(c.Revision),
			"nominal_thickness_in":  snap.Float(c.NominalThickness),
			"install_date":          snap.TimeString(c.InstallDate),
			"previous_thickness_in": snap.Float(h.PreviousThickness),
			"previous_date":         snap.TimeString(h.PreviousDate),
			"current_thickness_in":  snap.Float(h.CurrentThickness),
			"current_date":          snap.TimeString(h.CurrentDate),
			"nominal_rate_floor":    snap.Float(cfg.NominalRateFloor),
		},
		EngineVersion: EngineVersion,
	}
	if err := r.seal(); err != nil {
		return Result{}, err
	}
	return r, nil
}

func (h RateHistory) validate(componentID string) error {
	switch {
	case h.PreviousDate.IsZero():
		return historyError(componentID, TypeCorrosionRate, "previous measurement date is missing")
	case h.PreviousThickness <= 0 || math.IsNaN(h.PreviousThickness) || math.IsInf(h.PreviousThickness, 0):
		return historyError(componentID, TypeCorrosionRate, "previous thickness %v in must be positive and finite", h.PreviousThickness)
	case h.CurrentDate.IsZero():
		return historyError(componentID, TypeCorrosionRate, "current measurement date is missing")
	case h.CurrentThickness <= 0 || math.IsNaN(h.CurrentThickness) || math.IsInf(h.CurrentThickness, 0):
		return historyError(componentID, TypeCorrosionRate, "current thickness %v in must be positive and finite", h.CurrentThickness)
	}
	return nil
}

// yearsBetween converts a date span to fractional years using the mean
// Julian year of 365.25 days.
func yearsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / (24 * 365.25)
}
