package calc

import (
	"math"

	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// pressureRating is the outcome of a MAWP evaluation: the governing
// pressure, which stress direction produced it, and the code paragraph
// for that direction.
type pressureRating struct {
	value   float64
	governs string
	ref     string
	ivs     []Intermediate
}

// formulas binds one geometry variant to its code formulas. All
// pressures are psi, all lengths inches. Implementations assume the
// geometry already passed Validate and the thickness argument of
// mawpAt is positive.
type formulas interface {
	requiredThickness(p, s, e float64) (float64, []Intermediate, error)
	mawpAt(t, s, e float64) (pressureRating, error)
	thicknessRef() string
	dims() snap.Object
}

// formulasFor selects the formula set for a component's geometry. This
// is the single point where geometry variants are switched on; nozzles
// are rejected here because they are evaluated under UG-45 instead.
func formulasFor(c vessel.Component, calc Type) (formulas, error) {
	switch g := c.Geometry.(type) {
	case vessel.Shell:
		return shellFormulas{componentID: c.ID, calc: calc, radius: g.InsideRadius}, nil
	case vessel.EllipsoidalHead:
		return ellipsoidalFormulas{componentID: c.ID, calc: calc, diameter: g.InsideDiameter}, nil
	case vessel.TorisphericalHead:
		return torisphericalFormulas{componentID: c.ID, calc: calc, crown: g.CrownRadius, knuckle: g.KnuckleRadius}, nil
	case vessel.HemisphericalHead:
		return hemisphericalFormulas{componentID: c.ID, calc: calc, radius: g.InsideRadius}, nil
	case vessel.Nozzle:
		return nil, geometryError(c.ID, calc, "nozzle components are evaluated under UG-45, not the shell and head formulas")
	default:
		return nil, geometryError(c.ID, calc, "unsupported geometry kind %q", c.Geometry.Kind())
	}
}

// shellFormulas implements UG-27(c) for cylindrical shells.
type shellFormulas struct {
	componentID string
	calc        Type
	radius      float64
}

func (f shellFormulas) requiredThickness(p, s, e float64) (float64, []Intermediate, error) {
	den := s*e - 0.6*p
	if den <= 0 {
		return 0, nil, geometryError(f.componentID, f.calc,
			"stress term S*E - 0.6*P = %.1f psi must be positive (S=%.1f, E=%.3f, P=%.1f)", den, s, e, p)
	}
	t := p * f.radius / den
	ivs := []Intermediate{{Name: "denominator", Value: den, Unit: "psi"}}
	return t, ivs, nil
}

func (f shellFormulas) mawpAt(t, s, e float64) (pressureRating, error) {
	hoop := s * e * t / (f.radius + 0.6*t)
	lonDen := f.radius - 0.4*t
	if lonDen <= 0 {
		return pressureRating{}, geometryError(f.componentID, f.calc,
			"longitudinal term R - 0.4*t = %.4f in must be positive (R=%.4f, t=%.4f)", lonDen, f.radius, t)
	}
	lon := 2 * s * e * t / lonDen
	ivs := []Intermediate{
		{Name: "mawp_hoop", Value: hoop, Unit: "psi"},
		{Name: "mawp_longitudinal", Value: lon, Unit: "psi"},
	}
	if hoop <= lon {
		return pressureRating{value: hoop, governs: BasisHoop, ref: "UG-27(c)(1)", ivs: ivs}, nil
	}
	return pressureRating{value: lon, governs: BasisLongitudinal, ref: "UG-27(c)(2)", ivs: ivs}, nil
}

func (f shellFormulas) thicknessRef() string { return "UG-27(c)(1)" }

func (f shellFormulas) dims() snap.Object {
	return snap.Object{"inside_radius_in": snap.Float(f.radius)}
}

// ellipsoidalFormulas implements UG-32(d) for 2:1 ellipsoidal heads.
type ellipsoidalFormulas struct {
	componentID string
	calc        Type
	diameter    float64
}

func (f ellipsoidalFormulas) requiredThickness(p, s, e float64) (float64, []Intermediate, error) {
	den := 2*s*e - 0.2*p
	if den <= 0 {
		return 0, nil, geometryError(f.componentID, f.calc,
			"stress term 2*S*E - 0.2*P = %.1f psi must be positive (S=%.1f, E=%.3f, P=%.1f)", den, s, e, p)
	}
	t := p * f.diameter / den
	ivs := []Intermediate{{Name: "denominator", Value: den, Unit: "psi"}}
	return t, ivs, nil
}

func (f ellipsoidalFormulas) mawpAt(t, s, e float64) (pressureRating, error) {
	v := 2 * s * e * t / (f.diameter + 0.2*t)
	return pressureRating{value: v, ref: "UG-32(d)"}, nil
}

func (f ellipsoidalFormulas) thicknessRef() string { return "UG-32(d)" }

func (f ellipsoidalFormulas) dims() snap.Object {
	return snap.Object{"inside_diameter_in": snap.Float(f.diameter)}
}

// torisphericalFormulas implements UG-32(e) with the M factor from
// Appendix 1-4(d).
type torisphericalFormulas struct {
	componentID string
	calc        Type
	crown       float64
	knuckle     float64
}

func (f torisphericalFormulas) mFactor() float64 {
	return 0.25 * (3 + math.Sqrt(f.crown/f.knuckle))
}

func (f torisphericalFormulas) requiredThickness(p, s, e float64) (float64, []Intermediate, error) {
	m := f.mFactor()
	den := 2*s*e - 0.2*p
	if den <= 0 {
		return 0, nil, geometryError(f.componentID, f.calc,
			"stress term 2*S*E - 0.2*P = %.1f psi must be positive (S=%.1f, E=%.3f, P=%.1f)", den, s, e, p)
	}
	t := p * f.crown * m / den
	ivs := []Intermediate{
		{Name: "m_factor", Value: m, Unit: ""},
		{Name: "denominator", Value: den, Unit: "psi"},
	}
	return t, ivs, nil
}

func (f torisphericalFormulas) mawpAt(t, s, e float64) (pressureRating, error) {
	m := f.mFactor()
	v := 2 * s * e * t / (f.crown*m + 0.2*t)
	ivs := []Intermediate{{Name: "m_factor", Value: m, Unit: ""}}
	return pressureRating{value: v, ref: "UG-32(e)", ivs: ivs}, nil
}

func (f torisphericalFormulas) thicknessRef() string { return "UG-32(e)" }

func (f torisphericalFormulas) dims() snap.Object {
	return snap.Object{
		"crown_radius_in":   snap.Float(f.crown),
		"knuckle_radius_in": snap.Float(f.knuckle),
	}
}

// hemisphericalFormulas implements UG-32(f) for hemispherical heads.
type hemisphericalFormulas struct {
	componentID string
	calc        Type
	radius      float64
}

func (f hemisphericalFormulas) requiredThickness(p, s, e float64) (float64, []Intermediate, error) {
	den := 2*s*e - 0.2*p
	if den <= 0 {
		return 0, nil, geometryError(f.componentID, f.calc,
			"stress term 2*S*E - 0.2*P = %.1f psi must be positive (S=%.1f, E=%.3f, P=%.1f)", den, s, e, p)
	}
	t := p * f.radius / den
	ivs := []Intermediate{{Name: "denominator", Value: den, Unit: "psi"}}
	return t, ivs, nil
}

func (f hemisphericalFormulas) mawpAt(t, s, e float64) (pressureRating, error) {
	v := 2 * s * e * t / (f.radius + 0.2*t)
	return pressureRating{value: v, ref: "UG-32(f)"}, nil
}

func (f hemisphericalFormulas) thicknessRef() string { return "UG-32(f)" }

func (f hemisphericalFormulas) dims() snap.Object {
	return snap.Object{"inside_radius_in": snap.Float(f.radius)}
}
