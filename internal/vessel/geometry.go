package vessel

import "fmt"

// Kind identifies a geometry variant. It exists for storage labels and
// display; formula dispatch uses the Geometry variants themselves.
type Kind int

const (
	KindUnknown Kind = iota
	KindShell
	KindEllipsoidalHead
	KindTorisphericalHead
	KindHemisphericalHead
	KindNozzle
)

// String returns the stable label used in storage and definitions.
func (k Kind) String() string {
	switch k {
	case KindShell:
		return "shell"
	case KindEllipsoidalHead:
		return "ellipsoidal_head"
	case KindTorisphericalHead:
		return "torispherical_head"
	case KindHemisphericalHead:
		return "hemispherical_head"
	case KindNozzle:
		return "nozzle"
	default:
		return "unknown"
	}
}

// ParseKind converts a storage label back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "shell":
		return KindShell, nil
	case "ellipsoidal_head":
		return KindEllipsoidalHead, nil
	case "torispherical_head":
		return KindTorisphericalHead, nil
	case "hemispherical_head":
		return KindHemisphericalHead, nil
	case "nozzle":
		return KindNozzle, nil
	default:
		return KindUnknown, fmt.Errorf("unknown geometry kind %q", s)
	}
}

// Geometry is a sealed interface over the component shapes the engine
// can assess. Only the variants in this package implement it.
//
// All dimensions are inches, measured on the corroded (inside) surface
// unless stated otherwise.
type Geometry interface {
	Kind() Kind

	// Validate reports nonphysical dimensions. It covers static checks
	// only; pressure-dependent degeneracies (formula denominators going
	// nonpositive) are caught at calculation time.
	Validate() error

	geometry() // sealed
}

// Shell is a cylindrical shell section under internal pressure.
type Shell struct {
	// InsideRadius is the corroded inside radius R.
	InsideRadius float64
}

func (Shell) Kind() Kind { return KindShell }
func (Shell) geometry()  {}

func (g Shell) Validate() error {
	if g.InsideRadius <= 0 {
		return fmt.Errorf("shell inside radius must be positive, got %v", g.InsideRadius)
	}
	return nil
}

// EllipsoidalHead is a 2:1 semi-elliptical head.
type EllipsoidalHead struct {
	// InsideDiameter is the corroded inside diameter D.
	InsideDiameter float64
}

func (EllipsoidalHead) Kind() Kind { return KindEllipsoidalHead }
func (EllipsoidalHead) geometry()  {}

func (g EllipsoidalHead) Validate() error {
	if g.InsideDiameter <= 0 {
		return fmt.Errorf("ellipsoidal head inside diameter must be positive, got %v", g.InsideDiameter)
	}
	return nil
}

// TorisphericalHead is a flanged and dished head defined by its crown
// and knuckle radii.
type TorisphericalHead struct {
	// CrownRadius is the inside crown (spherical) radius L.
	CrownRadius float64
	// KnuckleRadius is the inside knuckle radius r.
	KnuckleRadius float64
}

func (TorisphericalHead) Kind() Kind { return KindTorisphericalHead }
func (TorisphericalHead) geometry()  {}

func (g TorisphericalHead) Validate() error {
	if g.CrownRadius <= 0 {
		return fmt.Errorf("torispherical head crown radius must be positive, got %v", g.CrownRadius)
	}
	if g.KnuckleRadius <= 0 {
		return fmt.Errorf("torispherical head knuckle radius must be positive, got %v", g.KnuckleRadius)
	}
	if g.KnuckleRadius >= g.CrownRadius {
		return fmt.Errorf("torispherical head knuckle radius %v must be smaller than crown radius %v",
			g.KnuckleRadius, g.CrownRadius)
	}
	return nil
}

// HemisphericalHead is a hemispherical head.
type HemisphericalHead struct {
	// InsideRadius is the corroded inside radius R.
	InsideRadius float64
}

func (HemisphericalHead) Kind() Kind { return KindHemisphericalHead }
func (HemisphericalHead) geometry()  {}

func (g HemisphericalHead) Validate() error {
	if g.InsideRadius <= 0 {
		return fmt.Errorf("hemispherical head inside radius must be positive, got %v", g.InsideRadius)
	}
	return nil
}

// Nozzle is a nozzle penetration through a shell or head.
type Nozzle struct {
	// OutsideDiameter is the nozzle pipe outside diameter.
	OutsideDiameter float64
	// NominalWall is the nominal (new) pipe wall thickness t_n.
	NominalWall float64
	// Parent is the component ID of the shell or head the nozzle
	// penetrates. Reinforcement evaluation needs the parent's nominal
	// and required thicknesses.
	Parent string
	// ToleranceOverride replaces the configured pipe manufacturing
	// undertolerance (default 12.5%) when set. Overrides are flagged
	// on every result computed from them.
	ToleranceOverride *float64
}

func (Nozzle) Kind() Kind { return KindNozzle }
func (Nozzle) geometry()  {}

func (g Nozzle) Validate() error {
	if g.OutsideDiameter <= 0 {
		return fmt.Errorf("nozzle outside diameter must be positive, got %v", g.OutsideDiameter)
	}
	if g.NominalWall <= 0 {
		return fmt.Errorf("nozzle nominal wall must be positive, got %v", g.NominalWall)
	}
	if 2*g.NominalWall >= g.OutsideDiameter {
		return fmt.Errorf("nozzle wall %v leaves no bore inside outside diameter %v",
			g.NominalWall, g.OutsideDiameter)
	}
	if g.Parent == "" {
		return fmt.Errorf("nozzle must reference the parent component it penetrates")
	}
	if g.ToleranceOverride != nil {
		if t := *g.ToleranceOverride; t < 0 || t >= 1 {
			return fmt.Errorf("nozzle tolerance override %v must be in [0, 1)", t)
		}
	}
	return nil
}

// Tolerance returns the pipe undertolerance to apply, preferring the
// override when one is set. The second return reports whether the
// override was used.
func (g Nozzle) Tolerance(defaultTolerance float64) (float64, bool) {
	if g.ToleranceOverride != nil {
		return *g.ToleranceOverride, true
	}
	return defaultTolerance, false
}

// InsideRadius returns the nozzle bore radius at nominal wall.
func (g Nozzle) InsideRadius() float64 {
	return (g.OutsideDiameter - 2*g.NominalWall) / 2
}

// OpeningDiameter returns the finished opening diameter d used for
// reinforcement area calculations.
func (g Nozzle) OpeningDiameter() float64 {
	return g.OutsideDiameter - 2*g.NominalWall
}
