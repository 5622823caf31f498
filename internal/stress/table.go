package stress

import (
	"fmt"
	"math"
	"sort"
)

// Point is one tabulated (temperature, allowable stress) pair.
type Point struct {
	TemperatureF float64
	StressPSI    float64
}

// Status annotates how a resolution was obtained.
type Status string

const (
	// StatusOK means the temperature hit a tabulated point exactly.
	StatusOK Status = "ok"
	// StatusInterpolated means the value was linearly interpolated
	// between the two bracketing tabulated points.
	StatusInterpolated Status = "ok_interpolated"
)

// Resolution is a successful allowable stress lookup.
type Resolution struct {
	// Spec is the canonical material specification that matched.
	Spec string
	// TemperatureF is the temperature the lookup was performed at.
	TemperatureF float64
	// StressPSI is the resolved allowable stress.
	StressPSI float64
	// Status records whether the value is tabulated or interpolated.
	Status Status
	// TableVersion identifies the dataset that produced the value.
	TableVersion string
}

// Interpolated is a convenience accessor for snapshot building.
func (r Resolution) Interpolated() bool { return r.Status == StatusInterpolated }

// Table is an immutable, versioned allowable stress table.
// Construct with NewTable; lookups go through Resolve.
type Table struct {
	version   string
	materials map[string][]Point
}

// NewTable validates and builds a stress table. Material keys are
// normalized; points are sorted by temperature and must be strictly
// increasing with positive stresses.
func NewTable(version string, materials map[string][]Point) (*Table, error) {
	if version == "" {
		return nil, fmt.Errorf("stress table: version is required")
	}
	if len(materials) == 0 {
		return nil, fmt.Errorf("stress table %s: no materials", version)
	}

	normalized := make(map[string][]Point, len(materials))
	for spec, points := range materials {
		canonical := Normalize(spec)
		if canonical == "" {
			return nil, fmt.Errorf("stress table %s: empty material specification", version)
		}
		if _, dup := normalized[canonical]; dup {
			return nil, fmt.Errorf("stress table %s: materials %q collide after normalization", version, canonical)
		}
		if len(points) == 0 {
			return nil, fmt.Errorf("stress table %s: material %s has no points", version, canonical)
		}

		sorted := make([]Point, len(points))
		copy(sorted, points)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].TemperatureF < sorted[j].TemperatureF
		})

		for i, p := range sorted {
			if math.IsNaN(p.TemperatureF) || math.IsInf(p.TemperatureF, 0) {
				return nil, fmt.Errorf("stress table %s: material %s point %d has non-finite temperature",
					version, canonical, i)
			}
			if p.StressPSI <= 0 || math.IsNaN(p.StressPSI) || math.IsInf(p.StressPSI, 0) {
				return nil, fmt.Errorf("stress table %s: material %s point %d has invalid stress %v",
					version, canonical, i, p.StressPSI)
			}
			if i > 0 && p.TemperatureF <= sorted[i-1].TemperatureF {
				return nil, fmt.Errorf("stress table %s: material %s has duplicate temperature %v",
					version, canonical, p.TemperatureF)
			}
		}

		normalized[canonical] = sorted
	}

	return &Table{version: version, materials: normalized}, nil
}

// Version returns the table's dataset version.
func (t *Table) Version() string { return t.version }

// Materials returns the canonical specifications in the table, sorted.
func (t *Table) Materials() []string {
	specs := make([]string, 0, len(t.materials))
	for spec := range t.materials {
		specs = append(specs, spec)
	}
	sort.Strings(specs)
	return specs
}

// Points returns the tabulated points for a canonical specification.
// The second return is false when the material is not in the table.
func (t *Table) Points(spec string) ([]Point, bool) {
	points, ok := t.materials[Normalize(spec)]
	return points, ok
}

// Resolve looks up the allowable stress for a material at a
// temperature. The specification is normalized before lookup. Exact
// table hits resolve as StatusOK; temperatures between points resolve
// by linear interpolation as StatusInterpolated. Temperatures outside
// the tabulated range (bounds inclusive) fail with OUT_OF_RANGE rather
// than extrapolating.
func (t *Table) Resolve(material string, temperatureF float64) (Resolution, error) {
	canonical := Normalize(material)

	points, ok := t.materials[canonical]
	if !ok {
		return Resolution{}, &ResolveError{
			Code:         ErrCodeUnknownMaterial,
			Material:     material,
			Canonical:    canonical,
			TemperatureF: temperatureF,
			TableVersion: t.version,
		}
	}

	minF := points[0].TemperatureF
	maxF := points[len(points)-1].TemperatureF

	if math.IsNaN(temperatureF) || math.IsInf(temperatureF, 0) ||
		temperatureF < minF || temperatureF > maxF {
		return Resolution{}, &ResolveError{
			Code:         ErrCodeOutOfRange,
			Material:     material,
			Canonical:    canonical,
			TemperatureF: temperatureF,
			TableVersion: t.version,
			MinF:         minF,
			MaxF:         maxF,
		}
	}

	// Binary search for the first point at or above the temperature.
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].TemperatureF >= temperatureF
	})

	if points[idx].TemperatureF == temperatureF {
		return Resolution{
			Spec:         canonical,
			TemperatureF: temperatureF,
			StressPSI:    points[idx].StressPSI,
			Status:       StatusOK,
			TableVersion: t.version,
		}, nil
	}

	lo, hi := points[idx-1], points[idx]
	frac := (temperatureF - lo.TemperatureF) / (hi.TemperatureF - lo.TemperatureF)
	stress := lo.StressPSI + (hi.StressPSI-lo.StressPSI)*frac

	return Resolution{
		Spec:         canonical,
		TemperatureF: temperatureF,
		StressPSI:    stress,
		Status:       StatusInterpolated,
		TableVersion: t.version,
	}, nil
}
