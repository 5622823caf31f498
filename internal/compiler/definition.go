package compiler

import (
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/verity-ndt/tminus/internal/vessel"
)

// Definition is one compiled vessel definition: the vessel's components
// plus any thickness surveys declared inline. Inline surveys are a
// convenience for import; the store remains the system of record.
type Definition struct {
	VesselID   string
	Components []vessel.Component
	Surveys    []vessel.MeasurementEvent
}

// dateLayout is the survey and install date format in definition files.
const dateLayout = "2006-01-02"

// CompileVessel parses a CUE value into a vessel Definition.
// Uses the CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the vessel struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileBytes(src)
//	def, err := CompileVessel(v.LookupPath(cue.ParsePath("vessel")))
func CompileVessel(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{}

	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return nil, &CompileError{
			Field:   "id",
			Message: "vessel id is required",
			Pos:     v.Pos(),
		}
	}
	id, err := idVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	def.VesselID = id

	compVal := v.LookupPath(cue.ParsePath("components"))
	if !compVal.Exists() {
		return nil, &CompileError{
			Field:   "components",
			Message: "at least one component is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := compVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		c, surveys, err := compileComponent(iter.Label(), def.VesselID, iter.Value())
		if err != nil {
			return nil, err
		}
		def.Components = append(def.Components, c)
		def.Surveys = append(def.Surveys, surveys...)
	}
	if len(def.Components) == 0 {
		return nil, &CompileError{
			Field:   "components",
			Message: "at least one component is required",
			Pos:     compVal.Pos(),
		}
	}

	return def, nil
}

// compileComponent parses one component block. The map label is the
// component ID.
func compileComponent(id, vesselID string, v cue.Value) (vessel.Component, []vessel.MeasurementEvent, error) {
	c := vessel.Component{
		ID:       id,
		VesselID: vesselID,
		Revision: 1,
	}

	kindStr, err := requiredString(v, id, "kind")
	if err != nil {
		return c, nil, err
	}
	kind, err := vessel.ParseKind(kindStr)
	if err != nil {
		return c, nil, &CompileError{
			Field:   componentField(id, "kind"),
			Message: err.Error(),
			Pos:     v.LookupPath(cue.ParsePath("kind")).Pos(),
		}
	}

	if revVal := v.LookupPath(cue.ParsePath("revision")); revVal.Exists() {
		rev, err := revVal.Int64()
		if err != nil {
			return c, nil, formatCUEError(err)
		}
		c.Revision = int(rev)
	}

	c.Geometry, err = compileGeometry(id, kind, v)
	if err != nil {
		return c, nil, err
	}

	c.Material, err = requiredString(v, id, "material")
	if err != nil {
		return c, nil, err
	}

	designVal := v.LookupPath(cue.ParsePath("design"))
	if !designVal.Exists() {
		return c, nil, &CompileError{
			Field:   componentField(id, "design"),
			Message: "design block is required",
			Pos:     v.Pos(),
		}
	}
	c.DesignPressure, err = requiredFloat(designVal, id, "design.pressure_psi")
	if err != nil {
		return c, nil, err
	}
	c.DesignTemperature, err = requiredFloat(designVal, id, "design.temperature_f")
	if err != nil {
		return c, nil, err
	}

	if effVal := v.LookupPath(cue.ParsePath("joint_efficiency")); effVal.Exists() {
		e, err := effVal.Float64()
		if err != nil {
			return c, nil, formatCUEError(err)
		}
		c.JointEfficiency = &e
	}

	c.NominalThickness, err = requiredFloat(v, id, "nominal_thickness_in")
	if err != nil {
		return c, nil, err
	}
	c.CorrosionAllowance, err = requiredFloat(v, id, "corrosion_allowance_in")
	if err != nil {
		return c, nil, err
	}

	installStr, err := requiredString(v, id, "install_date")
	if err != nil {
		return c, nil, err
	}
	c.InstallDate, err = time.Parse(dateLayout, installStr)
	if err != nil {
		return c, nil, &CompileError{
			Field:   componentField(id, "install_date"),
			Message: fmt.Sprintf("install date %q is not in YYYY-MM-DD form", installStr),
			Pos:     v.LookupPath(cue.ParsePath("install_date")).Pos(),
		}
	}

	if noteVal := v.LookupPath(cue.ParsePath("mawp_note")); noteVal.Exists() {
		note, err := noteVal.String()
		if err != nil {
			return c, nil, formatCUEError(err)
		}
		c.MAWPNote = note
	}

	surveys, err := compileSurveys(id, v.LookupPath(cue.ParsePath("surveys")))
	if err != nil {
		return c, nil, err
	}

	return c, surveys, nil
}

// compileGeometry parses the geometry block for the declared kind.
func compileGeometry(id string, kind vessel.Kind, comp cue.Value) (vessel.Geometry, error) {
	v := comp.LookupPath(cue.ParsePath("geometry"))
	if !v.Exists() {
		return nil, &CompileError{
			Field:   componentField(id, "geometry"),
			Message: "geometry block is required",
			Pos:     comp.Pos(),
		}
	}

	switch kind {
	case vessel.KindShell:
		r, err := requiredFloat(v, id, "geometry.inside_radius_in")
		if err != nil {
			return nil, err
		}
		return vessel.Shell{InsideRadius: r}, nil

	case vessel.KindEllipsoidalHead:
		d, err := requiredFloat(v, id, "geometry.inside_diameter_in")
		if err != nil {
			return nil, err
		}
		return vessel.EllipsoidalHead{InsideDiameter: d}, nil

	case vessel.KindTorisphericalHead:
		crown, err := requiredFloat(v, id, "geometry.crown_radius_in")
		if err != nil {
			return nil, err
		}
		knuckle, err := requiredFloat(v, id, "geometry.knuckle_radius_in")
		if err != nil {
			return nil, err
		}
		return vessel.TorisphericalHead{CrownRadius: crown, KnuckleRadius: knuckle}, nil

	case vessel.KindHemisphericalHead:
		r, err := requiredFloat(v, id, "geometry.inside_radius_in")
		if err != nil {
			return nil, err
		}
		return vessel.HemisphericalHead{InsideRadius: r}, nil

	case vessel.KindNozzle:
		od, err := requiredFloat(v, id, "geometry.outside_diameter_in")
		if err != nil {
			return nil, err
		}
		wall, err := requiredFloat(v, id, "geometry.nominal_wall_in")
		if err != nil {
			return nil, err
		}
		parentVal := v.LookupPath(cue.ParsePath("parent"))
		if !parentVal.Exists() {
			return nil, &CompileError{
				Field:   componentField(id, "geometry.parent"),
				Message: "nozzle parent component is required",
				Pos:     v.Pos(),
			}
		}
		parent, err := parentVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		n := vessel.Nozzle{OutsideDiameter: od, NominalWall: wall, Parent: parent}
		if tolVal := v.LookupPath(cue.ParsePath("tolerance_override")); tolVal.Exists() {
			tol, err := tolVal.Float64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			n.ToleranceOverride = &tol
		}
		return n, nil

	default:
		return nil, &CompileError{
			Field:   componentField(id, "kind"),
			Message: fmt.Sprintf("unsupported geometry kind %q", kind),
			Pos:     comp.Pos(),
		}
	}
}

// compileSurveys parses the optional inline survey list.
func compileSurveys(id string, v cue.Value) ([]vessel.MeasurementEvent, error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var events []vessel.MeasurementEvent
	for iter.Next() {
		sv := iter.Value()

		takenStr, err := requiredString(sv, id, "surveys.taken_at")
		if err != nil {
			return nil, err
		}
		takenAt, err := time.Parse(dateLayout, takenStr)
		if err != nil {
			return nil, &CompileError{
				Field:   componentField(id, "surveys.taken_at"),
				Message: fmt.Sprintf("survey date %q is not in YYYY-MM-DD form", takenStr),
				Pos:     sv.Pos(),
			}
		}

		readingsVal := sv.LookupPath(cue.ParsePath("readings_in"))
		if !readingsVal.Exists() {
			return nil, &CompileError{
				Field:   componentField(id, "surveys.readings_in"),
				Message: "survey readings are required",
				Pos:     sv.Pos(),
			}
		}
		rIter, err := readingsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var readings []float64
		for rIter.Next() {
			r, err := rIter.Value().Float64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			readings = append(readings, r)
		}

		inspector := ""
		if inspVal := sv.LookupPath(cue.ParsePath("inspector")); inspVal.Exists() {
			inspector, err = inspVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}

		events = append(events, vessel.MeasurementEvent{
			ComponentID: id,
			TakenAt:     takenAt,
			Readings:    readings,
			Inspector:   inspector,
		})
	}

	return events, nil
}

func componentField(id, field string) string {
	return fmt.Sprintf("components.%s.%s", id, field)
}

// requiredString extracts a required string field with a positioned
// error when missing.
func requiredString(v cue.Value, id, field string) (string, error) {
	fieldVal := v.LookupPath(cue.ParsePath(pathLeaf(field)))
	if !fieldVal.Exists() {
		return "", &CompileError{
			Field:   componentField(id, field),
			Message: fmt.Sprintf("%s is required", pathLeaf(field)),
			Pos:     v.Pos(),
		}
	}
	s, err := fieldVal.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// requiredFloat extracts a required numeric field with a positioned
// error when missing.
func requiredFloat(v cue.Value, id, field string) (float64, error) {
	fieldVal := v.LookupPath(cue.ParsePath(pathLeaf(field)))
	if !fieldVal.Exists() {
		return 0, &CompileError{
			Field:   componentField(id, field),
			Message: fmt.Sprintf("%s is required", pathLeaf(field)),
			Pos:     v.Pos(),
		}
	}
	f, err := fieldVal.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}

// pathLeaf returns the last segment of a dotted field path.
func pathLeaf(field string) string {
	for i := len(field) - 1; i >= 0; i-- {
		if field[i] == '.' {
			return field[i+1:]
		}
	}
	return field
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
