package compiler

import (
	"fmt"
	"strings"

	"github.com/verity-ndt/tminus/internal/vessel"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedInput = "E100" // unsupported input type for validation

	// Definition errors (E101-E103)
	ErrVesselIDEmpty      = "E101" // vessel id is required
	ErrNoComponents       = "E102" // at least one component required
	ErrDuplicateComponent = "E103" // duplicate component id+revision

	// Component errors (E104-E109)
	ErrComponentInvalid    = "E104" // structural validation failed
	ErrEfficiencyOutOfBand = "E105" // joint efficiency outside the accepted band
	ErrNegativeAllowance   = "E106" // corrosion allowance below zero
	ErrKnuckleTooSharp     = "E107" // knuckle radius under 6% of crown radius
	ErrUnknownParent       = "E108" // nozzle parent not in the definition
	ErrParentIsNozzle      = "E109" // nozzle parent must be a shell or head

	// Survey errors (E110-E119)
	ErrSurveyInvalid = "E110" // survey readings or date invalid
	ErrSurveyForeign = "E111" // survey references an unknown component
)

// Joint efficiency band accepted in definitions. Full radiography gives
// 1.0; anything under 0.45 is below every joint category in the tables.
const (
	minJointEfficiency = 0.45
	maxJointEfficiency = 1.0
)

// minKnuckleRatio is the smallest knuckle/crown ratio the torispherical
// formula's correlation range covers.
const minKnuckleRatio = 0.06

// ValidationError represents a definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled vessel definition against acceptance
// rules. Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch def := v.(type) {
	case *Definition:
		return validateDefinition(def)
	case Definition:
		return validateDefinition(&def)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported input type: %T", v),
			Code:    ErrUnsupportedInput,
		}}
	}
}

// validateDefinition validates one vessel definition.
func validateDefinition(def *Definition) []ValidationError {
	var errs []ValidationError

	// E101: vessel id is required
	if strings.TrimSpace(def.VesselID) == "" {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: "vessel id is required and must be non-empty",
			Code:    ErrVesselIDEmpty,
		})
	}

	// E102: at least one component required
	if len(def.Components) == 0 {
		errs = append(errs, ValidationError{
			Field:   "components",
			Message: "at least one component is required",
			Code:    ErrNoComponents,
		})
	}

	// Track identities for duplicate and cross-reference checks
	seen := make(map[string]bool)
	componentIDs := make(map[string]bool)
	nozzleIDs := make(map[string]bool)
	for _, c := range def.Components {
		componentIDs[c.ID] = true
		if c.Geometry != nil && c.Geometry.Kind() == vessel.KindNozzle {
			nozzleIDs[c.ID] = true
		}
	}

	for _, c := range def.Components {
		// E103: duplicate component id+revision
		key := fmt.Sprintf("%s@r%d", c.ID, c.Revision)
		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   componentField(c.ID, "revision"),
				Message: fmt.Sprintf("duplicate component %q revision %d", c.ID, c.Revision),
				Code:    ErrDuplicateComponent,
			})
		}
		seen[key] = true

		errs = append(errs, validateComponent(c, componentIDs, nozzleIDs)...)
	}

	for i, m := range def.Surveys {
		// E110: survey structurally invalid
		if err := m.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("surveys[%d]", i),
				Message: err.Error(),
				Code:    ErrSurveyInvalid,
			})
			continue
		}
		// E111: survey must reference a component in the definition
		if !componentIDs[m.ComponentID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("surveys[%d].component", i),
				Message: fmt.Sprintf("survey references unknown component %q", m.ComponentID),
				Code:    ErrSurveyForeign,
			})
		}
	}

	return errs
}

// validateComponent validates one component against structural rules
// and definition-level acceptance bands.
func validateComponent(c vessel.Component, componentIDs, nozzleIDs map[string]bool) []ValidationError {
	var errs []ValidationError

	// E104: structural validation failed
	if err := c.Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   componentField(c.ID, "component"),
			Message: err.Error(),
			Code:    ErrComponentInvalid,
		})
	}

	// E105: declared joint efficiency must sit in the accepted band.
	// An absent efficiency means the engine default applies and is
	// checked there, not here.
	if c.JointEfficiency != nil {
		if e := *c.JointEfficiency; e < minJointEfficiency || e > maxJointEfficiency {
			errs = append(errs, ValidationError{
				Field: componentField(c.ID, "joint_efficiency"),
				Message: fmt.Sprintf("joint efficiency %v must be in [%v, %v]",
					e, minJointEfficiency, maxJointEfficiency),
				Code: ErrEfficiencyOutOfBand,
			})
		}
	}

	// E106: corrosion allowance below zero
	if c.CorrosionAllowance < 0 {
		errs = append(errs, ValidationError{
			Field:   componentField(c.ID, "corrosion_allowance_in"),
			Message: fmt.Sprintf("corrosion allowance %v must not be negative", c.CorrosionAllowance),
			Code:    ErrNegativeAllowance,
		})
	}

	switch g := c.Geometry.(type) {
	case vessel.TorisphericalHead:
		// E107: knuckle radius under 6% of crown radius
		if g.CrownRadius > 0 && g.KnuckleRadius < minKnuckleRatio*g.CrownRadius {
			errs = append(errs, ValidationError{
				Field: componentField(c.ID, "geometry.knuckle_radius_in"),
				Message: fmt.Sprintf("knuckle radius %v is under %v%% of crown radius %v",
					g.KnuckleRadius, minKnuckleRatio*100, g.CrownRadius),
				Code: ErrKnuckleTooSharp,
			})
		}

	case vessel.Nozzle:
		if g.Parent == "" {
			break // E104 already reports the missing parent
		}
		// E108: nozzle parent not in the definition
		if !componentIDs[g.Parent] {
			errs = append(errs, ValidationError{
				Field:   componentField(c.ID, "geometry.parent"),
				Message: fmt.Sprintf("nozzle parent %q is not a component of this vessel", g.Parent),
				Code:    ErrUnknownParent,
			})
		} else if nozzleIDs[g.Parent] {
			// E109: nozzle parent must be a shell or head
			errs = append(errs, ValidationError{
				Field:   componentField(c.ID, "geometry.parent"),
				Message: fmt.Sprintf("nozzle parent %q is itself a nozzle", g.Parent),
				Code:    ErrParentIsNozzle,
			})
		}
	}

	return errs
}
