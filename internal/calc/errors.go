package calc

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes calculation failures.
type ErrorCode string

const (
	// ErrCodeInvalidGeometry indicates a physically invalid input
	// combination: nonpositive dimensions or a formula denominator
	// going nonpositive at the given pressure.
	ErrCodeInvalidGeometry ErrorCode = "INVALID_GEOMETRY"

	// ErrCodeInsufficientHistory indicates rate-dependent outputs
	// cannot be computed: a reference thickness or date is missing, or
	// elapsed time is nonpositive. Blocks corrosion-rate and
	// remaining-life outputs only, never current-thickness adequacy.
	ErrCodeInsufficientHistory ErrorCode = "INSUFFICIENT_HISTORY"
)

// Error is a calculation failure with structured context.
type Error struct {
	Code ErrorCode

	// ComponentID identifies the affected component.
	ComponentID string
	// Calc identifies which calculation failed.
	Calc Type
	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ComponentID != "" {
		return fmt.Sprintf("%s: %s (component=%s, calc=%s)", e.Code, e.Message, e.ComponentID, e.Calc)
	}
	return fmt.Sprintf("%s: %s (calc=%s)", e.Code, e.Message, e.Calc)
}

// IsInvalidGeometry returns true if the error is an invalid-geometry
// failure. Uses errors.As to handle wrapped errors.
func IsInvalidGeometry(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidGeometry
	}
	return false
}

// IsInsufficientHistory returns true if the error is an
// insufficient-history failure. Uses errors.As to handle wrapped errors.
func IsInsufficientHistory(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInsufficientHistory
	}
	return false
}

func geometryError(componentID string, calc Type, format string, args ...any) *Error {
	return &Error{
		Code:        ErrCodeInvalidGeometry,
		ComponentID: componentID,
		Calc:        calc,
		Message:     fmt.Sprintf(format, args...),
	}
}

func historyError(componentID string, calc Type, format string, args ...any) *Error {
	return &Error{
		Code:        ErrCodeInsufficientHistory,
		ComponentID: componentID,
		Calc:        calc,
		Message:     fmt.Sprintf(format, args...),
	}
}
