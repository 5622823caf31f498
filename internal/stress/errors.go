package stress

import (
	"errors"
	"fmt"
)

// ResolveErrorCode categorizes stress resolution failures.
type ResolveErrorCode string

const (
	// ErrCodeUnknownMaterial indicates the material specification is not
	// in the table, even after normalization.
	ErrCodeUnknownMaterial ResolveErrorCode = "UNKNOWN_MATERIAL"

	// ErrCodeOutOfRange indicates the requested temperature falls
	// outside the tabulated range. The resolver never extrapolates.
	ErrCodeOutOfRange ResolveErrorCode = "OUT_OF_RANGE"
)

// ResolveError describes why an allowable stress lookup failed.
// It carries the normalized specification and table context so callers
// can report the failure without re-deriving the lookup.
type ResolveError struct {
	Code ResolveErrorCode

	// Material is the specification as supplied by the caller.
	Material string
	// Canonical is the normalized form that was looked up.
	Canonical string
	// TemperatureF is the requested temperature.
	TemperatureF float64
	// TableVersion identifies the table consulted.
	TableVersion string

	// MinF and MaxF bound the tabulated range (out-of-range errors only).
	MinF float64
	MaxF float64
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	switch e.Code {
	case ErrCodeOutOfRange:
		return fmt.Sprintf("%s: %s at %.1f F outside tabulated range [%.1f, %.1f] (table %s)",
			e.Code, e.Canonical, e.TemperatureF, e.MinF, e.MaxF, e.TableVersion)
	default:
		return fmt.Sprintf("%s: material %q (normalized %q) not in table %s",
			e.Code, e.Material, e.Canonical, e.TableVersion)
	}
}

// IsUnknownMaterial returns true if err is an unknown-material
// resolution failure. Uses errors.As to handle wrapped errors.
func IsUnknownMaterial(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownMaterial
	}
	return false
}

// IsOutOfRange returns true if err is an out-of-range resolution
// failure. Uses errors.As to handle wrapped errors.
func IsOutOfRange(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeOutOfRange
	}
	return false
}
