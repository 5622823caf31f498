package vessel

import (
	"fmt"
	"math"
	"time"
)

// MaxReadingPositions is the largest number of angular positions a
// single measurement event may carry. Survey procedure takes ultrasonic
// readings at up to eight clock positions around a course.
const MaxReadingPositions = 8

// MeasurementEvent is one thickness survey of a component: a set of
// ultrasonic readings taken at angular positions at a point in time.
// Events are append-only; a bad survey is superseded, never edited.
type MeasurementEvent struct {
	ComponentID string
	// TakenAt is the survey date. Rate calculations use it to compute
	// elapsed intervals, so it must be distinct from prior events.
	TakenAt time.Time
	// Readings are wall thicknesses in inches, one per angular
	// position, in position order.
	Readings []float64
	// Inspector identifies who recorded the survey. Informational;
	// excluded from calculation identity.
	Inspector string
}

// Governing returns the minimum reading, which governs all
// fitness-for-service math. Zero readings is a validation error, but
// Governing is total and returns 0 for an empty event.
func (m MeasurementEvent) Governing() float64 {
	if len(m.Readings) == 0 {
		return 0
	}
	lowest := m.Readings[0]
	for _, r := range m.Readings[1:] {
		if r < lowest {
			lowest = r
		}
	}
	return lowest
}

// Validate reports malformed measurement events.
func (m MeasurementEvent) Validate() error {
	if m.ComponentID == "" {
		return fmt.Errorf("measurement: component ID is required")
	}
	if m.TakenAt.IsZero() {
		return fmt.Errorf("measurement for %s: survey date is required", m.ComponentID)
	}
	if len(m.Readings) == 0 {
		return fmt.Errorf("measurement for %s: at least one reading is required", m.ComponentID)
	}
	if len(m.Readings) > MaxReadingPositions {
		return fmt.Errorf("measurement for %s: %d readings exceeds the %d position maximum",
			m.ComponentID, len(m.Readings), MaxReadingPositions)
	}
	for i, r := range m.Readings {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("measurement for %s: reading %d is not finite", m.ComponentID, i+1)
		}
		if r <= 0 {
			return fmt.Errorf("measurement for %s: reading %d must be positive, got %v",
				m.ComponentID, i+1, r)
		}
	}
	return nil
}
