package anomaly

import "fmt"

// Category identifies which rule raised an anomaly. Labels are stable
// storage values.
type Category string

const (
	CategoryBelowMinimum      Category = "below_minimum"
	CategoryHighRate          Category = "high_rate"
	CategoryNegativeLife      Category = "negative_life"
	CategoryMissingEfficiency Category = "missing_efficiency"
	CategoryExcessVariation   Category = "excess_variation"
	CategoryUnusualMAWP       Category = "unusual_mawp"
	CategoryIncompleteData    Category = "incomplete_data"
)

// Severity grades an anomaly. The five levels order critical > high >
// medium > warning > info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank returns the sort position of the severity, most severe first.
// Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityWarning:
		return 3
	case SeverityInfo:
		return 4
	default:
		return 5
	}
}

// ReviewStatus is the human-review lifecycle state of an anomaly.
// Detection always emits pending; transitions happen through review
// tooling, never inside the engine.
type ReviewStatus string

const (
	ReviewPending       ReviewStatus = "pending"
	ReviewAcknowledged  ReviewStatus = "acknowledged"
	ReviewResolved      ReviewStatus = "resolved"
	ReviewFalsePositive ReviewStatus = "false_positive"
)

// ParseReviewStatus validates a stored or user-supplied status string.
func ParseReviewStatus(s string) (ReviewStatus, error) {
	switch rs := ReviewStatus(s); rs {
	case ReviewPending, ReviewAcknowledged, ReviewResolved, ReviewFalsePositive:
		return rs, nil
	default:
		return "", fmt.Errorf("unknown review status %q", s)
	}
}

// Anomaly is one rule firing against one component.
type Anomaly struct {
	Category    Category
	Severity    Severity
	ComponentID string

	// ResultID links the calculation result that tripped the rule.
	// Empty for rules evaluated against the component record or raw
	// readings rather than a result.
	ResultID string

	// Detected is the value that violated the rule.
	Detected float64
	// Expected describes the acceptable range the value left.
	Expected string
	// Detail is a one-line human-readable explanation.
	Detail string

	ReviewStatus ReviewStatus
}
