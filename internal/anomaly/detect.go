package anomaly

import (
	"fmt"
	"math"

	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// Input is everything one detection pass sees: the component record,
// the readings behind the governing measurement, and whichever
// calculation results the pipeline produced. Absent results are nil
// and the rules that need them do not fire.
type Input struct {
	Component vessel.Component

	// Readings are the individual probe readings of the governing
	// measurement event.
	Readings []float64

	// Actual is the governing (minimum) measured thickness.
	Actual float64

	Required *calc.Result
	MAWP     *calc.Result
	Rate     *calc.Result
	Life     *calc.Result

	// RateSkipped is set when measurement history was insufficient and
	// the rate-dependent outputs were skipped rather than failed.
	RateSkipped bool
}

// Detect applies every rule, in declaration order, with no suppression
// between rules. The returned slice is never nil.
func Detect(in Input, cfg calc.Config) []Anomaly {
	out := []Anomaly{}
	id := in.Component.ID

	// Actual wall below the required minimum. The deficit is the wall
	// the component is short by, the number a repair must restore.
	if in.Required != nil && in.Actual < in.Required.Value {
		out = append(out, Anomaly{
			Category:    CategoryBelowMinimum,
			Severity:    SeverityCritical,
			ComponentID: id,
			ResultID:    in.Required.ID,
			Detected:    in.Actual,
			Expected:    fmt.Sprintf(">= %.4f in", in.Required.Value),
			Detail: fmt.Sprintf("actual thickness %.4f in is below the required minimum %.4f in (deficit %.4f in)",
				in.Actual, in.Required.Value, in.Required.Value-in.Actual),
			ReviewStatus: ReviewPending,
		})
	}

	// Governing corrosion rate above the high-rate threshold.
	if in.Rate != nil && in.Rate.Value > cfg.HighRateThreshold {
		out = append(out, Anomaly{
			Category:    CategoryHighRate,
			Severity:    SeverityHigh,
			ComponentID: id,
			ResultID:    in.Rate.ID,
			Detected:    in.Rate.Value,
			Expected:    fmt.Sprintf("<= %.4f in/yr", cfg.HighRateThreshold),
			Detail: fmt.Sprintf("governing corrosion rate %.4f in/yr exceeds %.4f in/yr (%s basis)",
				in.Rate.Value, cfg.HighRateThreshold, in.Rate.Governs),
			ReviewStatus: ReviewPending,
		})
	}

	// Negative remaining life: the component is past its retirement
	// thickness.
	if in.Life != nil && in.Life.Value < 0 {
		out = append(out, Anomaly{
			Category:    CategoryNegativeLife,
			Severity:    SeverityCritical,
			ComponentID: id,
			ResultID:    in.Life.ID,
			Detected:    in.Life.Value,
			Expected:    ">= 0 yr",
			Detail:      fmt.Sprintf("remaining life %.1f yr; inspection is overdue", in.Life.Value),
			ReviewStatus: ReviewPending,
		})
	}

	// No documented joint efficiency on the component record.
	if in.Component.JointEfficiency == nil {
		out = append(out, Anomaly{
			Category:    CategoryMissingEfficiency,
			Severity:    SeverityWarning,
			ComponentID: id,
			Detected:    cfg.FallbackJointEfficiency,
			Expected:    "documented joint efficiency in (0, 1]",
			Detail: fmt.Sprintf("no joint efficiency on record; calculations assumed the conservative fallback E=%.2f",
				cfg.FallbackJointEfficiency),
			ReviewStatus: ReviewPending,
		})
	}

	// Reading spread beyond the variation limit.
	if s := sampleStddev(in.Readings); len(in.Readings) >= 2 && s > cfg.VariationStddevLimit {
		out = append(out, Anomaly{
			Category:    CategoryExcessVariation,
			Severity:    SeverityMedium,
			ComponentID: id,
			Detected:    s,
			Expected:    fmt.Sprintf("<= %.3f in", cfg.VariationStddevLimit),
			Detail: fmt.Sprintf("stddev of %d readings is %.4f in, above the %.3f in limit; suspect localized loss or probe error",
				len(in.Readings), s, cfg.VariationStddevLimit),
			ReviewStatus: ReviewPending,
		})
	}

	// MAWP far from design pressure with no documented cause.
	if in.MAWP != nil && in.Component.MAWPNote == "" {
		p := in.Component.DesignPressure
		dev := math.Abs(in.MAWP.Value-p) / p
		if dev > cfg.MAWPDeviationFraction {
			out = append(out, Anomaly{
				Category:    CategoryUnusualMAWP,
				Severity:    SeverityMedium,
				ComponentID: id,
				ResultID:    in.MAWP.ID,
				Detected:    dev,
				Expected:    fmt.Sprintf("within %.0f%% of design pressure %.1f psi", cfg.MAWPDeviationFraction*100, p),
				Detail: fmt.Sprintf("computed MAWP %.1f psi deviates %.0f%% from design pressure %.1f psi with no documented cause",
					in.MAWP.Value, dev*100, p),
				ReviewStatus: ReviewPending,
			})
		}
	}

	// Rate outputs skipped for lack of history.
	if in.RateSkipped {
		out = append(out, Anomaly{
			Category:     CategoryIncompleteData,
			Severity:     SeverityInfo,
			ComponentID:  id,
			Expected:     "complete thickness history",
			Detail:       "measurement history insufficient; corrosion rate and remaining life were not computed",
			ReviewStatus: ReviewPending,
		})
	}

	return out
}

// sampleStddev is the n-1 sample standard deviation, zero for fewer
// than two readings.
func sampleStddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(n)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
