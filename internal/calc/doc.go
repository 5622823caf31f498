// Package calc implements the fitness-for-service calculators: code
// required thickness, maximum allowable working pressure, corrosion
// rates, remaining life, and nozzle evaluation.
//
// Every calculator is a pure function of explicit inputs. No calculator
// reads a clock, touches storage, or consults hidden defaults; the
// fallbacks it may apply (joint efficiency, rate floor, tolerances)
// arrive in one Config value and are recorded in the result's input
// snapshot. Identical inputs therefore produce identical Results with
// identical content-addressed IDs, which is what makes calculations
// reproducible years later against the same stress table version.
//
// Formula selection dispatches on the sealed geometry variants from the
// vessel package. Each shape binds its own thickness and pressure
// formulas with their code references; there is no branching on type
// label strings.
//
// A calculator fails loudly rather than substitute a plausible number:
// a nonpositive formula denominator is an INVALID_GEOMETRY error, not a
// clamped output, and corrosion allowance is never folded into
// present-day fitness margins.
package calc
