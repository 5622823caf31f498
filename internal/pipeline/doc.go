// Package pipeline orchestrates calculation runs.
//
// For one component the order is fixed: stress resolution, required
// thickness and MAWP, corrosion rate, remaining life, anomaly
// detection, audit recording. A vessel run fans components out across
// goroutines, but every observable ordering is pinned afterwards:
// outcomes are sorted by component ID before sequence numbers are
// assigned, so two runs over identical inputs produce identical
// results regardless of scheduling.
//
// A failed component never blocks its siblings; its outcome carries
// the error. Missing measurement history degrades a component run
// (rate and life are skipped, an info anomaly notes the gap) rather
// than failing it.
package pipeline
