// Package vessel defines the equipment model the calculation engine
// operates on: pressure vessel components, their geometry, and the
// thickness measurement events recorded against them.
//
// Geometry is a sealed variant type. Each shape the engine can assess
// (cylindrical shell, the three head forms, nozzle) is its own concrete
// type, and formula selection downstream dispatches on the variant
// rather than on a type-label string. Adding a shape means adding a
// variant and its formulas; there is no stringly-typed branching to
// keep in sync.
//
// Components are immutable once recorded. Design changes (re-rating,
// material substitution) produce a new revision rather than mutating
// the stored record, so historical calculations keep pointing at the
// exact inputs they were computed from.
package vessel
