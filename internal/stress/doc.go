// Package stress resolves allowable stress values from versioned
// material tables.
//
// A table maps material specifications to tabulated (temperature,
// allowable stress) points. Resolution returns the exact tabulated
// value when the design temperature hits a table point, linearly
// interpolates between the two bracketing points otherwise, and refuses
// to extrapolate: a temperature outside the tabulated range is an
// OUT_OF_RANGE error, never a guess. Range bounds are inclusive.
//
// Material specifications arrive in whatever form the data entry used
// ("SA-516 Grade 70", "sa-516 gr 70", "SA-516  Gr. 70"). Normalize
// collapses these to one canonical form before lookup, so near-miss
// spellings cannot silently resolve to nothing.
//
// Tables are versioned. Every resolution carries its table version so a
// calculation can always be traced to the exact dataset it used, and
// re-running against the same version reproduces the same stress.
package stress
