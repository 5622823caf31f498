// Package harness runs scenario-driven end-to-end tests of the
// calculation pipeline.
//
// A scenario compiles a CUE vessel definition, imports it into a fresh
// in-memory database, runs the full calculation chain under a frozen
// clock and a fixed run token, persists the run, and then checks the
// outcome three ways: an expect block over the verdict and component
// statuses, typed assertions over the result trace and the database,
// and optional golden comparison of the canonical trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: shell_baseline
//	description: "Corroding shell stays fit for service with margin"
//	definition: ../defs/corroding_shell.cue
//	actor: insp-104
//	run_token: run-shell-baseline
//	expect:
//	  safe: true
//	  governing: V-101-S1
//	  components:
//	    V-101-S1: ok
//	assertions:
//	  - type: result_present
//	    component: V-101-S1
//	    calc: mawp
//	  - type: result_value
//	    component: V-101-S1
//	    calc: corrosion_rate
//	    value: 0.00375
//	    tolerance: 0.0001
//	  - type: anomaly_count
//	    count: 0
//	  - type: audit_clean
//
// The definition, stress_table, and config paths are resolved relative
// to the scenario file. Component statuses in the expect block grade
// each outcome: "failed" when the run errored, "degraded" when it
// completed with warnings, "ok" otherwise.
//
// # Assertion Types
//
//   - result_present: a calculation of the given type completed for the component
//   - result_value: the calculation's headline value is within tolerance of an expected value
//   - anomaly_count: exactly N anomalies match the optional component and category filters
//   - audit_clean: re-verifying every stored audit entry finds no integrity
//     failures and no run is missing audit coverage
//   - final_state: a database row matches expected column values
//
// # Deterministic Execution
//
// Every scenario runs against an in-memory database with a frozen wall
// clock and a fixed run token (scenario run_token, or
// "test-run-default" when unset). Identical scenario inputs therefore
// produce byte-identical canonical traces, which is what makes golden
// comparison possible.
package harness
