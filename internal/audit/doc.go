// Package audit builds and verifies the tamper-evident trail behind
// every calculation.
//
// An entry's hash covers the calculation type, the canonical input
// snapshot, the engine version, and the stress table version: the
// facts that determine the output. Actor, timestamp, code reference,
// intermediates, warnings, and rationale are stored alongside for
// review but excluded from the digest: they are attribution and
// presentation, not inputs. Verification recomputes the digest from
// the stored fields; any mismatch is an integrity failure and is
// always surfaced.
package audit
