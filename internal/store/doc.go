// Package store provides SQLite-backed durable storage for component
// records, thickness surveys, calculation results, and audit trails.
//
// The store is record-keeping for regulated inspection work, so the
// write discipline is strict:
//   - Components: revisioned, write-once per (id, revision)
//   - Measurements: append-only survey log, never edited
//   - Stress tables: immutable per version; a version re-imported with
//     different data is rejected
//   - Results: content-addressed, write-once; identical re-runs are
//     no-ops
//   - Anomalies: append-only findings; only review_status may change
//   - Audit log: append-only, one entry per (result, run)
//
// # Write Discipline
//
// Idempotency via ON CONFLICT DO NOTHING
//   - Replaying a run after a crash completes it without duplicates
//   - First stamped copy of a content-addressed result wins
//
// Logical ordering via seq INTEGER
//   - Result and audit ordering uses the stamp sequence, never wall
//     time
//   - Queries order by seq ASC, id COLLATE BINARY ASC so reads are
//     byte-for-byte reproducible
//
// Immutable calculation identity
//   - Result IDs and audit hashes are computed in internal/snap over
//     canonical JSON with SHA-256 domain separation
//   - Stored snapshots round-trip through the same canonical form, so
//     rehashing a read-back record reproduces the stored hash
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: audit entries require their result row
package store
