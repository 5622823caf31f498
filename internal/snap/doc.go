// Package snap defines the canonical snapshot values used for
// content-addressed identity and tamper evidence.
//
// Every calculation performed by the engine is identified by a SHA-256
// hash over a canonical JSON serialization of its inputs. Two runs that
// see the same inputs must produce byte-identical serializations, so the
// rules here are strict:
//
//   - Object keys are ordered by UTF-16 code units per RFC 8785, not by
//     Go's native UTF-8 byte order.
//   - Strings are NFC normalized at the serialization boundary.
//   - HTML characters (<, >, &) and U+2028/U+2029 are NOT escaped.
//   - Floats serialize in their shortest round-trip decimal form, with
//     negative zero folded to zero. NaN and infinities are rejected.
//   - null is rejected. Absent inputs are omitted from the snapshot.
//
// Hashes are domain-separated: SHA256(domain + 0x00 + canonicalJSON).
// The domain string carries a version suffix so the hash scheme can be
// migrated without colliding with historical records.
//
// Unlike a general-purpose JSON library, the Value types form a sealed
// set. Anything that cannot be expressed as String, Int, Float, Bool,
// Array, or Object has no canonical form and cannot participate in
// identity computation.
package snap
