package snap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashing.
// The version suffix enables future algorithm migration without
// colliding with historical records.
const (
	DomainResult = "tminus/result/v1"
	DomainAudit  = "tminus/audit/v1"
	DomainTable  = "tminus/table/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/payload boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// hashPayload builds the canonical payload shared by result identity
// and audit tamper evidence. The hash deliberately covers ONLY the
// calculation type, the input snapshot, the engine version, and the
// stress table version. Actor, timestamps, intermediate values, and
// rationale text are excluded: reworded prose or a re-run at a
// different time must not change a calculation's identity.
func hashPayload(calcType string, inputs Object, engineVersion, tableVersion string) ([]byte, error) {
	obj := Object{
		"calc_type":      String(calcType),
		"inputs":         inputs,
		"engine_version": String(engineVersion),
		"table_version":  String(tableVersion),
	}
	return MarshalCanonical(obj)
}

// ResultID computes the content-addressed identity of a calculation
// result. Stable across restarts and re-runs given identical inputs.
func ResultID(calcType string, inputs Object, engineVersion, tableVersion string) (string, error) {
	canonical, err := hashPayload(calcType, inputs, engineVersion, tableVersion)
	if err != nil {
		return "", fmt.Errorf("ResultID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// AuditHash computes the tamper-evidence hash stored on an audit entry.
// Verification recomputes this from the stored inputs and compares.
func AuditHash(calcType string, inputs Object, engineVersion, tableVersion string) (string, error) {
	canonical, err := hashPayload(calcType, inputs, engineVersion, tableVersion)
	if err != nil {
		return "", fmt.Errorf("AuditHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainAudit, canonical), nil
}

// TableHash computes the content hash of a stress table dataset. The
// store uses it to detect a different dataset arriving under an
// already-stored version string.
func TableHash(version string, points Object) (string, error) {
	canonical, err := MarshalCanonical(Object{
		"version": String(version),
		"points":  points,
	})
	if err != nil {
		return "", fmt.Errorf("TableHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTable, canonical), nil
}

// MustResultID is like ResultID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustResultID(calcType string, inputs Object, engineVersion, tableVersion string) string {
	id, err := ResultID(calcType, inputs, engineVersion, tableVersion)
	if err != nil {
		panic(err)
	}
	return id
}

// MustAuditHash is like AuditHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustAuditHash(calcType string, inputs Object, engineVersion, tableVersion string) string {
	h, err := AuditHash(calcType, inputs, engineVersion, tableVersion)
	if err != nil {
		panic(err)
	}
	return h
}
