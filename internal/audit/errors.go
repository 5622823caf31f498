package audit

import (
	"errors"
	"fmt"
)

// IntegrityError reports a stored audit entry whose recomputed hash no
// longer matches: the snapshot or version fields were altered after
// recording.
type IntegrityError struct {
	ResultID     string
	ComponentID  string
	StoredHash   string
	ComputedHash string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("INTEGRITY_FAILURE: audit entry for result %s (component=%s) stored hash %s but inputs hash to %s",
		e.ResultID, e.ComponentID, e.StoredHash, e.ComputedHash)
}

// IsIntegrityFailure returns true if the error is an audit integrity
// failure. Uses errors.As to handle wrapped errors.
func IsIntegrityFailure(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
