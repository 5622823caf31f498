package pipeline

import "github.com/google/uuid"

// TokenGenerator produces run tokens correlating every result and
// audit entry of one run. Implemented by UUIDv7Generator in production
// and by fixed generators in tests.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens, so runs
// listed by token read in creation order.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string. Panics if the
// system entropy source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
