package testutil

import "sync"

// FixedToken generates the same run token every time.
//
// This enables deterministic pipeline execution and golden snapshot
// comparison. The same vessel run with the same FixedToken produces
// byte-identical result and audit rows.
//
// Unlike TokenSequence which returns tokens in order, this generator
// always returns the same token. This is useful when every run in a
// test should share one token.
//
// Thread-safety: FixedToken is stateless and safe for concurrent use.
type FixedToken struct {
	token string
}

// NewFixedToken creates a generator that always returns token.
//
// The token is typically set in a scenario file:
//
//	run_token: "test-run-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-run-default".
func NewFixedToken(token string) *FixedToken {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedToken{token: token}
}

// Generate returns the fixed run token.
//
// Implements pipeline.TokenGenerator.
func (g *FixedToken) Generate() string {
	return g.token
}

// TokenSequence returns predetermined run tokens in order.
//
// Tests that drive several pipeline runs can provide a known sequence
// of tokens and verify exact output per run.
//
// Thread-safety: TokenSequence is safe for concurrent use via internal mutex.
type TokenSequence struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewTokenSequence creates a generator that returns tokens in order.
//
// Example:
//
//	gen := NewTokenSequence("run-1", "run-2", "run-3")
//	gen.Generate() // "run-1"
//	gen.Generate() // "run-2"
//	gen.Generate() // "run-3"
//	gen.Generate() // panic: all tokens exhausted
func NewTokenSequence(tokens ...string) *TokenSequence {
	return &TokenSequence{
		tokens: tokens,
		idx:    0,
	}
}

// Generate returns the next predetermined token.
// Thread-safe: uses mutex to protect index access.
//
// Panics if all tokens have been consumed. This is a fail-fast approach
// to catch test misconfiguration (test ran more pipeline passes than expected).
func (g *TokenSequence) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("TokenSequence: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
