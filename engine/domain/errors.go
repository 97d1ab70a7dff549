package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for harvest and build failures.
var (
	ErrUnknownCourt   = errors.New("no scraper registered for court")
	ErrSlugCollision  = errors.New("court paths collapse to the same store slug")
	ErrEmbedCount     = errors.New("embedding count does not match input count")
	ErrEmbedDimension = errors.New("embedding dimension mismatch")
	ErrEmbedNorm      = errors.New("embedding is not L2-normalized")
	ErrManifestStale  = errors.New("manifest does not match shard set")
)

// InvariantError reports a build-level invariant violation. These indicate a
// broken external dependency and abort the whole build.
type InvariantError struct {
	Check    string
	Expected string
	Observed string
	Wrapped  error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s: expected %s, observed %s", e.Check, e.Expected, e.Observed)
}

func (e *InvariantError) Unwrap() error { return e.Wrapped }

// NewInvariantError creates an InvariantError around a sentinel.
func NewInvariantError(check, expected, observed string, wrapped error) *InvariantError {
	return &InvariantError{Check: check, Expected: expected, Observed: observed, Wrapped: wrapped}
}
