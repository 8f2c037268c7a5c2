package deid

import "errors"

var (
	// ErrStoreUnavailable marks a mapping store failure or timeout. It is fatal
	// for the whole call.
	ErrStoreUnavailable = errors.New("mapping store unavailable")

	// ErrTokenCollision means every minted token was rejected.
	ErrTokenCollision = errors.New("token collision retries exhausted")

	// ErrNotFound is returned by backends for absent records.
	ErrNotFound = errors.New("token record not found")

	// ErrTokenTaken is returned by backends when a token already belongs to another pair.
	ErrTokenTaken = errors.New("token already allocated")

	// ErrGeneration wraps failures of the text-generation collaborator.
	ErrGeneration = errors.New("text generation failed")
)
