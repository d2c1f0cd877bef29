package handle

import "errors"

var (
	// ErrInvalidHandle is returned when a handle is stale, unknown or already released.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrHandleSpaceExhausted is returned when no index can be issued. It is
	// not recoverable locally; callers should surface it as a fatal error.
	ErrHandleSpaceExhausted = errors.New("handle space exhausted")

	// ErrGenerationExhausted is returned by Release when the generation at an
	// index cannot be incremented again. The index is retired; the release
	// itself still took effect.
	ErrGenerationExhausted = errors.New("handle generation exhausted")
)
