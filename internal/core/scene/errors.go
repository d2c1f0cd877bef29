package scene

import (
	"errors"

	"github.com/zeusync/scenecore/internal/core/handle"
)

var (
	// Handle errors, re-exported so callers only need this package.

	ErrInvalidHandle        = handle.ErrInvalidHandle
	ErrHandleSpaceExhausted = handle.ErrHandleSpaceExhausted
	ErrGenerationExhausted  = handle.ErrGenerationExhausted

	// Hierarchy errors

	ErrCyclicParent = errors.New("attach would create a cycle")
)
