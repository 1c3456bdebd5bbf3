package backend

import "errors"

var (
	// ErrSpawnFailure is returned when the OS refuses to create the backend process,
	// including after falling back to the system interpreter.
	ErrSpawnFailure = errors.New("backend: spawn failed")

	// ErrInvalidMode is returned when a runtime mode string is not recognised.
	ErrInvalidMode = errors.New("backend: invalid runtime mode")
)
