package history

import "errors"

var (
	// ErrLaunchNotFound is returned when no row exists for a session.
	ErrLaunchNotFound = errors.New("history: launch not found")

	// ErrInvalidLaunch is returned when a launch has no session or start time.
	ErrInvalidLaunch = errors.New("history: invalid launch")
)
