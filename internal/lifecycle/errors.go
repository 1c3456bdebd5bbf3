package lifecycle

import "errors"

var (
	// ErrAlreadyStarted is returned when Start is called on a coordinator that is not idle.
	ErrAlreadyStarted = errors.New("lifecycle: already started")

	// ErrInvalidTransition is returned for a state change the machine does not allow.
	ErrInvalidTransition = errors.New("lifecycle: invalid state transition")
)
