package ports

import "errors"

var (
	// ErrNoAvailablePort is returned when every port in the requested range is unbindable.
	ErrNoAvailablePort = errors.New("ports: no available port in range")

	// ErrInvalidRange is returned when the range bounds are outside 1-65535 or inverted.
	ErrInvalidRange = errors.New("ports: invalid port range")
)
