package ports

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

const (
	minPort = 1
	maxPort = 65535
)

// Logger defines the logging interface for the allocator.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Allocator finds the lowest bindable port in a range.
//
// Thread Safety: an Allocator holds no mutable state after construction and
// may be shared, but two concurrent allocations can return the same port.
type Allocator struct {
	host   string
	logger Logger
	lc     net.ListenConfig
}

// NewAllocator returns an allocator that probes ports on host.
// An empty host means LoopbackHost.
func NewAllocator(host string) *Allocator {
	if host == "" {
		host = LoopbackHost
	}
	return &Allocator{
		host:   host,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the allocator.
func (a *Allocator) SetLogger(logger Logger) {
	a.logger = logger
}

// Allocate tries start, start+1, ... max in order and returns the first port
// that could be bound. The probe listener is released before returning.
//
// Returns ErrNoAvailablePort when the whole range is taken and ErrInvalidRange
// for bad bounds. No port outside [start, max] is ever attempted.
func (a *Allocator) Allocate(ctx context.Context, start, limit int) (Endpoint, error) {
	if start < minPort || limit > maxPort || start > limit {
		return Endpoint{}, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, start, limit)
	}

	for port := start; port <= limit; port++ {
		if err := ctx.Err(); err != nil {
			return Endpoint{}, fmt.Errorf("allocating port: %w", err)
		}

		if err := a.probe(ctx, port); err != nil {
			a.logger.Debug("port unavailable", "port", port, "error", err)
			continue
		}

		return Endpoint{Host: a.host, Port: port}, nil
	}

	return Endpoint{}, fmt.Errorf("%w: [%d, %d] on %s", ErrNoAvailablePort, start, limit, a.host)
}

// probe binds host:port and releases it straight away.
func (a *Allocator) probe(ctx context.Context, port int) error {
	ln, err := a.lc.Listen(ctx, "tcp", net.JoinHostPort(a.host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return ln.Close()
}
