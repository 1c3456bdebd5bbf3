package ports

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
)

// holdPort binds an ephemeral loopback port and keeps it open for the test.
func holdPort(t *testing.T) (int, net.Listener) {
	t.Helper()
	ln, err := net.Listen("tcp", LoopbackHost+":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port, ln
}

// holdSpecific binds a given port, skipping the test if it is already taken.
func holdSpecific(t *testing.T, port int) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", net.JoinHostPort(LoopbackHost, strconv.Itoa(port)))
	if err != nil {
		t.Skipf("port %d unavailable on this host: %v", port, err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln
}

func requireFree(t *testing.T, port int) {
	t.Helper()
	ln := holdSpecific(t, port)
	ln.Close()
}

func TestAllocate_SkipsOccupiedPort(t *testing.T) {
	occupied, _ := holdPort(t)
	if occupied >= maxPort {
		t.Skip("ephemeral port at top of range")
	}
	requireFree(t, occupied+1)

	a := NewAllocator("")
	ep, err := a.Allocate(context.Background(), occupied, occupied+1)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if ep.Port != occupied+1 {
		t.Errorf("Allocate() port = %d, want %d", ep.Port, occupied+1)
	}
	if ep.Host != LoopbackHost {
		t.Errorf("Allocate() host = %q, want %q", ep.Host, LoopbackHost)
	}
}

func TestAllocate_FullyOccupied(t *testing.T) {
	occupied, _ := holdPort(t)

	a := NewAllocator(LoopbackHost)
	_, err := a.Allocate(context.Background(), occupied, occupied)
	if !errors.Is(err, ErrNoAvailablePort) {
		t.Fatalf("Allocate() error = %v, want ErrNoAvailablePort", err)
	}
}

func TestAllocate_NeverReturnsOccupied(t *testing.T) {
	low, _ := holdPort(t)
	if low+2 > maxPort {
		t.Skip("ephemeral port at top of range")
	}
	holdSpecific(t, low+2)
	requireFree(t, low+1)

	a := NewAllocator(LoopbackHost)
	ep, err := a.Allocate(context.Background(), low, low+2)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if ep.Port != low+1 {
		t.Errorf("Allocate() port = %d, want %d", ep.Port, low+1)
	}
}

func TestAllocate_LowestFreeWins(t *testing.T) {
	port, ln := holdPort(t)
	ln.Close()
	if port+5 > maxPort {
		t.Skip("ephemeral port at top of range")
	}

	a := NewAllocator(LoopbackHost)
	ep, err := a.Allocate(context.Background(), port, port+5)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if ep.Port != port {
		t.Errorf("Allocate() port = %d, want %d", ep.Port, port)
	}

	// The probe must not keep the port bound.
	requireFree(t, ep.Port)
}

func TestAllocate_InvalidRange(t *testing.T) {
	tests := []struct {
		name       string
		start, max int
	}{
		{name: "zero start", start: 0, max: 10},
		{name: "inverted", start: 9000, max: 8000},
		{name: "above max", start: 65000, max: 70000},
		{name: "negative", start: -5, max: 10},
	}

	a := NewAllocator(LoopbackHost)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Allocate(context.Background(), tt.start, tt.max)
			if !errors.Is(err, ErrInvalidRange) {
				t.Errorf("Allocate(%d, %d) error = %v, want ErrInvalidRange", tt.start, tt.max, err)
			}
		})
	}
}

func TestAllocate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAllocator(LoopbackHost)
	_, err := a.Allocate(ctx, 20000, 20010)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Allocate() error = %v, want context.Canceled", err)
	}
}

func TestEndpoint_URLs(t *testing.T) {
	ep := Endpoint{Host: LoopbackHost, Port: 8081}

	if got := ep.Addr(); got != "127.0.0.1:8081" {
		t.Errorf("Addr() = %q", got)
	}
	if got := ep.URL(); got != "http://127.0.0.1:8081" {
		t.Errorf("URL() = %q", got)
	}
	if got := ep.URLFor("api/health"); got != "http://127.0.0.1:8081/api/health" {
		t.Errorf("URLFor() = %q", got)
	}
	if got := ep.URLFor("/api/health"); got != "http://127.0.0.1:8081/api/health" {
		t.Errorf("URLFor() = %q", got)
	}
	if ep.IsZero() {
		t.Error("IsZero() = true for allocated endpoint")
	}
	if !(Endpoint{}).IsZero() {
		t.Error("IsZero() = false for zero endpoint")
	}
}
