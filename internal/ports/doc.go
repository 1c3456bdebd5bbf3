// Package ports finds a free loopback TCP port for the local backend.
//
// Allocation is deterministic: ports are tried in ascending order starting at
// the low end of the configured range, and the first one that can be bound
// wins. The probing listener is closed immediately, so another process may
// grab the port before the backend binds it. That window is accepted; the
// backend fails fast on a bind error and the operator restarts the app.
//
// Usage:
//
//	alloc := ports.NewAllocator(ports.LoopbackHost)
//	ep, err := alloc.Allocate(ctx, 8080, 8200)
//	if errors.Is(err, ports.ErrNoAvailablePort) {
//	    // every port in range is taken
//	}
//	fmt.Println(ep.URL()) // http://127.0.0.1:8080
package ports
