// Package api serves the optional loopback status API of the desktop shell.
//
// Routes:
//
//	GET /api/v1/health            liveness of the shell itself
//	GET /api/v1/status            coordinator snapshot (state, endpoint, pid, session)
//	GET /api/v1/history?limit=N   recent application runs
//	GET /api/v1/ws                live stream of lifecycle transitions
//	GET /metrics                  Prometheus metrics
//
// The server binds a loopback port found by the same allocator the backend
// uses, and is itself a lifecycle observer: every transition is broadcast to
// websocket clients and counted in the metrics.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
