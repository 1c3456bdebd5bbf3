package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/warehouse-desktop/internal/history"
	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/config"
	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/logging"
	"github.com/nerrad567/warehouse-desktop/internal/lifecycle"
	"github.com/nerrad567/warehouse-desktop/internal/ports"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 5 * time.Second

// StatusProvider returns the coordinator snapshot.
type StatusProvider interface {
	Status() lifecycle.Status
}

// PortAllocator finds the port the server listens on.
type PortAllocator interface {
	Allocate(ctx context.Context, start, limit int) (ports.Endpoint, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Status    StatusProvider
	Allocator PortAllocator

	// History is optional; without it /history returns 503.
	History history.Repository

	// Metrics is optional; New creates one when nil.
	Metrics *Metrics

	Version string
}

// Server is the loopback status API.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	status    StatusProvider
	allocator PortAllocator
	history   history.Repository
	metrics   *Metrics
	version   string
	started   time.Time

	hub    *Hub
	server *http.Server
	cancel context.CancelFunc

	mu       sync.RWMutex
	endpoint ports.Endpoint
}

// New creates a server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("status provider is required")
	}
	if deps.Allocator == nil {
		return nil, fmt.Errorf("port allocator is required")
	}

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		status:    deps.Status,
		allocator: deps.Allocator,
		history:   deps.History,
		metrics:   deps.Metrics,
		version:   deps.Version,
		started:   time.Now(),
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.hub = NewHub(deps.Config.WebSocket, deps.Logger)
	s.metrics.registerClients(s.hub.ClientCount)

	return s, nil
}

// Start allocates a loopback port, binds it and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ep, err := s.allocator.Allocate(ctx, s.cfg.PortStart, s.cfg.PortMax)
	if err != nil {
		return fmt.Errorf("allocating api port: %w", err)
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", ep.Addr())
	if err != nil {
		return fmt.Errorf("binding api listener on %s: %w", ep, err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	s.mu.Lock()
	s.endpoint = ep
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status API server error", "error", err)
		}
	}()

	return nil
}

// Endpoint returns the bound endpoint, zero before Start.
func (s *Server) Endpoint() ports.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoint
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// OnTransition implements lifecycle.Observer.
func (s *Server) OnTransition(_ context.Context, t lifecycle.Transition) error {
	s.metrics.Observe(t)
	s.hub.Broadcast(EventTransition, t)
	return nil
}

// Close shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("status API shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server was started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return ErrNotStarted
	}
	return nil
}
