package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/warehouse-desktop/internal/backend"
	"github.com/nerrad567/warehouse-desktop/internal/ports"
	"github.com/nerrad567/warehouse-desktop/internal/process"
	"github.com/nerrad567/warehouse-desktop/internal/readiness"
	"github.com/nerrad567/warehouse-desktop/internal/ui"
)

// startupErrorTitle is the dialog title for fatal startup failures.
const startupErrorTitle = "Startup error"

// PortAllocator finds a free port for the backend.
type PortAllocator interface {
	Allocate(ctx context.Context, start, limit int) (ports.Endpoint, error)
}

// Process is the coordinator's view of the running backend.
type Process interface {
	Terminate() error
	IsTerminated() bool
	PID() int
}

// Launcher spawns the backend bound to ep.
type Launcher interface {
	Launch(ctx context.Context, ep ports.Endpoint) (Process, error)
}

// Prober waits for the backend health check.
type Prober interface {
	WaitUntilReady(ctx context.Context, ep ports.Endpoint, timeout time.Duration) (readiness.Result, error)
}

// Window is the UI surface pointed at the backend.
type Window interface {
	Open(ctx context.Context, url, title string) error

	// Closed fires when the user has closed every window. A nil channel
	// means closing is not observable.
	Closed() <-chan struct{}
}

// Dialog shows a blocking error to the user.
type Dialog interface {
	ShowError(title, message string)
}

// Observer is notified of every state transition.
type Observer interface {
	OnTransition(ctx context.Context, t Transition) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, t Transition) error

// OnTransition implements Observer.
func (f ObserverFunc) OnTransition(ctx context.Context, t Transition) error {
	return f(ctx, t)
}

// Logger defines the logging interface for the coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds coordinator settings.
type Config struct {
	// PortStart and PortMax bound the backend port search.
	PortStart int
	PortMax   int

	// ReadyTimeout is how long to wait for the health check before
	// opening the window anyway.
	ReadyTimeout time.Duration

	// TitlePrefix is the window title; the port is appended.
	TitlePrefix string

	// QuitOnAllWindowsClosed decides what closing the last window does.
	// Nil means QuitOnAllWindowsClosed(runtime.GOOS).
	QuitOnAllWindowsClosed *bool
}

// Deps are the collaborators the coordinator sequences.
type Deps struct {
	Allocator PortAllocator
	Launcher  Launcher
	Prober    Prober
	Window    Window
	Dialog    Dialog
	Observers []Observer
}

// QuitOnAllWindowsClosed returns the window-close policy for goos: quit
// everywhere except macOS, where apps conventionally stay alive without windows.
func QuitOnAllWindowsClosed(goos string) bool {
	return goos != "darwin"
}

// Coordinator owns one backend for the lifetime of the application.
//
// Thread Safety:
//   - Start and Run are meant to be called once from the main goroutine.
//   - Status, State, Endpoint and Shutdown are safe from any goroutine.
type Coordinator struct {
	cfg     Config
	deps    Deps
	logger  Logger
	session string

	mu        sync.RWMutex
	state     State
	endpoint  ports.Endpoint
	handle    Process
	pid       int
	title     string
	startedAt time.Time
	readyRes  *readiness.Result
	lastErr   error

	obsMu     sync.RWMutex
	observers []Observer

	shutdownOnce sync.Once
}

// New creates a coordinator in the Idle state.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	if deps.Allocator == nil || deps.Launcher == nil || deps.Prober == nil {
		return nil, errors.New("lifecycle: allocator, launcher and prober are required")
	}
	if deps.Window == nil {
		deps.Window = noWindow{}
	}
	if deps.Dialog == nil {
		deps.Dialog = noDialog{}
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = readiness.DefaultTimeout
	}
	if cfg.QuitOnAllWindowsClosed == nil {
		quit := QuitOnAllWindowsClosed(runtime.GOOS)
		cfg.QuitOnAllWindowsClosed = &quit
	}

	return &Coordinator{
		cfg:       cfg,
		deps:      deps,
		logger:    noopLogger{},
		session:   uuid.NewString(),
		state:     StateIdle,
		observers: append([]Observer(nil), deps.Observers...),
	}, nil
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// AddObserver registers an observer for subsequent transitions.
func (c *Coordinator) AddObserver(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

// Session returns the unique id of this application run.
func (c *Coordinator) Session() string {
	return c.session
}

// Start runs Allocating -> Launching -> Probing -> Ready|DegradedReady -> Running.
// Each step starts only after the previous one finished.
//
// A port or spawn failure moves to Failed, shows the error dialog and is
// returned; the caller must then exit (Run does this). A context
// cancellation is returned as-is without the dialog.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrAlreadyStarted, c.state)
	}
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("starting backend supervisor",
		"session", c.session,
		"port_start", c.cfg.PortStart,
		"port_max", c.cfg.PortMax,
	)

	// Allocate
	if err := c.transition(ctx, StateAllocating, nil); err != nil {
		return err
	}
	ep, err := c.deps.Allocator.Allocate(ctx, c.cfg.PortStart, c.cfg.PortMax)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("allocating port: %w", ctx.Err())
		}
		return c.fail(ctx, fmt.Errorf("allocating port: %w", err))
	}
	c.mu.Lock()
	c.endpoint = ep
	c.mu.Unlock()
	c.logger.Info("backend port allocated", "endpoint", ep.String())

	// Launch
	if err := c.transition(ctx, StateLaunching, nil); err != nil {
		return err
	}
	proc, err := c.deps.Launcher.Launch(ctx, ep)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("launching backend: %w", ctx.Err())
		}
		return c.fail(ctx, fmt.Errorf("launching backend: %w", err))
	}
	c.mu.Lock()
	c.handle = proc
	c.pid = proc.PID()
	c.mu.Unlock()

	// Probe
	if err := c.transition(ctx, StateProbing, nil); err != nil {
		return err
	}
	res, err := c.deps.Prober.WaitUntilReady(ctx, ep, c.cfg.ReadyTimeout)
	if err != nil {
		return fmt.Errorf("waiting for backend: %w", err)
	}
	c.mu.Lock()
	c.readyRes = &res
	c.mu.Unlock()

	next := StateReady
	if !res.IsReady() {
		next = StateDegradedReady
		c.logger.Warn("backend did not become ready in time, opening window anyway",
			"timeout", c.cfg.ReadyTimeout,
			"attempts", res.Attempts,
		)
	}
	if err := c.transition(ctx, next, func(t *Transition) { t.Readiness = &res }); err != nil {
		return err
	}

	// Window
	title := ui.Title(c.cfg.TitlePrefix, ep.Port)
	c.mu.Lock()
	c.title = title
	c.mu.Unlock()

	if err := c.deps.Window.Open(ctx, ep.URL(), title); err != nil {
		c.logger.Warn("could not open window, open the URL manually",
			"url", ep.URL(),
			"error", err,
		)
	}

	if err := c.transition(ctx, StateRunning, nil); err != nil {
		return err
	}
	c.logger.Info("application running", "url", ep.URL(), "title", title)

	return nil
}

// Run starts the backend, then blocks until ctx is cancelled (the host exit
// event) or the window-close policy says to quit, and finally shuts down.
// It returns the startup error, if any, after cleaning up.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		c.Shutdown(context.WithoutCancel(ctx))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	closed := c.deps.Window.Closed()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("exit requested")
			c.Shutdown(context.WithoutCancel(ctx))
			return nil
		case <-closed:
			if c.WindowsClosed() {
				c.Shutdown(context.WithoutCancel(ctx))
				return nil
			}
			// Stay alive in the background; stop watching the channel.
			closed = nil
		}
	}
}

// WindowsClosed applies the window-close policy and reports whether the
// application should quit.
func (c *Coordinator) WindowsClosed() bool {
	quit := *c.cfg.QuitOnAllWindowsClosed
	c.logger.Info("all windows closed", "quit", quit)
	return quit
}

// Shutdown moves to Terminating, terminates the backend if one was spawned
// and not already terminated, and ends in Terminated. Termination errors are
// logged, never returned. Calling Shutdown more than once is a no-op.
func (c *Coordinator) Shutdown(ctx context.Context) {
	c.shutdownOnce.Do(func() { c.shutdown(ctx) })
}

func (c *Coordinator) shutdown(ctx context.Context) {
	if err := c.transition(ctx, StateTerminating, nil); err != nil {
		c.logger.Error("cannot begin shutdown", "error", err)
		return
	}

	c.mu.Lock()
	handle := c.handle
	c.handle = nil
	c.mu.Unlock()

	if handle != nil && !handle.IsTerminated() {
		c.logger.Info("terminating backend", "pid", handle.PID())
		if err := handle.Terminate(); err != nil {
			c.logger.Warn("backend termination failed, exiting anyway", "error", err)
		}
	}

	if err := c.transition(ctx, StateTerminated, nil); err != nil {
		c.logger.Error("cannot finish shutdown", "error", err)
	}
}

// fail moves to Failed, shows the blocking dialog and returns err.
func (c *Coordinator) fail(ctx context.Context, err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	c.logger.Error("backend startup failed", "error", err)

	if tErr := c.transition(ctx, StateFailed, func(t *Transition) { t.Error = err.Error() }); tErr != nil {
		c.logger.Error("cannot record failure", "error", tErr)
	}

	c.deps.Dialog.ShowError(startupErrorTitle, err.Error())
	return err
}

// transition changes state and notifies observers outside the lock.
func (c *Coordinator) transition(ctx context.Context, to State, decorate func(*Transition)) error {
	c.mu.Lock()
	from := c.state
	if !CanTransition(from, to) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	c.state = to
	t := Transition{
		Session:  c.session,
		From:     from,
		To:       to,
		At:       time.Now(),
		Endpoint: c.endpoint,
		PID:      c.pid,
	}
	c.mu.Unlock()

	if decorate != nil {
		decorate(&t)
	}

	c.logger.Debug("state transition", "from", from, "to", to)

	c.obsMu.RLock()
	observers := append([]Observer(nil), c.observers...)
	c.obsMu.RUnlock()

	for _, o := range observers {
		if err := o.OnTransition(ctx, t); err != nil {
			c.logger.Warn("transition observer failed", "from", from, "to", to, "error", err)
		}
	}
	return nil
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Endpoint returns the allocated backend endpoint, zero before allocation.
func (c *Coordinator) Endpoint() ports.Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// Status is a snapshot of the coordinator for the status API.
type Status struct {
	Session   string            `json:"session"`
	State     State             `json:"state"`
	Endpoint  ports.Endpoint    `json:"endpoint"`
	URL       string            `json:"url,omitempty"`
	PID       int               `json:"pid,omitempty"`
	Title     string            `json:"title,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Readiness *readiness.Result `json:"readiness,omitempty"`
	Error     string            `json:"error,omitempty"`

	// Process is set while a backend that reports statistics is supervised.
	Process *process.Stats `json:"process,omitempty"`
}

// statsReporter is implemented by handles that expose process statistics.
type statsReporter interface {
	Stats() process.Stats
}

// Status returns a snapshot of the coordinator.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		Session:   c.session,
		State:     c.state,
		Endpoint:  c.endpoint,
		PID:       c.pid,
		Title:     c.title,
		StartedAt: c.startedAt,
		Readiness: c.readyRes,
	}
	if !c.endpoint.IsZero() {
		s.URL = c.endpoint.URL()
	}
	if c.lastErr != nil {
		s.Error = c.lastErr.Error()
	}
	if r, ok := c.handle.(statsReporter); ok {
		stats := r.Stats()
		s.Process = &stats
	}
	return s
}

// NewBackendLauncher adapts a backend.Launcher with fixed runtime paths to Launcher.
func NewBackendLauncher(l *backend.Launcher, paths backend.RuntimePaths) Launcher {
	return backendLauncher{launcher: l, paths: paths}
}

type backendLauncher struct {
	launcher *backend.Launcher
	paths    backend.RuntimePaths
}

func (b backendLauncher) Launch(ctx context.Context, ep ports.Endpoint) (Process, error) {
	h, err := b.launcher.Launch(ctx, b.paths, ep)
	if err != nil {
		return nil, err
	}
	return h, nil
}

type noWindow struct{}

func (noWindow) Open(context.Context, string, string) error { return nil }
func (noWindow) Closed() <-chan struct{}                    { return nil }

type noDialog struct{}

func (noDialog) ShowError(string, string) {}
