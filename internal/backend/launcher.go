package backend

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/nerrad567/warehouse-desktop/internal/ports"
	"github.com/nerrad567/warehouse-desktop/internal/process"
)

// processName is the name the backend child is logged under.
const processName = "backend"

// Logger defines the logging interface for the launcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Launcher spawns the backend bound to an allocated endpoint.
type Launcher struct {
	config Config
	logger Logger
}

// NewLauncher creates a launcher, applying defaults for zero values.
func NewLauncher(cfg Config) (*Launcher, error) {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "java"
	}
	if cfg.LogPath == "" {
		cfg.LogPath = LogPath(".warehouse", "backend.log")
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 5 * time.Second
	}
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	return &Launcher{
		config: cfg,
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the launcher.
func (l *Launcher) SetLogger(logger Logger) {
	l.logger = logger
}

// LogPath returns the file the backend's output is appended to.
func (l *Launcher) LogPath() string {
	return l.config.LogPath
}

// Launch spawns the backend and returns without waiting for it.
//
// The bundled interpreter is used when present; otherwise the configured
// interpreter name is resolved through PATH. Only an OS refusal to create the
// process is an error, reported as ErrSpawnFailure.
func (l *Launcher) Launch(ctx context.Context, paths RuntimePaths, ep ports.Endpoint) (*Handle, error) {
	if !isLoopback(ep.Host) {
		return nil, fmt.Errorf("%w: refusing non-loopback bind address %q", ErrSpawnFailure, ep.Host)
	}

	binary := l.interpreter(paths)
	args := l.config.BuildArgs(ep.Host, ep.Port, paths.Executable)

	sink := OpenLogSink(l.config.LogPath, l.logger)
	writeBanner(sink, ep.Port, binary, args)

	proc := process.NewManager(process.Config{
		Name:            processName,
		Binary:          binary,
		Args:            args,
		Output:          sink,
		GracefulTimeout: l.config.GracefulTimeout,
		OnExit: func(error) {
			if err := sink.Close(); err != nil {
				l.logger.Debug("closing backend log", "error", err)
			}
		},
	})
	proc.SetLogger(l.logger)

	if err := proc.Start(ctx); err != nil {
		_ = sink.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: %w", ErrSpawnFailure, err)
	}

	l.logger.Info("backend spawned",
		"pid", proc.PID(),
		"endpoint", ep.String(),
		"interpreter", binary,
		"jar", paths.Executable,
		"log", l.config.LogPath,
	)

	return &Handle{proc: proc}, nil
}

// interpreter picks the bundled runtime or falls back to PATH lookup.
func (l *Launcher) interpreter(paths RuntimePaths) string {
	if paths.BundledInterpreterPresent {
		return paths.Interpreter
	}

	name := ExecutableName(l.config.Interpreter, l.config.GOOS)
	resolved, err := exec.LookPath(name)
	if err != nil {
		// Still attempt the spawn with the bare name; Start reports the failure.
		l.logger.Warn("bundled interpreter missing and not found on PATH",
			"bundled", paths.Interpreter,
			"fallback", name,
			"error", err,
		)
		return name
	}

	l.logger.Info("bundled interpreter missing, using system interpreter",
		"bundled", paths.Interpreter,
		"fallback", resolved,
	)
	return resolved
}

// Handle is the supervisor's reference to the running backend.
// Terminate is idempotent; only the first call signals the process.
type Handle struct {
	proc *process.Manager
}

// Terminate stops the backend. Safe to call more than once.
func (h *Handle) Terminate() error {
	return h.proc.Terminate()
}

// IsTerminated reports whether Terminate has been called.
func (h *Handle) IsTerminated() bool {
	return h.proc.IsTerminated()
}

// PID returns the backend's process ID.
func (h *Handle) PID() int {
	return h.proc.PID()
}

// Stats returns a snapshot of the backend process. Binary is the
// interpreter actually used to spawn it.
func (h *Handle) Stats() process.Stats {
	return h.proc.Stats()
}
