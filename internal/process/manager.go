package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Status represents the current state of a managed process.
type Status string

const (
	StatusStopped    Status = "stopped"
	StatusRunning    Status = "running"
	StatusExited     Status = "exited"
	StatusTerminated Status = "terminated"
	StatusFailed     Status = "failed"
)

// killWaitTimeout bounds how long Terminate waits for the child after SIGKILL.
const killWaitTimeout = 5 * time.Second

// ErrAlreadyStarted is returned by Start on a manager that already spawned a process.
var ErrAlreadyStarted = errors.New("process: already started")

// Config holds configuration for a managed subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path or bare name of the executable.
	// Bare names are resolved through PATH by os/exec.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// Output receives both stdout and stderr. An *os.File is handed to the
	// child directly; other writers are fed by os/exec copy goroutines.
	// If nil, output is discarded.
	Output io.Writer

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration

	// OnExit is called from the reaper goroutine once the child has exited,
	// whether it crashed, exited normally or was terminated.
	OnExit func(err error)
}

// Logger defines the logging interface for the process manager.
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

// Manager manages the lifecycle of one subprocess.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Terminate is idempotent; only the first call signals the child.
type Manager struct {
	config Config
	logger Logger

	mu           sync.RWMutex
	cmd          *exec.Cmd
	status       Status
	lastError    error
	startTime    time.Time
	terminated   bool
	terminations int

	// done is closed by the reaper once cmd.Wait returns.
	done chan struct{}
}

// NewManager creates a new process manager with the given configuration.
func NewManager(cfg Config) *Manager {
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}

	return &Manager{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Start spawns the subprocess and returns as soon as the OS has created it.
// It does not wait for the child to exit or become ready.
//
// The context is only consulted before spawning; cancelling it later does
// not kill the child. Use Terminate for that.
func (m *Manager) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("starting %s: %w", m.config.Name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, m.config.Name)
	}

	m.logger.Info("starting process",
		"name", m.config.Name,
		"binary", m.config.Binary,
		"args", m.config.Args,
	)

	cmd := exec.Command(m.config.Binary, m.config.Args...) //nolint:gosec // Binary comes from the path resolver, not user input

	// New process group so termination reaches the backend's own children
	setProcAttr(cmd)

	if m.config.Env != nil {
		cmd.Env = append(os.Environ(), m.config.Env...)
	}
	if m.config.WorkDir != "" {
		cmd.Dir = m.config.WorkDir
	}

	// Same writer for both streams so output interleaves in one sink
	if m.config.Output != nil {
		cmd.Stdout = m.config.Output
		cmd.Stderr = m.config.Output
	}

	if err := cmd.Start(); err != nil {
		m.status = StatusFailed
		m.lastError = err
		return fmt.Errorf("starting %s: %w", m.config.Name, err)
	}

	m.cmd = cmd
	m.status = StatusRunning
	m.startTime = time.Now()
	m.done = make(chan struct{})

	go m.reap(cmd, m.done)

	m.logger.Info("process started",
		"name", m.config.Name,
		"pid", cmd.Process.Pid,
	)

	return nil
}

// reap waits for the child to exit and records the outcome.
func (m *Manager) reap(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	m.mu.Lock()
	terminated := m.terminated
	if terminated {
		m.status = StatusTerminated
	} else {
		m.status = StatusExited
		m.lastError = err
	}
	m.mu.Unlock()

	close(done)

	if terminated {
		m.logger.Debug("process reaped after terminate", "name", m.config.Name)
	} else if err != nil {
		m.logger.Warn("process exited unexpectedly", "name", m.config.Name, "error", err)
	} else {
		m.logger.Info("process exited", "name", m.config.Name)
	}

	if m.config.OnExit != nil {
		m.config.OnExit(err)
	}
}

// Terminate stops the subprocess. It sends SIGTERM to the process group,
// waits up to GracefulTimeout, then sends SIGKILL.
//
// Only the first call does anything; later calls return nil without
// signalling. Calling Terminate before Start, or after the child already
// exited on its own, is a no-op.
func (m *Manager) Terminate() error {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return nil
	}
	m.terminated = true
	cmd := m.cmd
	done := m.done
	m.mu.Unlock()

	if cmd == nil || cmd.Process == nil || done == nil {
		return nil
	}

	select {
	case <-done:
		m.logger.Debug("process already exited", "name", m.config.Name)
		return nil
	default:
	}

	m.mu.Lock()
	m.terminations++
	m.mu.Unlock()

	pid := cmd.Process.Pid
	m.logger.Info("terminating process", "name", m.config.Name, "pid", pid)

	if err := signalTerm(cmd.Process); err != nil {
		m.logger.Warn("failed to send terminate signal", "name", m.config.Name, "error", err)
	}

	select {
	case <-done:
		m.logger.Info("process stopped gracefully", "name", m.config.Name)
		return nil
	case <-time.After(m.config.GracefulTimeout):
		m.logger.Warn("graceful shutdown timeout, killing process",
			"name", m.config.Name,
			"timeout", m.config.GracefulTimeout,
		)
	}

	if err := signalKill(cmd.Process); err != nil {
		return fmt.Errorf("killing %s: %w", m.config.Name, err)
	}

	select {
	case <-done:
		m.logger.Info("process killed", "name", m.config.Name)
		return nil
	case <-time.After(killWaitTimeout):
		return fmt.Errorf("%s did not exit after kill", m.config.Name)
	}
}

// Done returns a channel closed once the child has been reaped.
// It returns nil before Start.
func (m *Manager) Done() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.done
}

// Status returns the current status of the managed process.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsTerminated reports whether Terminate has been called.
func (m *Manager) IsTerminated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.terminated
}

// LastError returns the error from a failed spawn or an unexpected exit.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// PID returns the process ID, or 0 if never started.
func (m *Manager) PID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Pid
	}
	return 0
}

// Stats holds a snapshot of the managed process.
type Stats struct {
	Name       string        `json:"name"`
	Binary     string        `json:"binary"`
	Status     Status        `json:"status"`
	PID        int           `json:"pid,omitempty"`
	Uptime     time.Duration `json:"uptime,omitempty"`
	Terminated bool          `json:"terminated"`
	LastError  string        `json:"last_error,omitempty"`

	// Terminations counts signals actually sent; never more than one.
	Terminations int `json:"terminations"`
}

// Stats returns current statistics for the process.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Name:         m.config.Name,
		Binary:       m.config.Binary,
		Status:       m.status,
		Terminated:   m.terminated,
		Terminations: m.terminations,
	}

	if m.cmd != nil && m.cmd.Process != nil {
		stats.PID = m.cmd.Process.Pid
	}

	if m.status == StatusRunning {
		stats.Uptime = time.Since(m.startTime)
	}

	if m.lastError != nil {
		stats.LastError = m.lastError.Error()
	}

	return stats
}
