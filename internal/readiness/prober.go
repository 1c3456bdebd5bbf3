package readiness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nerrad567/warehouse-desktop/internal/ports"
)

// Defaults mirror the backend's expected startup profile.
const (
	// DefaultHealthPath is the backend's health endpoint.
	DefaultHealthPath = "/api/health"

	// DefaultInterval is the fixed wait between attempts.
	DefaultInterval = 500 * time.Millisecond

	// DefaultTimeout is how long to keep polling before giving up.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestTimeout bounds a single health request.
	DefaultRequestTimeout = 2 * time.Second

	// maxDrainBytes caps how much of a response body is read before closing,
	// so the connection can be reused.
	maxDrainBytes = 4096
)

// Outcome is the result of one readiness wait.
type Outcome string

const (
	Ready    Outcome = "ready"
	TimedOut Outcome = "timed_out"
)

// Result describes how a readiness wait ended.
type Result struct {
	Outcome  Outcome       `json:"outcome"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`

	// LastStatus is the HTTP status of the last response, 0 if none arrived.
	LastStatus int `json:"last_status,omitempty"`

	// LastError is the last transport error, if any.
	LastError error `json:"-"`
}

// IsReady reports whether the backend answered 200 in time.
func (r Result) IsReady() bool {
	return r.Outcome == Ready
}

// Logger defines the logging interface for the prober.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds prober settings. Zero values take the package defaults.
type Config struct {
	HealthPath     string
	Interval       time.Duration
	RequestTimeout time.Duration
}

// Prober waits for the backend health endpoint to return 200.
type Prober struct {
	config Config
	client *http.Client
	logger Logger
}

// NewProber creates a prober with defaults applied.
func NewProber(cfg Config) *Prober {
	if cfg.HealthPath == "" {
		cfg.HealthPath = DefaultHealthPath
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	return &Prober{
		config: cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the prober.
func (p *Prober) SetLogger(logger Logger) {
	p.logger = logger
}

// WaitUntilReady polls ep until the health endpoint returns 200 or timeout
// elapses. The first request goes out immediately; after each failure the
// deadline is checked and, if not yet passed, the prober waits one interval.
// TimedOut is therefore never reported before timeout has elapsed, and no
// request is issued after the result is decided.
//
// The only error is context cancellation (application shutting down while
// probing); timing out is reported through Result.
func (p *Prober) WaitUntilReady(ctx context.Context, ep ports.Endpoint, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	url := ep.URLFor(p.config.HealthPath)
	start := time.Now()
	deadline := start.Add(timeout)

	p.logger.Debug("waiting for backend to be ready", "url", url, "timeout", timeout)

	var res Result
	for {
		res.Attempts++
		status, err := p.check(ctx, url)
		res.LastStatus = status
		res.LastError = err

		if err == nil && status == http.StatusOK {
			res.Outcome = Ready
			res.Elapsed = time.Since(start)
			p.logger.Info("backend ready", "attempts", res.Attempts, "elapsed", res.Elapsed)
			return res, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("waiting for backend: %w", ctxErr)
		}

		if time.Now().After(deadline) {
			res.Outcome = TimedOut
			res.Elapsed = time.Since(start)
			p.logger.Warn("backend not ready before timeout",
				"attempts", res.Attempts,
				"elapsed", res.Elapsed,
				"last_status", status,
				"last_error", err,
			)
			return res, nil
		}

		p.logger.Debug("backend not ready yet", "attempt", res.Attempts, "status", status, "error", err)

		timer := time.NewTimer(p.config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("waiting for backend: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// check issues one health request and returns the status code.
func (p *Prober) check(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building health request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)) //nolint:errcheck // Drain for connection reuse

	return resp.StatusCode, nil
}
