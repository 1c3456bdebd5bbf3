package history

import (
	"context"
	"sync"

	"github.com/nerrad567/warehouse-desktop/internal/lifecycle"
)

// Recorder is a lifecycle.Observer that keeps the run's launches row current.
type Recorder struct {
	repo        Repository
	mode        string
	interpreter string

	mu     sync.Mutex
	launch *Launch
}

// NewRecorder creates a recorder for a run in mode using interpreter.
func NewRecorder(repo Repository, mode, interpreter string) *Recorder {
	return &Recorder{repo: repo, mode: mode, interpreter: interpreter}
}

// OnTransition implements lifecycle.Observer.
func (r *Recorder) OnTransition(ctx context.Context, t lifecycle.Transition) error {
	r.mu.Lock()
	if r.launch == nil {
		r.launch = &Launch{
			Session:     t.Session,
			Mode:        r.mode,
			Interpreter: r.interpreter,
			StartedAt:   t.At,
		}
	}
	l := r.launch
	l.State = string(t.To)
	if !t.Endpoint.IsZero() {
		l.Host = t.Endpoint.Host
		l.Port = t.Endpoint.Port
	}
	if t.PID != 0 {
		l.PID = t.PID
	}
	if t.Readiness != nil {
		l.Outcome = string(t.Readiness.Outcome)
		l.Attempts = t.Readiness.Attempts
		l.ReadyAfterMS = t.Readiness.Elapsed.Milliseconds()
	}
	if t.Error != "" {
		l.Error = t.Error
	}
	if t.To.IsTerminal() {
		at := t.At
		l.EndedAt = &at
	}
	snapshot := *l
	r.mu.Unlock()

	return r.repo.Save(ctx, &snapshot)
}

// Current returns a copy of the run's launch, nil before the first transition.
func (r *Recorder) Current() *Launch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.launch == nil {
		return nil
	}
	c := *r.launch
	return &c
}
