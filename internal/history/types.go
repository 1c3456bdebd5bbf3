package history

import "time"

// Launch is one application run.
type Launch struct {
	Session      string     `json:"session"`
	Mode         string     `json:"mode"`
	Interpreter  string     `json:"interpreter,omitempty"`
	Host         string     `json:"host,omitempty"`
	Port         int        `json:"port,omitempty"`
	PID          int        `json:"pid,omitempty"`
	State        string     `json:"state"`
	Outcome      string     `json:"outcome,omitempty"`
	ReadyAfterMS int64      `json:"ready_after_ms,omitempty"`
	Attempts     int        `json:"attempts,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}

// DefaultListLimit and MaxListLimit bound List.
const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)
