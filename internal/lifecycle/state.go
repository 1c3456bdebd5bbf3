package lifecycle

import (
	"time"

	"github.com/nerrad567/warehouse-desktop/internal/ports"
	"github.com/nerrad567/warehouse-desktop/internal/readiness"
)

// State is a Coordinator lifecycle state.
type State string

const (
	StateIdle          State = "idle"
	StateAllocating    State = "allocating"
	StateLaunching     State = "launching"
	StateProbing       State = "probing"
	StateReady         State = "ready"
	StateDegradedReady State = "degraded_ready"
	StateRunning       State = "running"
	StateTerminating   State = "terminating"
	StateTerminated    State = "terminated"
	StateFailed        State = "failed"
)

// transitions lists the legal successor states.
var transitions = map[State][]State{
	StateIdle:          {StateAllocating, StateTerminating},
	StateAllocating:    {StateLaunching, StateFailed, StateTerminating},
	StateLaunching:     {StateProbing, StateFailed, StateTerminating},
	StateProbing:       {StateReady, StateDegradedReady, StateTerminating},
	StateReady:         {StateRunning, StateTerminating},
	StateDegradedReady: {StateRunning, StateTerminating},
	StateRunning:       {StateTerminating},
	StateFailed:        {StateTerminating},
	StateTerminating:   {StateTerminated},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateTerminated
}

// Transition is delivered to observers on every state change.
type Transition struct {
	Session  string         `json:"session"`
	From     State          `json:"from"`
	To       State          `json:"to"`
	At       time.Time      `json:"at"`
	Endpoint ports.Endpoint `json:"endpoint"`
	PID      int            `json:"pid,omitempty"`

	// Readiness is set on the transition out of Probing.
	Readiness *readiness.Result `json:"readiness,omitempty"`

	// Error is the failure message on the transition into Failed.
	Error string `json:"error,omitempty"`
}
