// Package rpcstate implements the six-state RPC lifecycle machine shared
// by every OutgoingCall and IncomingCall.
package rpcstate

import "sync"

// State is one of the six lifecycle states an RPC handle may occupy.
type State int

const (
	Created State = iota
	Initializing
	Executing
	Inactive
	Disposing
	Finished
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Initializing:
		return "INITIALIZING"
	case Executing:
		return "EXECUTING"
	case Inactive:
		return "INACTIVE"
	case Disposing:
		return "DISPOSING"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// transitions is the allowed-transition table. Any request outside this
// table is a silent no-op.
var transitions = map[State]map[State]bool{
	Created:      {Initializing: true},
	Initializing: {Executing: true, Inactive: true, Finished: true},
	Executing:    {Inactive: true, Disposing: true, Finished: true},
	Inactive:     {Inactive: true, Disposing: true, Finished: true},
	Disposing:    {Finished: true},
	Finished:     {},
}

// Machine is a mutex-protected State with a transition table and an
// optional change callback invoked after a successful transition,
// outside the lock.
type Machine struct {
	mu       sync.Mutex
	state    State
	OnChange func(from, to State)
}

// NewMachine returns a Machine starting in Created.
func NewMachine() *Machine {
	return &Machine{state: Created}
}

// GetState returns the current state. When lock is false the caller
// already holds m's mutex (used by compound operations that must read
// state without deadlocking).
func (m *Machine) GetState(lock bool) State {
	if lock {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	return m.state
}

// SetState attempts the transition to `to`. It returns false, with no
// effect, if the transition is not in the allowed table. On success the
// change callback (if set) fires after the lock is released; callers
// must not re-enter SetState from within that callback on the same
// goroutine call stack.
func (m *Machine) SetState(to State) bool {
	m.mu.Lock()
	from := m.state
	allowed := transitions[from][to]
	if allowed {
		m.state = to
	}
	m.mu.Unlock()

	if allowed && m.OnChange != nil {
		m.OnChange(from, to)
	}
	return allowed
}
