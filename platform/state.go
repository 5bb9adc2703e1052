package platform

import (
	"fmt"
	"slices"
	"sync"
)

// State is the position of a session in the web login handshake.
type State int

const (
	StateIdle State = iota
	StateRegistering
	StateRegistered
	StatePolling
	StateAuthenticated
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRegistering:
		return "registering"
	case StateRegistered:
		return "registered"
	case StatePolling:
		return "polling"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Failed and timed out sessions may be registered again.
var transitions = map[State][]State{
	StateIdle:        {StateRegistering},
	StateRegistering: {StateRegistered, StateFailed},
	StateRegistered:  {StatePolling},
	StatePolling:     {StateAuthenticated, StateFailed, StateTimedOut},
	StateFailed:      {StateRegistering},
	StateTimedOut:    {StateRegistering},
}

// sessions tracks the handshake state of the session ids a client is working
// on. Unknown ids are Idle. A session is forgotten once it authenticates, so
// the table holds only unfinished or failed handshakes and the id may log in
// again.
type sessions struct {
	mu     sync.Mutex
	states map[string]State
}

func (s *sessions) get(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[id]
}

// advance moves id to state to, if that is legal from its current state.
// Reaching StateAuthenticated removes the entry.
func (s *sessions) advance(id string, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.states == nil {
		s.states = make(map[string]State)
	}

	cur := s.states[id]
	if !slices.Contains(transitions[cur], to) {
		return fmt.Errorf("%w: session %q cannot go from %s to %s", ErrIllegalTransition, id, cur, to)
	}

	if to == StateAuthenticated {
		delete(s.states, id)
		return nil
	}

	s.states[id] = to
	return nil
}
