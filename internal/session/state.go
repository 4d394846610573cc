package session

import (
	"fmt"

	"github.com/neekaru/whatsappgo-fleet/internal/client"
)

// State is the lifecycle position of a session.
type State int

const (
	StateCreating State = iota
	StateAwaitingQR
	StateAuthenticated
	StateReady
	StateAuthFailed
	StateDisconnected
)

// eventInitFailure is synthesized by the controller when a client cannot be
// built or initialized. Clients never emit it.
const eventInitFailure client.EventKind = "init_failure"

// String returns a string representation of the state
func (s State) String() string {
	switch s {
	case StateCreating:
		return "CREATING"
	case StateAwaitingQR:
		return "AWAITING_QR"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateReady:
		return "READY"
	case StateAuthFailed:
		return "AUTH_FAILED"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateAuthFailed || s == StateDisconnected
}

// Transition returns the state reached from `from` on an event of the given
// kind, and false when the event is not allowed there.
func Transition(from State, kind client.EventKind) (State, bool) {
	if from.Terminal() {
		return from, false
	}
	switch kind {
	case client.EventQR:
		if from == StateCreating || from == StateAwaitingQR {
			return StateAwaitingQR, true
		}
	case client.EventAuthenticated:
		if from == StateCreating || from == StateAwaitingQR {
			return StateAuthenticated, true
		}
	case client.EventReady:
		if from == StateAuthenticated {
			return StateReady, true
		}
	case client.EventAuthFailure, eventInitFailure:
		return StateAuthFailed, true
	case client.EventDisconnected:
		return StateDisconnected, true
	}
	return from, false
}
