package session

import (
	"context"
	"sync"
	"time"

	"github.com/neekaru/whatsappgo-fleet/internal/client"
)

// Session is the in-memory record of one instance. Its state only changes
// through the controller's transition loop.
type Session struct {
	ID string

	mu        sync.RWMutex
	state     State
	lastError error
	client    client.Client
	createdAt time.Time
	updatedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		state:     StateCreating,
		createdAt: now,
		updatedAt: now,
		done:      make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Client returns the session's client handle, or nil while it is still
// being constructed.
func (s *Session) Client() client.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Session) setClient(c client.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}

// advance applies evt and returns the previous and next states. ok is false
// when the event is not allowed in the current state.
func (s *Session) advance(evt client.Event, now time.Time) (prev, next State, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev = s.state
	next, ok = Transition(prev, evt.Kind)
	if !ok {
		return prev, prev, false
	}
	s.state = next
	s.updatedAt = now
	if evt.Err != nil {
		s.lastError = evt.Err
	}
	return prev, next, true
}

// Snapshot is a point-in-time copy of a session for callers outside the
// controller.
type Snapshot struct {
	InstanceID string    `json:"instanceId"`
	State      State     `json:"state"`
	LastError  string    `json:"lastError,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		InstanceID: s.ID,
		State:      s.state,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}
	if s.lastError != nil {
		snap.LastError = s.lastError.Error()
	}
	return snap
}
