package session

import (
	"sort"
	"sync"
)

type entry struct {
	session *Session
	qr      string
}

// Registry maps instance IDs to their live session and pending QR payload.
// Every method is atomic with respect to the others.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// TryRegister inserts sess under id unless the id is already taken.
func (r *Registry) TryRegister(id string, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return false
	}
	r.entries[id] = &entry{session: sess}
	return true
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Lookup is Get with ErrInstanceNotFound for unknown IDs.
func (r *Registry) Lookup(id string) (*Session, error) {
	sess, ok := r.Get(id)
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return sess, nil
}

// LookupReady additionally requires the session to be READY.
func (r *Registry) LookupReady(id string) (*Session, error) {
	sess, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if sess.State() != StateReady || sess.Client() == nil {
		return nil, ErrNotReady
	}
	return sess, nil
}

// SetQR stores the payload for a registered id; unknown ids are ignored.
func (r *Registry) SetQR(id, payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.qr = payload
	}
}

func (r *Registry) ClearQR(id string) {
	r.SetQR(id, "")
}

func (r *Registry) GetQR(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok || e.qr == "" {
		return "", false
	}
	return e.qr, true
}

// Remove drops the session and its QR payload.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// removeIf drops id only while it still maps to sess.
func (r *Registry) removeIf(id string, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && e.session == sess {
		delete(r.entries, id)
		return true
	}
	return false
}

// All returns the registered sessions ordered by instance ID.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.entries))
	for _, e := range r.entries {
		sessions = append(sessions, e.session)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
