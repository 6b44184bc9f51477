// Package sse implements the Server-Sent Events side of the bridge: the
// session registry that host calls feed, the frame format, and the writer
// that streams a session's queue to its subscriber.
package sse

import (
	"sync"
	"time"

	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// Session is one live SSE subscription.
type Session struct {
	ID        string
	Queue     *Queue
	CreatedAt time.Time
}

// Registry maps session ids to their outbound queues.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Open registers a new session under id. An existing session with the same
// id is replaced and its stream ends.
func (r *Registry) Open(id string) *Session {
	s := &Session{
		ID:        id,
		Queue:     NewQueue(),
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	old := r.sessions[id]
	r.sessions[id] = s
	r.mu.Unlock()

	if old != nil {
		old.Queue.Close()
	}
	return s
}

// Send formats data as a "message" frame and queues it on session id.
func (r *Registry) Send(id, data string) error {
	return r.SendEvent(id, EventMessage, data)
}

// SendEvent queues a frame with the given event name on session id.
func (r *Registry) SendEvent(id, name, data string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok || !s.Queue.Push(FormatEvent(name, data)) {
		return types.ErrSessionNotFound
	}
	return nil
}

// Close removes session id; its stream ends after draining queued frames.
// It reports whether the session existed.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		s.Queue.Close()
	}
	return ok
}

// Detach removes s if it is still the session registered under its id.
// Used when the subscriber's connection goes away.
func (r *Registry) Detach(s *Session) bool {
	r.mu.Lock()
	current, ok := r.sessions[s.ID]
	if ok && current == s {
		delete(r.sessions, s.ID)
	} else {
		ok = false
	}
	r.mu.Unlock()

	s.Queue.Close()
	return ok
}

// CloseAll removes every session and returns how many were open.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Queue.Close()
	}
	return len(sessions)
}

// Has reports whether session id is open.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
