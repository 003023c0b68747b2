package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Registry is the process-wide map of live sessions. Sessions enter on
// authenticated connect and leave on disconnect; the registry owns the
// shared silence-timer coordinator and the active-session gauge.
type Registry struct {
	providers Providers
	cfg       Config
	timers    *SilenceTimers

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry. All sessions it creates share p
// and cfg.
func NewRegistry(p Providers, cfg Config) *Registry {
	return &Registry{
		providers: p,
		cfg:       cfg,
		timers:    NewSilenceTimers(),
		sessions:  make(map[string]*Session),
	}
}

// Create builds a new session for userID with a fresh id, registers it, and
// returns it. ctx bounds the session's collaborator calls.
func (r *Registry) Create(ctx context.Context, userID string, sink Sink) *Session {
	id := uuid.NewString()
	s := New(ctx, id, userID, sink, r.providers, r.cfg)
	s.SetTimers(r.timers)

	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	s.metrics.ActiveSessions.Add(ctx, 1)
	slog.Info("session created", "session", id, "user", userID, "active", n)
	return s
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove tears down the session with the given id and deletes it from the
// registry. Removing an unknown or already-removed id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return
	}
	s.Close()
	s.metrics.ActiveSessions.Add(context.Background(), -1)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll tears down every live session. Used on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		s.metrics.ActiveSessions.Add(context.Background(), -1)
	}
	if len(sessions) > 0 {
		slog.Info("all sessions closed", "count", len(sessions))
	}
}
