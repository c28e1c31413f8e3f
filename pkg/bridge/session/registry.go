package session

import (
	"sort"
	"sync"

	"github.com/netlinkvoice/connectai/pkg/bridge/metrics"
)

// Registry tracks all sessions currently alive in the process, keyed by
// both session ID and external call ID. A session is reachable here from
// the moment it registers until its teardown path removes it.
type Registry struct {
	mu         sync.Mutex
	byID       map[string]*Session
	byExternal map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[string]*Session),
		byExternal: make(map[string]*Session),
	}
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	r.byID[s.id] = s
	if s.externalID != "" {
		r.byExternal[s.externalID] = s
	}
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	if cur, ok := r.byID[s.id]; ok && cur == s {
		delete(r.byID, s.id)
		if s.externalID != "" && r.byExternal[s.externalID] == s {
			delete(r.byExternal, s.externalID)
		}
		metrics.ActiveSessions.Dec()
	}
	r.mu.Unlock()
}

// Find returns the session with the given session ID, or nil.
func (r *Registry) Find(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// FindByExternalID returns the session for an external call ID, or nil.
func (r *Registry) FindByExternalID(externalID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byExternal[externalID]
}

// List snapshots every registered session, oldest first.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// ForceClose begins teardown of the session with the given ID. It reports
// whether the session was found; closing an already-closing session is a
// no-op and still reports true.
func (r *Registry) ForceClose(id, reason string) bool {
	s := r.Find(id)
	if s == nil {
		return false
	}
	s.BeginClose(reason)
	return true
}

// CloseAll begins teardown of every registered session and waits for each
// to finish. Used during server shutdown.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.BeginClose(reason)
	}
	for _, s := range sessions {
		<-s.Closed()
	}
}
