package hub

import (
	"github.com/DoyleJ11/typerace-backend/internal/session"
)

// Registry maps room ids to live sessions. Only the hub loop touches it, which
// is what makes find-or-create atomic per room id.
type Registry struct {
	sessions   map[string]*session.Session
	newSession func(roomID, hostID string) *session.Session
}

func NewRegistry(newSession func(roomID, hostID string) *session.Session) *Registry {
	return &Registry{
		sessions:   make(map[string]*session.Session),
		newSession: newSession,
	}
}

// FindOrCreate returns the session for roomID, creating it with hostCandidate
// as host when the room is unknown.
func (r *Registry) FindOrCreate(roomID, hostCandidate string) (s *session.Session, created bool) {
	if s := r.sessions[roomID]; s != nil {
		return s, false
	}
	s = r.newSession(roomID, hostCandidate)
	r.sessions[roomID] = s
	return s, true
}

func (r *Registry) Get(roomID string) *session.Session { return r.sessions[roomID] }

func (r *Registry) Remove(roomID string) { delete(r.sessions, roomID) }

func (r *Registry) Len() int { return len(r.sessions) }

func (r *Registry) Each(fn func(*session.Session)) {
	for _, s := range r.sessions {
		fn(s)
	}
}

func (r *Registry) Clear() { clear(r.sessions) }
