package services

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// SessionRegistry keeps live alert sessions by emergency id. Sessions expire
// after ttl without access; an expired persisted alert is rebuilt from the store.
type SessionRegistry struct {
	sessions *gocache.Cache
	ttl      time.Duration
}

// NewSessionRegistry creates a registry whose entries live for ttl
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionRegistry{
		sessions: gocache.New(ttl, ttl/2),
		ttl:      ttl,
	}
}

// Get returns the session for emergencyID and refreshes its expiry
func (r *SessionRegistry) Get(emergencyID string) (*AlertSession, bool) {
	v, ok := r.sessions.Get(emergencyID)
	if !ok {
		return nil, false
	}
	session := v.(*AlertSession)
	r.sessions.Set(emergencyID, session, r.ttl)
	return session, true
}

// Put stores a session, keeping an existing one for the same emergency.
// It returns the session that ends up registered.
func (r *SessionRegistry) Put(session *AlertSession) *AlertSession {
	id := session.EmergencyID()
	if err := r.sessions.Add(id, session, r.ttl); err != nil {
		if existing, ok := r.Get(id); ok {
			return existing
		}
		r.sessions.Set(id, session, r.ttl)
	}
	return session
}

// Delete forgets a session
func (r *SessionRegistry) Delete(emergencyID string) {
	r.sessions.Delete(emergencyID)
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	return r.sessions.ItemCount()
}
