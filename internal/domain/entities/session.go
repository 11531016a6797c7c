package entities

import "context"

// Session is the authenticated caller threaded through the dispatch workflow.
type Session struct {
	Profile *Profile
	Loading bool
}

// NewSession wraps a resolved profile
func NewSession(profile *Profile) Session {
	return Session{Profile: profile}
}

// IsAuthenticated reports whether a profile is attached and finished loading
func (s Session) IsAuthenticated() bool {
	return s.Profile != nil && !s.Loading
}

// ProfileID returns the caller's profile id or ""
func (s Session) ProfileID() string {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.ID
}

// IsFrontlineWorker reports whether the caller may use the responder dashboard
func (s Session) IsFrontlineWorker() bool {
	return s.Profile != nil && s.Profile.IsFrontlineWorker
}

type sessionKey struct{}

// WithSession attaches the session to ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session attached by WithSession
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
