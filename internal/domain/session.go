package domain

import "time"

// ============================================================
// Session
// ============================================================

// User is the identity returned by the backend's /auth/me endpoint.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// SessionState is where a browser session sits in its lifecycle.
type SessionState string

const (
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)

// Session is the process-wide view of one signed-in browser.
type Session struct {
	State     SessionState `json:"state"`
	User      *User        `json:"user,omitempty"`
	ExpiresAt time.Time    `json:"expiresAt,omitzero"`
	token     string
}

// NewAuthenticatedSession binds a token to its user.
func NewAuthenticatedSession(token string, user *User, expiresAt time.Time) *Session {
	return &Session{
		State:     SessionAuthenticated,
		User:      user,
		ExpiresAt: expiresAt,
		token:     token,
	}
}

// AnonymousSession is the state of a browser without a usable token.
func AnonymousSession() *Session {
	return &Session{State: SessionAnonymous}
}

// Token returns the bearer token; empty for anonymous sessions.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.token
}

// Authenticated reports whether the session carries a usable token.
func (s *Session) Authenticated() bool {
	return s != nil && s.State == SessionAuthenticated && s.token != ""
}

// Expired reports whether the token lifetime has passed.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
