// Package session tracks whether the current process is authenticated.
//
// A Session is created unauthenticated by the process entry point and handed
// to every collaborator that needs it. Its state is replaced as one value, so
// readers never see a flag that disagrees with the tokens next to it. Only the
// login and logout operations write it (SignIn, SignOut).
package session

import (
	"sync/atomic"
	"time"
)

// State is an immutable snapshot of the session.
type State struct {
	Authenticated bool
	Username      string
	UserID        string
	AccessToken   string
	RefreshToken  string
	// ExpiresAt is the access token expiry, zero when unknown.
	ExpiresAt time.Time
}

type Session struct {
	state atomic.Pointer[State]
}

// New returns an unauthenticated Session.
func New() *Session {
	s := &Session{}
	s.state.Store(&State{})
	return s
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	return *s.state.Load()
}

func (s *Session) IsAuthenticated() bool {
	return s.state.Load().Authenticated
}

// AccessToken implements transport.Credentials.
func (s *Session) AccessToken() string {
	return s.state.Load().AccessToken
}

// SignIn replaces the state with st, forcing Authenticated to true.
func (s *Session) SignIn(st State) {
	st.Authenticated = true
	s.state.Store(&st)
}

// SignOut resets the session to the unauthenticated zero state. Calling it
// on an unauthenticated session is a no-op.
func (s *Session) SignOut() {
	s.state.Store(&State{})
}

// Expired reports whether the access token expiry is known and has passed.
func (s *Session) Expired(now time.Time) bool {
	st := s.state.Load()
	return st.Authenticated && !st.ExpiresAt.IsZero() && !now.Before(st.ExpiresAt)
}
