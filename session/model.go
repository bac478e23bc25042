package session

import (
	"errors"
	"strings"
	"time"
)

// AuthMethod records how the session was established.
type AuthMethod string

const (
	// AuthMethodPassword marks sessions created by email+password login or
	// registration.
	AuthMethodPassword AuthMethod = "password"
	// AuthMethodFederated marks sessions created by an external identity
	// provider exchange.
	AuthMethodFederated AuthMethod = "federated"
)

// LinkedAccount is one external-provider identity attached to the session's
// user.
type LinkedAccount struct {
	Provider          string
	ProviderAccountID string
	ProviderEmail     string
	LinkedAt          time.Time
}

// Session is the client's record of an authenticated identity and its
// validity window. Instances handed out by the Store are defensive copies.
type Session struct {
	UserID     string
	Email      string
	GivenName  string
	FamilyName string
	AvatarURL  string
	Method     AuthMethod
	Linked     []LinkedAccount

	IssuedAt  time.Time
	ExpiresAt time.Time

	// LastValidatedAt is volatile: it is never persisted and resets on
	// hydration.
	LastValidatedAt time.Time
}

// Expired reports whether the validity window has passed. A session with
// ExpiresAt in the past must never be treated as authenticated.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Authenticated reports whether s represents a live authenticated identity.
func (s *Session) Authenticated(now time.Time) bool {
	return s != nil && !s.Expired(now)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Linked != nil {
		out.Linked = make([]LinkedAccount, len(s.Linked))
		copy(out.Linked, s.Linked)
	}
	return &out
}

// ClampLifetime caps ExpiresAt at IssuedAt+limit. A zero limit disables the
// cap.
func (s *Session) ClampLifetime(limit time.Duration) {
	if s == nil || limit <= 0 {
		return
	}
	hardCap := s.IssuedAt.Add(limit)
	if s.ExpiresAt.After(hardCap) {
		s.ExpiresAt = hardCap
	}
}

// ProviderProfile is the identity payload handed over by the external
// provider exchange. It is validated at the boundary before any Session or
// LinkedAccount is constructed from it.
type ProviderProfile struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Picture  string
}

// ErrProfileIncomplete is returned by ProviderProfile.Validate when required
// fields are missing.
var ErrProfileIncomplete = errors.New("provider profile incomplete")

// Validate checks the fields a Session construction depends on.
func (p ProviderProfile) Validate() error {
	if strings.TrimSpace(p.Provider) == "" || strings.TrimSpace(p.Subject) == "" {
		return ErrProfileIncomplete
	}
	return nil
}
