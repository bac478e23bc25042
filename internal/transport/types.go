package transport

import (
	"time"

	"github.com/veldtma/authcoord/session"
)

// LinkedAccountPayload mirrors one linked external identity on the wire.
type LinkedAccountPayload struct {
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"providerAccountId"`
	ProviderEmail     string    `json:"providerEmail,omitempty"`
	LinkedAt          time.Time `json:"linkedAt"`
}

// UserPayload is the session-bearing user record returned by login,
// register, refresh, and validate.
type UserPayload struct {
	ID             string                 `json:"id"`
	Email          string                 `json:"email"`
	GivenName      string                 `json:"givenName,omitempty"`
	FamilyName     string                 `json:"familyName,omitempty"`
	AvatarURL      string                 `json:"avatarUrl,omitempty"`
	AuthMethod     string                 `json:"authMethod,omitempty"`
	LinkedAccounts []LinkedAccountPayload `json:"linkedAccounts,omitempty"`
	IssuedAt       time.Time              `json:"issuedAt,omitzero"`
	ExpiresAt      time.Time              `json:"expiresAt,omitzero"`
}

// Session converts the payload into the domain model. now supplies IssuedAt
// when the server omitted it.
func (p *UserPayload) Session(now time.Time) *session.Session {
	if p == nil {
		return nil
	}

	method := session.AuthMethod(p.AuthMethod)
	if method == "" {
		method = session.AuthMethodPassword
	}
	issued := p.IssuedAt
	if issued.IsZero() {
		issued = now
	}

	s := &session.Session{
		UserID:     p.ID,
		Email:      p.Email,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		AvatarURL:  p.AvatarURL,
		Method:     method,
		IssuedAt:   issued,
		ExpiresAt:  p.ExpiresAt,
	}
	for _, link := range p.LinkedAccounts {
		s.Linked = append(s.Linked, session.LinkedAccount{
			Provider:          link.Provider,
			ProviderAccountID: link.ProviderAccountID,
			ProviderEmail:     link.ProviderEmail,
			LinkedAt:          link.LinkedAt,
		})
	}
	return s
}

// AuthPayload is the success body of login and register.
type AuthPayload struct {
	User      *UserPayload
	CSRFToken string
}

// RefreshPayload is the success body of refresh. CSRFToken is empty when the
// server did not rotate; AccessToken optionally carries a JWT whose exp claim
// serves as an expiry hint when the session payload omits expiresAt.
type RefreshPayload struct {
	Session     *UserPayload
	CSRFToken   string
	AccessToken string
}

// ValidatePayload is the decoded body of validate. Valid=false is an
// authoritative rejection, not a transport failure.
type ValidatePayload struct {
	Valid     bool
	User      *UserPayload
	ExpiresAt time.Time
	Reason    string
}

// RegisterRequest carries the registration profile fields.
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

type wireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type authResponse struct {
	Success       bool                  `json:"success"`
	User          *UserPayload          `json:"user,omitempty"`
	Session       *UserPayload          `json:"session,omitempty"`
	LinkedAccount *LinkedAccountPayload `json:"linkedAccount,omitempty"`
	CSRFToken     string                `json:"csrfToken,omitempty"`
	AccessToken   string                `json:"accessToken,omitempty"`
	Error         *wireError            `json:"error,omitempty"`
}

type validateResponse struct {
	Valid     bool         `json:"valid"`
	User      *UserPayload `json:"user,omitempty"`
	ExpiresAt time.Time    `json:"expiresAt,omitzero"`
	Error     *wireError   `json:"error,omitempty"`
}
