package flows

import (
	"context"
	"time"

	"github.com/veldtma/authcoord/internal/transport"
)

// API is the slice of the transport client the flows consume.
type API interface {
	Login(ctx context.Context, email, password, csrfToken string) (*transport.AuthPayload, error)
	Register(ctx context.Context, req transport.RegisterRequest, csrfToken string) (*transport.AuthPayload, error)
	Logout(ctx context.Context, csrfToken string) error
	Refresh(ctx context.Context, csrfToken string) (*transport.RefreshPayload, error)
	Validate(ctx context.Context) (*transport.ValidatePayload, error)
	LinkAccount(ctx context.Context, provider, providerToken, csrfToken string) (*transport.LinkedAccountPayload, error)
}

// Deps groups flow dependency sets. The root coordinator builds this once
// and delegates each operation to the matching Run function.
type Deps struct {
	API API
	// CurrentCSRF is read immediately before each state-changing request
	// so a rotation landing mid-operation is never sent stale.
	CurrentCSRF func() string
	Now         func() time.Time
	// TokenExpiry extracts an expiry hint from an access token when a
	// refresh payload omits expiresAt.
	TokenExpiry func(token string) (time.Time, bool)
}
