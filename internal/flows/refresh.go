package flows

import (
	"context"
	"errors"

	"github.com/veldtma/authcoord/internal/transport"
	"github.com/veldtma/authcoord/session"
)

// RefreshFailureKind classifies refresh failures. Rejected means the server
// authoritatively refused the refresh; Transient means the attempt failed
// without a verdict and the session stays as-is.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureRejected
	RefreshFailureTransient
)

// RefreshResult carries the renewed session. CSRFToken is empty when the
// server did not rotate the token alongside the refresh.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	Session   *session.Session
	CSRFToken string
}

// RunRefresh exchanges the refresh cookie for a renewed session. When the
// payload carries no expiresAt, the access token's exp claim is used as a
// fallback hint.
func RunRefresh(ctx context.Context, deps Deps) RefreshResult {
	payload, err := deps.API.Refresh(ctx, deps.CurrentCSRF())
	if err != nil {
		if transport.IsAuthoritative(err) {
			return RefreshResult{Failure: RefreshFailureRejected, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureTransient, Err: err}
	}

	sess := payload.Session.Session(deps.Now())
	if sess == nil {
		return RefreshResult{
			Failure: RefreshFailureTransient,
			Err:     errors.New("refresh response carried no session"),
		}
	}
	if sess.ExpiresAt.IsZero() && payload.AccessToken != "" && deps.TokenExpiry != nil {
		if exp, ok := deps.TokenExpiry(payload.AccessToken); ok {
			sess.ExpiresAt = exp
		}
	}
	return RefreshResult{Session: sess, CSRFToken: payload.CSRFToken}
}
