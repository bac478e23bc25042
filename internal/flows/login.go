package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/veldtma/authcoord/internal/transport"
	"github.com/veldtma/authcoord/session"
)

// LoginFailureKind classifies login failures for root-level error mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureValidation
	LoginFailureServer
	LoginFailureNetwork
)

// LoginResult carries the established session or failure metadata.
type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	Session   *session.Session
	CSRFToken string
}

// RunLogin validates credential shape locally, then performs the login
// exchange. No state is mutated here.
func RunLogin(ctx context.Context, email, password string, deps Deps) LoginResult {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{
			Failure: LoginFailureValidation,
			Err:     errors.New("email and password are required"),
		}
	}

	payload, err := deps.API.Login(ctx, email, password, deps.CurrentCSRF())
	if err != nil {
		if isServerReject(err) {
			return LoginResult{Failure: LoginFailureServer, Err: err}
		}
		return LoginResult{Failure: LoginFailureNetwork, Err: err}
	}

	return LoginResult{
		Session:   payload.User.Session(deps.Now()),
		CSRFToken: payload.CSRFToken,
	}
}

// isServerReject distinguishes an explicit server-side refusal from a
// transport-level failure.
func isServerReject(err error) bool {
	var serverErr *transport.ServerError
	return errors.As(err, &serverErr)
}
