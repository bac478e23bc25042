package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/veldtma/authcoord/internal/transport"
)

// RegisterInput is the registration profile as entered by the user.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	GivenName       string
	FamilyName      string
	AcceptedTerms   bool
}

// RunRegister enforces the local preconditions (password confirmation,
// accepted terms) before issuing the network call.
func RunRegister(ctx context.Context, input RegisterInput, deps Deps) LoginResult {
	email := strings.TrimSpace(input.Email)
	switch {
	case email == "" || input.Password == "":
		return LoginResult{
			Failure: LoginFailureValidation,
			Err:     errors.New("email and password are required"),
		}
	case input.Password != input.ConfirmPassword:
		return LoginResult{
			Failure: LoginFailureValidation,
			Err:     errors.New("password confirmation does not match"),
		}
	case !input.AcceptedTerms:
		return LoginResult{
			Failure: LoginFailureValidation,
			Err:     errors.New("terms must be accepted"),
		}
	}

	req := transport.RegisterRequest{
		Email:      email,
		Password:   input.Password,
		GivenName:  input.GivenName,
		FamilyName: input.FamilyName,
	}
	payload, err := deps.API.Register(ctx, req, deps.CurrentCSRF())
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
