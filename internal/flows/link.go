package flows

import (
	"context"

	"github.com/veldtma/authcoord/session"
)

// LinkFailureKind classifies account-link failures.
type LinkFailureKind int

const (
	LinkFailureNone LinkFailureKind = iota
	LinkFailureValidation
	LinkFailureServer
	LinkFailureNetwork
)

// LinkResult carries the newly attached provider identity.
type LinkResult struct {
	Failure LinkFailureKind
	Err     error
	Account session.LinkedAccount
}

// RunLink attaches an external-provider identity to the current user. The
// caller guarantees an authenticated session exists; the profile is validated
// here before any network traffic.
func RunLink(ctx context.Context, profile session.ProviderProfile, providerToken string, deps Deps) LinkResult {
	if err := profile.Validate(); err != nil {
		return LinkResult{Failure: LinkFailureValidation, Err: err}
	}

	payload, err := deps.API.LinkAccount(ctx, profile.Provider, providerToken, deps.CurrentCSRF())
	if err != nil {
		if isServerReject(err) {
			return LinkResult{Failure: LinkFailureServer, Err: err}
		}
		return LinkResult{Failure: LinkFailureNetwork, Err: err}
	}

	account := session.LinkedAccount{
		Provider:          payload.Provider,
		ProviderAccountID: payload.ProviderAccountID,
		ProviderEmail:     payload.ProviderEmail,
		LinkedAt:          payload.LinkedAt,
	}
	if account.Provider == "" {
		account.Provider = profile.Provider
	}
	if account.ProviderAccountID == "" {
		account.ProviderAccountID = profile.Subject
	}
	if account.ProviderEmail == "" {
		account.ProviderEmail = profile.Email
	}
	if account.LinkedAt.IsZero() {
		account.LinkedAt = deps.Now()
	}
	return LinkResult{Account: account}
}
