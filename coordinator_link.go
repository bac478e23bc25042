package authcoord

import (
	"context"
	"errors"

	"github.com/veldtma/authcoord/internal/audit"
	"github.com/veldtma/authcoord/internal/flows"
	"github.com/veldtma/authcoord/internal/transport"
)

// LinkAccount attaches an external-provider identity to the signed-in user.
// It requires a live session: linking is an enrichment of an authenticated
// identity, never a way to establish one.
func (c *Coordinator) LinkAccount(ctx context.Context, profile ProviderProfile, providerToken string) (LinkedAccount, error) {
	if c.closed.Load() {
		return LinkedAccount{}, ErrClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()
	defer c.beginLoading()()

	current, version := c.store.Snapshot()
	if !current.Authenticated(c.clock.Now()) {
		authErr := newAuthError(ErrKindPrecondition,
			"account linking requires an authenticated session", false, ErrNotAuthenticated)
		c.setLastError(authErr)
		return LinkedAccount{}, authErr
	}

	res := c.svc.Link(ctx, profile, providerToken)
	if res.Failure != flows.LinkFailureNone {
		authErr := c.linkError(res)
		c.metrics.Inc(MetricLinkFailure)
		c.setLastError(authErr)
		c.recordAudit(audit.Event{
			Kind:     audit.KindOAuthLogin,
			Severity: audit.SeverityWarning,
			UserID:   current.UserID,
			Provider: profile.Provider,
			Error:    authErr.Message,
		})
		return LinkedAccount{}, authErr
	}

	if c.store.Version() != version {
		c.metrics.Inc(MetricStaleResultDiscarded)
		authErr := newAuthError(ErrKindPrecondition,
			"session state changed during linking; result discarded", false, nil)
		c.setLastError(authErr)
		return LinkedAccount{}, authErr
	}

	updated := current.Clone()
	updated.Linked = upsertLinked(updated.Linked, res.Account)
	if _, err := c.store.Replace(ctx, updated); err != nil {
		c.setLastError(newAuthError(ErrKindNetwork, "session persistence failed", true, err))
	} else {
		c.clearLastError()
	}
	c.broadcastSessionChanged(ctx, updated)

	c.metrics.Inc(MetricLinkSuccess)
	c.recordAudit(audit.Event{
		Kind:     audit.KindOAuthLogin,
		Severity: audit.SeverityInfo,
		UserID:   updated.UserID,
		Provider: res.Account.Provider,
		Success:  true,
	})
	return res.Account, nil
}

func (c *Coordinator) linkError(res flows.LinkResult) *AuthError {
	switch res.Failure {
	case flows.LinkFailureValidation:
		return newAuthError(ErrKindOAuthCallback, "provider profile incomplete", true, res.Err)
	case flows.LinkFailureServer:
		authErr := newAuthError(ErrKindValidation, "", true, res.Err)
		var serverErr *transport.ServerError
		if errors.As(res.Err, &serverErr) {
			authErr.Message = serverErr.Message
			authErr.Code = serverErr.Code
		}
		if authErr.Message == "" {
			authErr.Message = "account link rejected"
		}
		return authErr
	default:
		return newAuthError(ErrKindNetwork, "account link request failed", true, res.Err)
	}
}

// upsertLinked replaces an existing entry for the same provider identity or
// appends a new one.
func upsertLinked(linked []LinkedAccount, account LinkedAccount) []LinkedAccount {
	for i, existing := range linked {
		if existing.Provider == account.Provider && existing.ProviderAccountID == account.ProviderAccountID {
			linked[i] = account
			return linked
		}
	}
	return append(linked, account)
}
