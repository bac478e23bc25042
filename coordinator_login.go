package authcoord

import (
	"context"
	"errors"

	"github.com/veldtma/authcoord/internal/audit"
	"github.com/veldtma/authcoord/internal/flows"
	"github.com/veldtma/authcoord/internal/transport"
)

// Login establishes a session with email and password. On success the
// session is persisted, the CSRF token rotates to the server-issued value,
// the refresh timer arms, and sibling instances are notified.
func (c *Coordinator) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()
	defer c.beginLoading()()

	version := c.store.Version()
	res := c.svc.Login(ctx, creds.Email, creds.Password)
	return c.completeSignIn(ctx, version, res, signInLogin)
}

// Register creates an account and establishes its first session. Password
// confirmation and terms acceptance are checked locally before any request.
func (c *Coordinator) Register(ctx context.Context, profile RegistrationProfile) (*Session, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()
	defer c.beginLoading()()

	version := c.store.Version()
	res := c.svc.Register(ctx, flows.RegisterInput{
		Email:           profile.Email,
		Password:        profile.Password,
		ConfirmPassword: profile.ConfirmPassword,
		GivenName:       profile.GivenName,
		FamilyName:      profile.FamilyName,
		AcceptedTerms:   profile.AcceptedTerms,
	})
	return c.completeSignIn(ctx, version, res, signInRegister)
}

type signInOp int

const (
	signInLogin signInOp = iota
	signInRegister
)

func (op signInOp) metrics() (success, failure MetricID) {
	if op == signInRegister {
		return MetricRegisterSuccess, MetricRegisterFailure
	}
	return MetricLoginSuccess, MetricLoginFailure
}

// completeSignIn maps a sign-in flow result onto coordinator state. The
// version captured before the network round-trip guards against a remote
// update having landed mid-flight.
func (c *Coordinator) completeSignIn(ctx context.Context, version uint64, res flows.LoginResult, op signInOp) (*Session, error) {
	successID, failureID := op.metrics()

	if res.Failure != flows.LoginFailureNone {
		authErr := c.signInError(res)
		c.metrics.Inc(failureID)
		if res.Failure == flows.LoginFailureServer {
			c.recordAudit(audit.Event{
				Kind:     audit.KindFailedLogin,
				Severity: audit.SeverityWarning,
				Error:    authErr.Message,
			})
		}
		c.setLastError(authErr)
		return nil, authErr
	}

	if c.store.Version() != version {
		c.metrics.Inc(MetricStaleResultDiscarded)
		authErr := newAuthError(ErrKindPrecondition,
			"session state changed during sign-in; result discarded", false, nil)
		c.setLastError(authErr)
		return nil, authErr
	}

	if _, err := c.store.Replace(ctx, res.Session); err != nil {
		// The in-memory session stands; only the durable mirror failed.
		c.setLastError(newAuthError(ErrKindNetwork, "session persistence failed", true, err))
	} else {
		c.clearLastError()
	}

	if res.CSRFToken != "" {
		c.csrf.Rotate(res.CSRFToken)
		c.metrics.Inc(MetricCSRFRotations)
	}
	if !c.cfg.Refresh.Disabled {
		c.sched.Arm(res.Session.ExpiresAt)
	}
	c.broadcastSessionChanged(ctx, res.Session)

	kind := audit.KindLogin
	if op == signInRegister {
		kind = audit.KindRegister
	}
	c.metrics.Inc(successID)
	c.recordAudit(audit.Event{
		Kind:     kind,
		Severity: audit.SeverityInfo,
		UserID:   res.Session.UserID,
		Success:  true,
	})
	return res.Session.Clone(), nil
}

func (c *Coordinator) signInError(res flows.LoginResult) *AuthError {
	switch res.Failure {
	case flows.LoginFailureValidation:
		return newAuthError(ErrKindValidation, "", true, res.Err)
	case flows.LoginFailureServer:
		authErr := newAuthError(ErrKindValidation, "", true, res.Err)
		var serverErr *transport.ServerError
		if errors.As(res.Err, &serverErr) {
			authErr.Message = serverErr.Message
			authErr.Code = serverErr.Code
		}
		if authErr.Message == "" {
			authErr.Message = "sign-in rejected"
		}
		return authErr
	default:
		return newAuthError(ErrKindNetwork, "sign-in request failed", true, res.Err)
	}
}
