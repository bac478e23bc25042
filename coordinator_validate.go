package authcoord

import (
	"context"

	"github.com/veldtma/authcoord/internal/audit"
	"github.com/veldtma/authcoord/internal/flows"
)

// Validate asks the server whether the current session still stands.
//
// An authoritative rejection ends the session and returns (false, nil): the
// verdict is an answer, not a failure. A transient transport problem returns
// the locally known validity plus a network AuthError; it never ends the
// session. Called without a session it reports (false, nil) immediately.
func (c *Coordinator) Validate(ctx context.Context) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	current, version := c.store.Snapshot()
	if current == nil {
		return false, nil
	}

	start := c.clock.Now()
	res := c.svc.Validate(ctx)
	c.metrics.Observe(MetricValidateLatency, c.clock.Now().Sub(start))

	switch res.Outcome {
	case flows.ValidateRejected:
		c.metrics.Inc(MetricValidateRejected)
		c.endSessionLocked(ctx)
		reason := res.Reason
		if reason == "" {
			reason = "session rejected by server"
		}
		// An authoritative rejection of a session this instance still held
		// suggests revocation or tampering.
		c.recordAudit(audit.Event{
			Kind:     audit.KindSessionInvalid,
			Severity: audit.SeverityHigh,
			UserID:   current.UserID,
			Error:    reason,
		})
		c.setLastError(newAuthError(ErrKindSessionInvalid, reason, false, nil))
		return false, nil

	case flows.ValidateTransient:
		c.metrics.Inc(MetricValidateTransient)
		authErr := newAuthError(ErrKindNetwork, "session validation failed", true, res.Err)
		c.setLastError(authErr)
		return current.Authenticated(c.clock.Now()), authErr
	}

	c.metrics.Inc(MetricValidateAccepted)
	c.store.MarkValidated(c.clock.Now())

	// The server may report a corrected expiry alongside acceptance.
	if !res.ExpiresAt.IsZero() && c.store.Version() == version && !res.ExpiresAt.Equal(current.ExpiresAt) {
		updated := current.Clone()
		updated.ExpiresAt = res.ExpiresAt
		if _, err := c.store.Replace(ctx, updated); err == nil {
			if !c.cfg.Refresh.Disabled {
				c.sched.Arm(updated.ExpiresAt)
			}
			c.broadcastSessionChanged(ctx, updated)
		}
	}

	c.clearLastError()
	return true, nil
}
