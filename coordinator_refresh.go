package authcoord

import (
	"context"

	"github.com/veldtma/authcoord/internal/audit"
	"github.com/veldtma/authcoord/internal/flows"
)

// Refresh renews the session ahead of expiry. No refresh failure ends the
// session on its own: a transient failure re-arms the timer for a retry
// inside the remaining validity window, and an authoritative refusal asks
// the validator for the verdict instead of acting on it.
func (c *Coordinator) Refresh(ctx context.Context) (*Session, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()
	defer c.beginLoading()()

	current, version := c.store.Snapshot()
	if current == nil {
		return nil, newAuthError(ErrKindPrecondition, "no session to refresh", false, ErrNotAuthenticated)
	}

	res := c.svc.Refresh(ctx)
	switch res.Failure {
	case flows.RefreshFailureRejected:
		c.metrics.Inc(MetricRefreshRejected)
		authErr := newAuthError(ErrKindNetwork, "refresh rejected; session pending validation", true, res.Err)
		c.setLastError(authErr)
		c.recordAudit(audit.Event{
			Kind:     audit.KindTokenRefresh,
			Severity: audit.SeverityHigh,
			UserID:   current.UserID,
			Error:    authErr.Message,
		})
		c.rearmForRetry(current)
		// A refused renewal is not a session verdict. Only the validator may
		// end the session, so request its check.
		go func() { _, _ = c.Validate(context.Background()) }()
		return nil, authErr

	case flows.RefreshFailureTransient:
		c.metrics.Inc(MetricRefreshTransient)
		authErr := newAuthError(ErrKindNetwork, "refresh attempt failed", true, res.Err)
		c.setLastError(authErr)
		c.rearmForRetry(current)
		return nil, authErr
	}

	if c.store.Version() != version {
		c.metrics.Inc(MetricStaleResultDiscarded)
		authErr := newAuthError(ErrKindPrecondition,
			"session state changed during refresh; result discarded", false, nil)
		c.setLastError(authErr)
		return nil, authErr
	}

	renewed := res.Session
	if renewed.ExpiresAt.IsZero() {
		// No expiry from the server and no token hint: keep the previous
		// window rather than installing an immediately-expired session.
		renewed.ExpiresAt = current.ExpiresAt
	}
	if _, err := c.store.Replace(ctx, renewed); err != nil {
		c.setLastError(newAuthError(ErrKindNetwork, "session persistence failed", true, err))
	} else {
		c.clearLastError()
	}

	if res.CSRFToken != "" {
		c.csrf.Rotate(res.CSRFToken)
		c.metrics.Inc(MetricCSRFRotations)
	}
	if !c.cfg.Refresh.Disabled {
		c.sched.Arm(renewed.ExpiresAt)
	}
	c.broadcastSessionChanged(ctx, renewed)

	c.metrics.Inc(MetricRefreshSuccess)
	c.recordAudit(audit.Event{
		Kind:     audit.KindTokenRefresh,
		Severity: audit.SeverityInfo,
		UserID:   renewed.UserID,
		Success:  true,
	})
	return renewed.Clone(), nil
}

// rearmForRetry schedules another refresh attempt after a transient failure.
// Outside the threshold window it behaves like a normal arm; inside it, it
// waits half the remaining validity so retries decay toward expiry instead
// of spinning.
func (c *Coordinator) rearmForRetry(current *Session) {
	if c.cfg.Refresh.Disabled {
		return
	}
	remaining := current.ExpiresAt.Sub(c.clock.Now())
	if remaining <= 0 {
		go c.expireLocally()
		return
	}
	delay := remaining - c.cfg.Refresh.Threshold
	if delay <= 0 {
		delay = remaining / 2
	}
	c.sched.RetryIn(delay)
}

// refreshTimerFired is the scheduler's Fire hook.
func (c *Coordinator) refreshTimerFired() {
	if c.closed.Load() {
		return
	}
	_, _ = c.Refresh(context.Background())
}
