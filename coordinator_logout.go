package authcoord

import (
	"context"

	"github.com/veldtma/authcoord/internal/audit"
)

// Logout ends the session. The server is notified best-effort; local state
// is cleared, the refresh timer cancelled, a fresh anonymous CSRF token
// generated, and sibling instances told to end theirs, all regardless of
// whether the notification succeeded. An unreachable server never keeps a
// user signed in.
func (c *Coordinator) Logout(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()
	defer c.beginLoading()()

	sess, _ := c.store.Snapshot()

	res := c.svc.Logout(ctx)
	if res.NotifyErr != nil {
		c.metrics.Inc(MetricLogoutNotifyFailed)
	}

	c.endSessionLocked(ctx)
	c.clearLastError()
	c.metrics.Inc(MetricLogout)

	event := audit.Event{
		Kind:     audit.KindLogout,
		Severity: audit.SeverityInfo,
		Success:  true,
	}
	if sess != nil {
		event.UserID = sess.UserID
	}
	if res.NotifyErr != nil {
		event.Error = "server notification failed: " + res.NotifyErr.Error()
	}
	c.recordAudit(event)
	return nil
}
