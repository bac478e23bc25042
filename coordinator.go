package authcoord

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/veldtma/authcoord/csrf"
	"github.com/veldtma/authcoord/internal/audit"
	"github.com/veldtma/authcoord/internal/flows"
	"github.com/veldtma/authcoord/internal/scheduler"
	"github.com/veldtma/authcoord/internal/tabsync"
	"github.com/veldtma/authcoord/session"
)

// Coordinator owns one client instance's authentication state: the current
// session, the CSRF token, the refresh timer, and the synchronization
// endpoint. Obtain one through the Builder.
//
// Mutating operations are serialized: concurrent calls execute in call
// order. Remote updates arriving over the bus apply between operations;
// an in-flight operation whose state moved underneath it discards its
// result rather than clobbering the newer state.
type Coordinator struct {
	cfg        Config
	clock      Clock
	store      *session.Store
	csrf       *csrf.Manager
	svc        *flows.Service
	sched      *scheduler.Scheduler
	sync       *tabsync.Synchronizer
	metrics    *Metrics
	trail      *audit.Log
	dispatcher *audit.Dispatcher
	warnf      func(format string, args ...any)

	// opMu serializes mutating operations end to end.
	opMu sync.Mutex

	mu        sync.Mutex
	lastError error

	loading   atomic.Int32
	closed    atomic.Bool
	closeOnce sync.Once
}

// hydrate restores persisted session state. Corrupt or expired records fail
// open to logged out; a restored session arms the refresh timer and is
// re-validated against the server in the background.
func (c *Coordinator) hydrate(ctx context.Context) {
	sess, corrupt, err := c.store.Hydrate(ctx)
	if corrupt {
		c.metrics.Inc(MetricHydrationCorrupt)
		c.warnf("authcoord: corrupt persisted session record discarded")
		c.recordAudit(audit.Event{
			Kind:     audit.KindSessionInvalid,
			Severity: audit.SeverityWarning,
			Error:    "corrupt persisted session record discarded",
		})
		return
	}
	if err != nil {
		c.setLastError(newAuthError(ErrKindNetwork, "session storage unavailable", true, err))
		return
	}
	if sess == nil {
		return
	}

	c.metrics.Inc(MetricHydrationRestored)
	if !c.cfg.Refresh.Disabled {
		c.sched.Arm(sess.ExpiresAt)
	}

	// Restored trust is provisional until the server confirms it.
	go func() {
		_, _ = c.Validate(context.Background())
	}()
}

// View returns an immutable snapshot for rendering.
func (c *Coordinator) View() View {
	sess, _ := c.store.Snapshot()
	token := c.csrf.Current()

	c.mu.Lock()
	lastErr := c.lastError
	c.mu.Unlock()

	v := View{
		Authenticated: sess.Authenticated(c.clock.Now()),
		Loading:       c.loading.Load() > 0,
		Session:       sess,
		CSRFToken:     token.Value,
		CSRFDegraded:  token.Degraded,
		LastError:     lastErr,
	}
	if at, ok := c.sched.FireAt(); ok {
		v.RefreshAt = at
	}
	return v
}

// IsAuthenticated reports whether a live session is present.
func (c *Coordinator) IsAuthenticated() bool {
	sess, _ := c.store.Snapshot()
	return sess.Authenticated(c.clock.Now())
}

// ClearError discards the recorded last operation error.
func (c *Coordinator) ClearError() {
	c.clearLastError()
}

// SessionVersion returns the monotonic session-state version stamp. It
// advances on every local or remote session change.
func (c *Coordinator) SessionVersion() uint64 {
	return c.store.Version()
}

// CSRFToken returns the current anti-forgery token value for outbound
// requests made outside the coordinator.
func (c *Coordinator) CSRFToken() string {
	return c.csrf.Current().Value
}

// AuditTrail returns a copy of the retained audit events, oldest first.
func (c *Coordinator) AuditTrail() []AuditEvent {
	return c.trail.Snapshot()
}

// AuditDropped returns how many events the async sink delivery discarded
// under backpressure. The retained trail is unaffected.
func (c *Coordinator) AuditDropped() uint64 {
	return c.dispatcher.Dropped()
}

// ClearAuditTrail drops the retained audit events.
func (c *Coordinator) ClearAuditTrail() {
	c.trail.Clear()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (c *Coordinator) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// Metrics exposes the live recorder for exporters.
func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

// Close cancels the refresh timer, detaches from the bus, and flushes the
// audit pipeline. The coordinator rejects operations afterwards.
func (c *Coordinator) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.sched.Cancel()
		if c.sync != nil {
			err = c.sync.Close()
		}
		c.dispatcher.Close()
	})
	return err
}

func (c *Coordinator) setLastError(err error) {
	c.mu.Lock()
	c.lastError = err
	c.mu.Unlock()
}

func (c *Coordinator) clearLastError() {
	c.setLastError(nil)
}

func (c *Coordinator) beginLoading() func() {
	c.loading.Add(1)
	return func() { c.loading.Add(-1) }
}

// recordAudit stamps identity and time onto event, appends it to the
// retained trail synchronously, and hands it to the async sink pipeline.
func (c *Coordinator) recordAudit(event audit.Event) {
	if !c.cfg.Audit.Enabled {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = c.clock.Now()
	c.trail.Append(event)
	c.dispatcher.Emit(context.Background(), event)
}

// busHandlers wires remote updates into local state. Handlers run on the bus
// delivery goroutine and take only the state locks, never the op mutex, so
// a remote update can land while a local operation is in flight.
func (c *Coordinator) busHandlers() tabsync.Handlers {
	return tabsync.Handlers{
		OnSessionChanged: func(sess *session.Session, token tabsync.TokenUpdate) {
			if sess.Expired(c.clock.Now()) {
				c.applyRemoteEnd()
				return
			}
			c.store.ApplyRemote(sess)
			c.adoptRemoteToken(token)
			if !c.cfg.Refresh.Disabled {
				c.sched.Arm(sess.ExpiresAt)
			}
			c.metrics.Inc(MetricBusApplied)

			// The originating instance's session may already be stale by the
			// time its broadcast arrives. Trust is provisional until the
			// server confirms it, same as after hydration.
			go func() {
				_, _ = c.Validate(context.Background())
			}()
		},
		OnSessionEnded: func() {
			c.applyRemoteEnd()
			c.metrics.Inc(MetricBusApplied)
		},
		OnCSRFRotated: func(token tabsync.TokenUpdate) {
			c.adoptRemoteToken(token)
			c.metrics.Inc(MetricBusApplied)
		},
		OnMalformed: func(err error) {
			c.metrics.Inc(MetricBusMalformed)
			c.warnf("authcoord: dropped cross-tab message: %v", err)
		},
	}
}

// applyRemoteEnd ends the local session without touching durable storage or
// rebroadcasting: the originating instance did both. The replacement CSRF
// token arrives on the originator's rotation message rather than being
// generated here, so all instances converge on one anonymous token.
func (c *Coordinator) applyRemoteEnd() {
	c.store.ClearLocal()
	c.sched.Cancel()
}

func (c *Coordinator) adoptRemoteToken(token tabsync.TokenUpdate) {
	adopted := c.csrf.Adopt(csrf.Token{
		Value:    token.Value,
		Sequence: token.Sequence,
		Degraded: token.Degraded,
	})
	if adopted {
		c.metrics.Inc(MetricCSRFRotations)
	} else {
		c.metrics.Inc(MetricCSRFStaleRejected)
	}
}

// broadcastSessionChanged announces the current session and token to sibling
// instances. Best-effort.
func (c *Coordinator) broadcastSessionChanged(ctx context.Context, sess *session.Session) {
	if c.sync == nil {
		return
	}
	token := c.csrf.Current()
	err := c.sync.BroadcastSessionChanged(ctx, sess, tabsync.TokenUpdate{
		Value:    token.Value,
		Sequence: token.Sequence,
		Degraded: token.Degraded,
	})
	if err == nil {
		c.metrics.Inc(MetricBusPublished)
	}
}

func (c *Coordinator) broadcastSessionEnded(ctx context.Context) {
	if c.sync == nil {
		return
	}
	if err := c.sync.BroadcastSessionEnded(ctx); err == nil {
		c.metrics.Inc(MetricBusPublished)
	}
}

// broadcastCSRFRotated announces a rotation that has no session change to
// ride on, such as the post-logout regeneration.
func (c *Coordinator) broadcastCSRFRotated(ctx context.Context, token csrf.Token) {
	if c.sync == nil {
		return
	}
	err := c.sync.BroadcastCSRFRotated(ctx, tabsync.TokenUpdate{
		Value:    token.Value,
		Sequence: token.Sequence,
		Degraded: token.Degraded,
	})
	if err == nil {
		c.metrics.Inc(MetricBusPublished)
	}
}

// endSessionLocked clears every piece of local session state. Callers hold
// the op mutex.
func (c *Coordinator) endSessionLocked(ctx context.Context) {
	_ = c.store.Clear(ctx)
	c.sched.Cancel()
	token := c.csrf.Regenerate()
	c.broadcastSessionEnded(ctx)
	c.broadcastCSRFRotated(ctx, token)
}

// expireLocally ends the session when its validity window lapsed with no
// successful refresh.
func (c *Coordinator) expireLocally() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	sess, _ := c.store.Snapshot()
	if sess == nil {
		return
	}
	if !sess.Expired(c.clock.Now()) {
		return
	}
	ctx := context.Background()
	c.endSessionLocked(ctx)
	c.recordAudit(audit.Event{
		Kind:     audit.KindSessionInvalid,
		Severity: audit.SeverityInfo,
		UserID:   sess.UserID,
		Error:    "session expired",
	})
}
