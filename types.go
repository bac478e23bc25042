package authcoord

import (
	"io"
	"time"

	"github.com/veldtma/authcoord/internal/audit"
	"github.com/veldtma/authcoord/session"
)

// Re-exported domain types so most callers only import the root package.
type (
	// Session is the authenticated identity and its validity window.
	Session = session.Session
	// LinkedAccount is one external-provider identity on the session's user.
	LinkedAccount = session.LinkedAccount
	// ProviderProfile is the identity payload from an external provider.
	ProviderProfile = session.ProviderProfile
	// AuthMethod records how a session was established.
	AuthMethod = session.AuthMethod

	// AuditEvent is one recorded security-relevant occurrence.
	AuditEvent = audit.Event
	// AuditSink receives emitted audit events.
	AuditSink = audit.Sink
	// NoOpAuditSink drops audit events.
	NoOpAuditSink = audit.NoOpSink
	// ChannelAuditSink delivers audit events over a buffered channel.
	ChannelAuditSink = audit.ChannelSink
	// JSONWriterAuditSink writes one JSON object per event line.
	JSONWriterAuditSink = audit.JSONWriterSink
)

// Session establishment methods.
const (
	AuthMethodPassword  = session.AuthMethodPassword
	AuthMethodFederated = session.AuthMethodFederated
)

// NewChannelAuditSink creates a sink delivering over a channel of the given
// buffer size.
func NewChannelAuditSink(buffer int) *ChannelAuditSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink creates a sink writing JSON lines to w.
func NewJSONWriterAuditSink(w io.Writer) *JSONWriterAuditSink {
	return audit.NewJSONWriterSink(w)
}

// Credentials is the password login input.
type Credentials struct {
	Email    string
	Password string
}

// RegistrationProfile is the registration input.
type RegistrationProfile struct {
	Email           string
	Password        string
	ConfirmPassword string
	GivenName       string
	FamilyName      string
	AcceptedTerms   bool
}

// View is an immutable snapshot of coordinator state for rendering. Session
// is a defensive copy; mutating it has no effect on the coordinator.
type View struct {
	Authenticated bool
	Loading       bool
	Session       *Session
	CSRFToken     string
	// CSRFDegraded reports that the current token came from the non-crypto
	// fallback generator.
	CSRFDegraded bool
	// LastError is the most recent operation error, cleared by the next
	// successful operation.
	LastError error
	// RefreshAt is the scheduled proactive-refresh deadline, zero when the
	// timer is idle.
	RefreshAt time.Time
}
