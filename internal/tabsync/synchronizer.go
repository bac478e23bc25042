package tabsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/veldtma/authcoord/bus"
	"github.com/veldtma/authcoord/session"
)

// Message types on the cross-tab channel.
const (
	TypeSessionChanged = "SESSION_CHANGED"
	TypeSessionEnded   = "SESSION_ENDED"
	TypeCSRFRotated    = "CSRF_TOKEN_UPDATED"
)

// ErrMalformedMessage wraps undecodable or incomplete envelopes.
var ErrMalformedMessage = errors.New("malformed cross-tab message")

// TokenUpdate carries a CSRF rotation. Sequence orders rotations so a stale
// message cannot rewind a newer token.
type TokenUpdate struct {
	Value    string `json:"value"`
	Sequence uint64 `json:"sequence"`
	Degraded bool   `json:"degraded,omitempty"`
}

type envelope struct {
	Type    string          `json:"type"`
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type sessionChangedPayload struct {
	Session json.RawMessage `json:"session"`
	CSRF    TokenUpdate     `json:"csrf"`
}

type csrfRotatedPayload struct {
	CSRF TokenUpdate `json:"csrf"`
}

// Handlers receives decoded messages from sibling tabs.
type Handlers struct {
	OnSessionChanged func(sess *session.Session, token TokenUpdate)
	OnSessionEnded   func()
	OnCSRFRotated    func(token TokenUpdate)
	// OnMalformed observes dropped messages (for metrics/warnings).
	OnMalformed func(err error)
}

// Synchronizer is one tab's endpoint on the cross-tab channel.
type Synchronizer struct {
	bus    bus.Bus
	origin string

	mu          sync.Mutex
	unsubscribe func()
	closed      bool
}

// New creates a Synchronizer with a unique origin ID for self-filtering.
func New(b bus.Bus) *Synchronizer {
	return &Synchronizer{
		bus:    b,
		origin: uuid.NewString(),
	}
}

// Origin returns the instance's origin ID.
func (s *Synchronizer) Origin() string {
	return s.origin
}

// Start registers handlers for inbound messages. Messages sent by this
// instance are ignored.
func (s *Synchronizer) Start(h Handlers) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return bus.ErrClosed
	}
	if s.unsubscribe != nil {
		return errors.New("synchronizer already started")
	}

	unsubscribe, err := s.bus.Subscribe(func(payload []byte) {
		s.receive(payload, h)
	})
	if err != nil {
		return err
	}
	s.unsubscribe = unsubscribe
	return nil
}

func (s *Synchronizer) receive(payload []byte, h Handlers) {
	malformed := func(err error) {
		if h.OnMalformed != nil {
			h.OnMalformed(fmt.Errorf("%w: %v", ErrMalformedMessage, err))
		}
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		malformed(err)
		return
	}
	if env.Origin == s.origin {
		return
	}

	switch env.Type {
	case TypeSessionChanged:
		var decoded sessionChangedPayload
		if err := json.Unmarshal(env.Payload, &decoded); err != nil {
			malformed(err)
			return
		}
		sess, err := session.Decode(decoded.Session)
		if err != nil {
			malformed(err)
			return
		}
		if h.OnSessionChanged != nil {
			h.OnSessionChanged(sess, decoded.CSRF)
		}
	case TypeSessionEnded:
		if h.OnSessionEnded != nil {
			h.OnSessionEnded()
		}
	case TypeCSRFRotated:
		var decoded csrfRotatedPayload
		if err := json.Unmarshal(env.Payload, &decoded); err != nil {
			malformed(err)
			return
		}
		if h.OnCSRFRotated != nil {
			h.OnCSRFRotated(decoded.CSRF)
		}
	default:
		malformed(fmt.Errorf("unknown type %q", env.Type))
	}
}

// BroadcastSessionChanged announces a new or refreshed session together with
// the CSRF token it travels with. Best-effort: the returned error is for
// accounting only and must not fail the originating operation.
func (s *Synchronizer) BroadcastSessionChanged(ctx context.Context, sess *session.Session, token TokenUpdate) error {
	encoded, err := session.Encode(sess)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(sessionChangedPayload{Session: encoded, CSRF: token})
	if err != nil {
		return err
	}
	return s.publish(ctx, TypeSessionChanged, raw)
}

// BroadcastSessionEnded announces a logout. Any session-ended wins over a
// stale session-changed on the receiving side.
func (s *Synchronizer) BroadcastSessionEnded(ctx context.Context) error {
	return s.publish(ctx, TypeSessionEnded, nil)
}

// BroadcastCSRFRotated announces a rotation with no session change to carry
// it, such as the regeneration after logout. Rotations caused by login or
// refresh travel inside the session-changed message instead.
func (s *Synchronizer) BroadcastCSRFRotated(ctx context.Context, token TokenUpdate) error {
	raw, err := json.Marshal(csrfRotatedPayload{CSRF: token})
	if err != nil {
		return err
	}
	return s.publish(ctx, TypeCSRFRotated, raw)
}

func (s *Synchronizer) publish(ctx context.Context, msgType string, payload json.RawMessage) error {
	data, err := json.Marshal(envelope{
		Type:    msgType,
		Origin:  s.origin,
		Payload: payload,
	})
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, data)
}

// Close unregisters the listener and releases the bus endpoint.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return s.bus.Close()
}
