package tabsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/veldtma/authcoord/bus"
	"github.com/veldtma/authcoord/session"
)

type capture struct {
	mu       sync.Mutex
	changed  []*session.Session
	tokens   []TokenUpdate
	ended    int
	rotated  []TokenUpdate
	malforms []error
}

func (c *capture) handlers() Handlers {
	return Handlers{
		OnSessionChanged: func(sess *session.Session, token TokenUpdate) {
			c.mu.Lock()
			c.changed = append(c.changed, sess)
			c.tokens = append(c.tokens, token)
			c.mu.Unlock()
		},
		OnSessionEnded: func() {
			c.mu.Lock()
			c.ended++
			c.mu.Unlock()
		},
		OnCSRFRotated: func(token TokenUpdate) {
			c.mu.Lock()
			c.rotated = append(c.rotated, token)
			c.mu.Unlock()
		},
		OnMalformed: func(err error) {
			c.mu.Lock()
			c.malforms = append(c.malforms, err)
			c.mu.Unlock()
		},
	}
}

func (c *capture) wait(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		done := cond()
		c.mu.Unlock()
		if done {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func testSession() *session.Session {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &session.Session{
		UserID:    "u-1",
		Email:     "ada@example.com",
		Method:    session.AuthMethodPassword,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func newPair(t *testing.T) (*Synchronizer, *Synchronizer, *capture) {
	t.Helper()
	hub := bus.NewHub()
	sender := New(hub.Join())
	receiver := New(hub.Join())

	rec := &capture{}
	if err := receiver.Start(rec.handlers()); err != nil {
		t.Fatalf("receiver Start failed: %v", err)
	}
	t.Cleanup(func() {
		_ = sender.Close()
		_ = receiver.Close()
	})
	return sender, receiver, rec
}

func TestSessionChangedReachesSibling(t *testing.T) {
	sender, _, rec := newPair(t)

	sess := testSession()
	token := TokenUpdate{Value: "tok", Sequence: 2}
	if err := sender.BroadcastSessionChanged(context.Background(), sess, token); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	rec.wait(t, func() bool { return len(rec.changed) == 1 })
	if rec.changed[0].UserID != "u-1" {
		t.Fatalf("received user %q", rec.changed[0].UserID)
	}
	if rec.tokens[0] != token {
		t.Fatalf("received token %+v, want %+v", rec.tokens[0], token)
	}
}

func TestSessionEndedReachesSibling(t *testing.T) {
	sender, _, rec := newPair(t)

	if err := sender.BroadcastSessionEnded(context.Background()); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}
	rec.wait(t, func() bool { return rec.ended == 1 })
}

func TestCSRFRotatedReachesSibling(t *testing.T) {
	sender, _, rec := newPair(t)

	token := TokenUpdate{Value: "fresh", Sequence: 5, Degraded: true}
	if err := sender.BroadcastCSRFRotated(context.Background(), token); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	rec.wait(t, func() bool { return len(rec.rotated) == 1 })
	if rec.rotated[0] != token {
		t.Fatalf("received %+v, want %+v", rec.rotated[0], token)
	}
}

func TestOwnMessagesAreFiltered(t *testing.T) {
	hub := bus.NewHub()
	endpoint := hub.Join()
	instance := New(endpoint)
	rec := &capture{}
	if err := instance.Start(rec.handlers()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = instance.Close() })

	// Inject this instance's own envelope as a hub sibling would deliver it.
	sibling := hub.Join()
	env, _ := json.Marshal(envelope{Type: TypeSessionEnded, Origin: instance.Origin()})
	if err := sibling.Publish(context.Background(), env); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ended != 0 {
		t.Fatal("instance handled its own message")
	}
}

func TestMalformedMessagesAreReported(t *testing.T) {
	hub := bus.NewHub()
	receiver := New(hub.Join())
	rec := &capture{}
	if err := receiver.Start(rec.handlers()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = receiver.Close() })

	sibling := hub.Join()
	cases := [][]byte{
		[]byte("{truncated"),
		mustMarshal(t, envelope{Type: "UNKNOWN_TYPE", Origin: "other"}),
		mustMarshal(t, envelope{Type: TypeSessionChanged, Origin: "other", Payload: []byte(`{"session":"nope"}`)}),
	}
	for _, payload := range cases {
		if err := sibling.Publish(context.Background(), payload); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	rec.wait(t, func() bool { return len(rec.malforms) == len(cases) })
	for _, err := range rec.malforms {
		if !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("reported error %v does not wrap ErrMalformedMessage", err)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	hub := bus.NewHub()
	s := New(hub.Join())
	if err := s.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
