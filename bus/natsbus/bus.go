package natsbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/veldtma/authcoord/bus"
)

// ErrNATSUnavailable wraps transport-level NATS failures.
var ErrNATSUnavailable = errors.New("nats unavailable")

// Bus is a NATS endpoint on a single subject. The connection is owned by the
// caller; Close drops the subscription but leaves the connection open.
type Bus struct {
	conn    *nats.Conn
	subject string

	mu       sync.Mutex
	handlers map[int]bus.Handler
	nextID   int
	closed   bool

	sub *nats.Subscription
}

// New subscribes to subject on conn.
func New(conn *nats.Conn, subject string) (*Bus, error) {
	if subject == "" {
		return nil, errors.New("subject required")
	}

	b := &Bus{
		conn:     conn,
		subject:  subject,
		handlers: make(map[int]bus.Handler),
	}

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		b.dispatch(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNATSUnavailable, err)
	}
	b.sub = sub

	return b, nil
}

func (b *Bus) dispatch(payload []byte) {
	b.mu.Lock()
	handlers := make([]bus.Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

// Publish sends payload on the subject.
func (b *Bus) Publish(_ context.Context, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return bus.ErrClosed
	}

	if err := b.conn.Publish(b.subject, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrNATSUnavailable, err)
	}
	return nil
}

// Subscribe registers a handler and returns its unsubscribe function.
func (b *Bus) Subscribe(h bus.Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, bus.ErrClosed
	}

	id := b.nextID
	b.nextID++
	b.handlers[id] = h

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}

// Close drops the subject subscription.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if err := b.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("%w: %v", ErrNATSUnavailable, err)
	}
	return nil
}
