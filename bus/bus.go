package bus

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("message bus closed")

// Handler receives one raw message payload. Handlers run on the bus delivery
// goroutine and must not block for long.
type Handler func(payload []byte)

// Bus is one endpoint on the cross-tab channel. Publish sends to sibling
// endpoints; whether the sender receives its own messages is
// implementation-defined, so subscribers must filter by origin themselves.
type Bus interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe registers a handler and returns its unsubscribe function.
	Subscribe(h Handler) (func(), error)
	Close() error
}

const endpointBuffer = 64

// Hub links in-process endpoints. Every message published on one endpoint is
// delivered, in publish order, to every other endpoint joined to the hub.
type Hub struct {
	mu        sync.Mutex
	endpoints map[*Endpoint]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{endpoints: make(map[*Endpoint]struct{})}
}

// Join attaches a new endpoint to the hub.
func (h *Hub) Join() *Endpoint {
	e := &Endpoint{
		hub:      h,
		inbox:    make(chan []byte, endpointBuffer),
		done:     make(chan struct{}),
		handlers: make(map[int]Handler),
	}

	h.mu.Lock()
	h.endpoints[e] = struct{}{}
	h.mu.Unlock()

	e.wg.Add(1)
	go e.pump()

	return e
}

func (h *Hub) broadcast(from *Endpoint, payload []byte) {
	h.mu.Lock()
	targets := make([]*Endpoint, 0, len(h.endpoints))
	for e := range h.endpoints {
		if e != from {
			targets = append(targets, e)
		}
	}
	h.mu.Unlock()

	for _, e := range targets {
		e.deliver(payload)
	}
}

func (h *Hub) leave(e *Endpoint) {
	h.mu.Lock()
	delete(h.endpoints, e)
	h.mu.Unlock()
}

// Endpoint is a single hub attachment implementing Bus. Delivery to an
// endpoint is sequential; a full inbox drops the message (best-effort
// contract).
type Endpoint struct {
	hub   *Hub
	inbox chan []byte
	done  chan struct{}
	wg    sync.WaitGroup

	mu        sync.Mutex
	handlers  map[int]Handler
	nextID    int
	closed    bool
	closeOnce sync.Once
}

func (e *Endpoint) pump() {
	defer e.wg.Done()

	for {
		select {
		case payload := <-e.inbox:
			e.dispatch(payload)
		case <-e.done:
			return
		}
	}
}

func (e *Endpoint) dispatch(payload []byte) {
	e.mu.Lock()
	handlers := make([]Handler, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

func (e *Endpoint) deliver(payload []byte) {
	select {
	case e.inbox <- payload:
	case <-e.done:
	default:
	}
}

// Publish sends payload to every sibling endpoint on the hub.
func (e *Endpoint) Publish(_ context.Context, payload []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}

	copied := make([]byte, len(payload))
	copy(copied, payload)
	e.hub.broadcast(e, copied)
	return nil
}

// Subscribe registers a handler for messages from sibling endpoints.
func (e *Endpoint) Subscribe(h Handler) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	id := e.nextID
	e.nextID++
	e.handlers[id] = h

	return func() {
		e.mu.Lock()
		delete(e.handlers, id)
		e.mu.Unlock()
	}, nil
}

// Close detaches the endpoint from the hub and stops delivery.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		e.hub.leave(e)
		close(e.done)
		e.wg.Wait()
	})
	return nil
}
