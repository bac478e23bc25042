package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Dispatcher decouples audit recording from sink delivery: Emit queues the
// event and a single goroutine forwards queued events to the sink. A nil
// Dispatcher is valid and drops everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	// mu guards intake against the queue closing underneath a send.
	mu     sync.RWMutex
	closed bool
	queue  chan Event

	dropped atomic.Uint64
	done    chan struct{}
}

// NewDispatcher starts the delivery goroutine. With dropIfFull, Emit never
// blocks and counts events discarded when the queue is full.
func NewDispatcher(sink Sink, buffer int, dropIfFull bool) *Dispatcher {
	if sink == nil {
		sink = NoOpSink{}
	}
	if buffer <= 0 {
		buffer = 1
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: dropIfFull,
		queue:      make(chan Event, buffer),
		done:       make(chan struct{}),
	}
	go d.deliver()
	return d
}

// deliver drains the queue into the sink until Close closes it.
func (d *Dispatcher) deliver() {
	defer close(d.done)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event for sink delivery. Without dropIfFull it waits for queue
// space or ctx cancellation.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, then waits until every queued event reached the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}

// Dropped returns the count of events discarded under backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
