package audit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestDispatcherDeliversAsync(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(sink, 16, false)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{Kind: KindLogin})
	}
	d.Close()

	if got := sink.count.Load(); got != 5 {
		t.Fatalf("delivered = %d, want 5", got)
	}
}

func TestDropIfFullNeverBlocks(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(sink, 1, true)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Emit(context.Background(), Event{Kind: KindLogout})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked with dropIfFull set")
	}

	if d.Dropped() == 0 {
		t.Fatal("no drops recorded despite a blocked sink")
	}
	close(sink.gate)
	d.Close()
}

func TestCloseDrainsQueue(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(sink, 64, false)

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{Kind: KindTokenRefresh})
	}
	d.Close()

	if got := sink.count.Load(); got != 20 {
		t.Fatalf("delivered = %d after Close, want 20", got)
	}
}

func TestCloseIsIdempotentAndStopsIntake(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(sink, 8, false)

	d.Emit(context.Background(), Event{Kind: KindLogin})
	d.Close()
	d.Close()

	// Emits after Close are discarded without panicking.
	d.Emit(context.Background(), Event{Kind: KindLogin})
	if got := sink.count.Load(); got != 1 {
		t.Fatalf("delivered = %d, want 1", got)
	}
}
