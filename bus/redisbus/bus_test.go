package redisbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestPair(t *testing.T) (*Bus, *Bus) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	a, err := New(client, "authcoord:sync")
	if err != nil {
		t.Fatalf("New a: %v", err)
	}
	b, err := New(client, "authcoord:sync")
	if err != nil {
		t.Fatalf("New b: %v", err)
	}
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func TestPublishReachesOtherSubscriber(t *testing.T) {
	a, b := newTestPair(t)

	received := make(chan []byte, 1)
	if _, err := b.Subscribe(func(payload []byte) {
		select {
		case received <- payload:
		default:
		}
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := a.Publish(context.Background(), []byte("session-changed")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != "session-changed" {
			t.Fatalf("payload = %q", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestAllSubscribersOnOneBusReceive(t *testing.T) {
	a, b := newTestPair(t)

	var (
		mu    sync.Mutex
		count int
	)
	for i := 0; i < 3; i++ {
		if _, err := b.Subscribe(func([]byte) {
			mu.Lock()
			count++
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	if err := a.Publish(context.Background(), []byte("m")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := count == 3
		mu.Unlock()
		if done {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("count = %d, want 3", count)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	a, b := newTestPair(t)

	received := make(chan struct{}, 8)
	unsubscribe, err := b.Subscribe(func([]byte) { received <- struct{}{} })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	unsubscribe()

	if err := a.Publish(context.Background(), []byte("m")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-received:
		t.Fatal("message delivered after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a, _ := newTestPair(t)
	if err := a.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
