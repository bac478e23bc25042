package redisbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/veldtma/authcoord/bus"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Bus is a Redis Pub/Sub endpoint on a single well-known channel.
type Bus struct {
	redis   redis.UniversalClient
	channel string

	mu       sync.Mutex
	handlers map[int]bus.Handler
	nextID   int
	closed   bool

	pubsub *redis.PubSub
	done   chan struct{}
	wg     sync.WaitGroup
}

// New subscribes to channel and starts the delivery loop.
func New(client redis.UniversalClient, channel string) (*Bus, error) {
	if channel == "" {
		return nil, errors.New("channel name required")
	}

	b := &Bus{
		redis:    client,
		channel:  channel,
		handlers: make(map[int]bus.Handler),
		done:     make(chan struct{}),
	}

	b.pubsub = client.Subscribe(context.Background(), channel)
	// Force the subscription to be established before returning so a
	// Publish immediately after New is observable by siblings.
	if _, err := b.pubsub.Receive(context.Background()); err != nil {
		_ = b.pubsub.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	b.wg.Add(1)
	go b.run()

	return b, nil
}

func (b *Bus) run() {
	defer b.wg.Done()

	ch := b.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.dispatch([]byte(msg.Payload))
		case <-b.done:
			return
		}
	}
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

// Publish sends payload on the channel.
func (b *Bus) Publish(ctx context.Context, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return bus.ErrClosed
	}

	if err := b.redis.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
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

// Close unsubscribes from the channel and stops delivery.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.pubsub.Close()
	close(b.done)
	b.wg.Wait()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
