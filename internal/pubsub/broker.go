package pubsub

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	subscriberBufferSize = 64
	slowSubscriberGrace  = 2 * time.Second
)

// Broker fans events out to any number of context-scoped subscribers.
type Broker[T any] struct {
	subs   map[chan Event[T]]context.CancelFunc
	mu     sync.RWMutex
	closed bool
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan Event[T]]context.CancelFunc),
	}
}

// Subscribe returns a channel of events that is closed when ctx is
// cancelled or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Event[T], subscriberBufferSize)
	b.subs[ch] = cancel

	go func() {
		<-subCtx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			close(ch)
			delete(b.subs, ch)
		}
	}()

	return ch
}

func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("publish on closed broker", "event", eventType)
		return
	}

	event := Event[T]{Type: eventType, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Subscriber is behind; retry off the publisher's goroutine so a
			// slow consumer cannot stall everyone else. The read lock is held
			// across the send so Shutdown cannot close ch mid-send.
			go func(ch chan Event[T]) {
				b.mu.RLock()
				defer b.mu.RUnlock()
				if b.closed {
					return
				}
				select {
				case ch <- event:
				case <-time.After(slowSubscriberGrace):
					slog.Warn("dropped event for slow subscriber", "event", event.Type)
				}
			}(ch)
		}
	}
}

// Shutdown closes every subscriber channel and rejects further use.
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch, cancel := range b.subs {
		cancel()
		close(ch)
		delete(b.subs, ch)
	}
}

func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
