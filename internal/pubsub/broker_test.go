package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBrokerSubscribe(t *testing.T) {
	t.Parallel()

	t.Run("with cancellable context", func(t *testing.T) {
		t.Parallel()
		broker := NewBroker[string]()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch := broker.Subscribe(ctx)
		assert.NotNil(t, ch)
		assert.Equal(t, 1, broker.SubscriberCount())

		cancel()
		time.Sleep(10 * time.Millisecond) // give the cleanup goroutine time to run
		assert.Equal(t, 0, broker.SubscriberCount())
	})

	t.Run("with background context", func(t *testing.T) {
		t.Parallel()
		broker := NewBroker[string]()

		ch := broker.Subscribe(context.Background())
		assert.NotNil(t, ch)
		assert.Equal(t, 1, broker.SubscriberCount())

		broker.Shutdown()
		assert.Equal(t, 0, broker.SubscriberCount())
	})
}

func TestBrokerPublish(t *testing.T) {
	t.Parallel()
	broker := NewBroker[string]()
	ch := broker.Subscribe(t.Context())

	broker.Publish(EventTypeCreated, "ghost text ready")

	select {
	case event := <-ch:
		assert.Equal(t, EventTypeCreated, event.Type)
		assert.Equal(t, "ghost text ready", event.Payload)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestBrokerShutdown(t *testing.T) {
	t.Parallel()
	broker := NewBroker[string]()

	ch1 := broker.Subscribe(context.Background())
	ch2 := broker.Subscribe(context.Background())
	assert.Equal(t, 2, broker.SubscriberCount())

	broker.Shutdown()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	assert.False(t, ok1, "channel 1 should be closed")
	assert.False(t, ok2, "channel 2 should be closed")
	assert.Equal(t, 0, broker.SubscriberCount())

	// Shutting down twice is harmless.
	broker.Shutdown()
}

func TestBrokerConcurrency(t *testing.T) {
	t.Parallel()
	broker := NewBroker[int]()

	const numSubscribers = 100
	var wg sync.WaitGroup
	wg.Add(numSubscribers)

	received := make(chan int, numSubscribers)

	for i := range numSubscribers {
		go func(id int) {
			defer wg.Done()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ch := broker.Subscribe(ctx)
			select {
			case event := <-ch:
				received <- event.Payload
			case <-time.After(1 * time.Second):
				t.Errorf("timeout waiting for event %d", id)
			}
		}(i)
	}

	time.Sleep(10 * time.Millisecond)

	for i := range numSubscribers {
		broker.Publish(EventTypeCreated, i)
	}

	wg.Wait()
	close(received)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, broker.SubscriberCount())

	count := 0
	for range received {
		count++
	}
	assert.Equal(t, numSubscribers, count)
}

func TestBrokerShutdownDuringSlowSend(t *testing.T) {
	t.Parallel()
	broker := NewBroker[string]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	for range subscriberBufferSize {
		broker.Publish(EventTypeCreated, "fill")
	}
	// The buffer is full, so this delivery parks in a grace goroutine.
	// Shutting down while it waits must not panic with a send on the
	// closed channel.
	broker.Publish(EventTypeCreated, "overflow")

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()

	broker.Shutdown()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber channel never closed")
	}
}
