package timing

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebounceCoalescesBurst(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var got []string
	call, _ := Debounce(func(arg string) {
		mu.Lock()
		got = append(got, arg)
		mu.Unlock()
	}, 30*time.Millisecond)

	call("first")
	call("second")
	call("third")

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"third"}, got, "only the last call's argument should be used")
}

func TestDebounceFiresAgainAfterQuiet(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	call, _ := Debounce(func(struct{}) {
		count.Add(1)
	}, 20*time.Millisecond)

	call(struct{}{})
	time.Sleep(60 * time.Millisecond)
	call(struct{}{})
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(2), count.Load())
}

func TestDebounceCancel(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	call, cancel := Debounce(func(struct{}) {
		count.Add(1)
	}, 20*time.Millisecond)

	call(struct{}{})
	call(struct{}{})
	cancel()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load(), "cancel must suppress any pending fire")

	// Cancel with nothing pending is fine.
	cancel()

	// The debouncer is still usable afterwards.
	call(struct{}{})
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}

func TestDebounceCancelRace(t *testing.T) {
	t.Parallel()

	for range 50 {
		var count atomic.Int32
		call, cancel := Debounce(func(struct{}) {
			count.Add(1)
		}, time.Millisecond)

		call(struct{}{})
		time.Sleep(time.Millisecond) // land near the timer's fire point
		cancel()
		fired := count.Load()

		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, fired, count.Load(), "fn must not fire after cancel returns")
	}
}

func TestThrottleLeadingEdge(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var got []int
	throttled := Throttle(func(arg int) {
		mu.Lock()
		got = append(got, arg)
		mu.Unlock()
	}, 50*time.Millisecond)

	throttled(1) // fires immediately
	throttled(2) // suppressed
	throttled(3) // suppressed

	mu.Lock()
	assert.Equal(t, []int{1}, got)
	mu.Unlock()

	time.Sleep(80 * time.Millisecond)
	throttled(4) // interval elapsed, fires again

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 4}, got)
}
