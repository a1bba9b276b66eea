// Package timing provides timer-based call coalescing primitives.
package timing

import (
	"sync"
	"time"
)

// Debounce wraps fn so that a burst of calls collapses into a single
// invocation, made with the last call's argument once delay has elapsed
// without a newer call. The returned cancel drops any pending invocation:
// after cancel returns, fn will not fire until call is used again.
func Debounce[T any](fn func(T), delay time.Duration) (call func(T), cancel func()) {
	var (
		mu    sync.Mutex
		timer *time.Timer
		gen   uint64
	)

	call = func(arg T) {
		mu.Lock()
		defer mu.Unlock()
		gen++
		g := gen
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			mu.Lock()
			// A timer that lost the Stop race lands here with a stale
			// generation and must not fire.
			if g != gen {
				mu.Unlock()
				return
			}
			timer = nil
			mu.Unlock()
			fn(arg)
		})
	}

	cancel = func() {
		mu.Lock()
		defer mu.Unlock()
		gen++
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}

	return call, cancel
}

// Throttle wraps fn so it runs at most once per interval. The first call
// fires immediately; calls arriving inside the interval are discarded, not
// deferred.
func Throttle[T any](fn func(T), interval time.Duration) func(T) {
	var (
		mu   sync.Mutex
		last time.Time
	)

	return func(arg T) {
		mu.Lock()
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < interval {
			mu.Unlock()
			return
		}
		last = now
		mu.Unlock()
		fn(arg)
	}
}
