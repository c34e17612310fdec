// Package observe provides an observable value with latest-wins delivery.
//
// Subscribers receive the current value immediately on subscription, then
// every subsequent value. A subscriber that falls behind only ever sees the
// most recent value: each subscription channel has a buffer of one and a new
// value replaces an undelivered one. Publishing never blocks on a slow
// subscriber.
package observe

import (
	"context"
	"sync"
)

// Value holds a value of type T and notifies subscribers on change.
//
// Thread-safety: all methods are safe for concurrent use.
type Value[T any] struct {
	mu     sync.Mutex
	cur    T
	subs   map[chan T]struct{}
	closed bool
	done   chan struct{} // closed by Close
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		cur:  initial,
		subs: make(map[chan T]struct{}),
		done: make(chan struct{}),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Set replaces the current value and publishes it to all subscribers.
// Set on a closed Value updates the value without publishing.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = val
	v.publishLocked()
}

// Update applies fn to the current value under the lock, stores and
// publishes the result, and returns it.
//
// fn must not call back into v.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = fn(v.cur)
	v.publishLocked()
	return v.cur
}

// Subscribe returns a channel that receives the current value immediately
// and every later value. The channel is closed when ctx is done or the Value
// is closed.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		close(ch)
		return ch
	}
	ch <- v.cur
	v.subs[ch] = struct{}{}
	v.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			v.unsubscribe(ch)
		case <-v.done:
		}
	}()

	return ch
}

// Subscribers returns the number of active subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// Close closes all subscription channels. Later subscriptions receive a
// closed channel. Close is idempotent.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	close(v.done)
	for ch := range v.subs {
		delete(v.subs, ch)
		close(ch)
	}
}

func (v *Value[T]) unsubscribe(ch chan T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.subs[ch]; !ok {
		return
	}
	delete(v.subs, ch)
	close(ch)
}

// publishLocked delivers cur to every subscriber, replacing any value the
// subscriber has not received yet. Caller holds v.mu.
func (v *Value[T]) publishLocked() {
	for ch := range v.subs {
		select {
		case <-ch:
		default:
		}
		// Only publishers send, and they hold v.mu, so the buffer has room.
		ch <- v.cur
	}
}
