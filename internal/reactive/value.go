// Package reactive provides the observable cell that views bind to.
// A Value notifies its subscribers synchronously, in registration order,
// before the outermost Set returns.
package reactive

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Readable is the read side of a Value. Views only ever need this.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func(T)) (unsubscribe func())
}

type subscriber[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// delivery is one committed write and the subscribers registered at the time.
type delivery[T any] struct {
	value T
	subs  []*subscriber[T]
}

// Value is a single mutable cell with change notification.
//
// Writes are committed under writeMu and queued for delivery in commit
// order. Only one call drains the queue at a time, and no lock is held while
// a callback runs. A callback may therefore call Get, Subscribe, an
// unsubscribe func, or Set on any Value, including the one notifying it. A
// write made from a callback is delivered after the current delivery
// finishes, so a callback receives the value of its write while Get may
// already return a newer one. Equal writes are dropped, which ends a
// two-way binding after one round.
type Value[T comparable] struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	value   T
	subs    []*subscriber[T]

	queueMu    sync.Mutex
	pending    []delivery[T]
	delivering bool
}

// NewValue creates a cell holding initial.
func NewValue[T comparable](initial T) *Value[T] {
	return &Value[T]{value: initial}
}

// Get returns the stored value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set replaces the stored value. Subscribers are only notified when the
// value actually changed; the return value reports whether it did.
func (v *Value[T]) Set(next T) bool {
	v.writeMu.Lock()
	changed := v.commit(next)
	v.writeMu.Unlock()

	if changed {
		v.deliver()
	}
	return changed
}

// Update replaces the stored value with fn(current). The read and the write
// happen as one step with respect to other writers. fn must not write to v.
func (v *Value[T]) Update(fn func(T) T) bool {
	v.writeMu.Lock()
	changed := v.commit(fn(v.Get()))
	v.writeMu.Unlock()

	if changed {
		v.deliver()
	}
	return changed
}

// commit stores next and queues its delivery. Callers hold writeMu.
func (v *Value[T]) commit(next T) bool {
	v.mu.Lock()
	if v.value == next {
		v.mu.Unlock()
		return false
	}
	v.value = next
	snapshot := make([]*subscriber[T], len(v.subs))
	copy(snapshot, v.subs)
	v.mu.Unlock()

	v.queueMu.Lock()
	v.pending = append(v.pending, delivery[T]{value: next, subs: snapshot})
	v.queueMu.Unlock()
	return true
}

// deliver drains the queue unless a call further up the stack, or on
// another goroutine, is already draining it.
func (v *Value[T]) deliver() {
	v.queueMu.Lock()
	if v.delivering {
		v.queueMu.Unlock()
		return
	}
	v.delivering = true
	defer func() {
		// A panicking callback leaves the queue unlocked; reset it so later
		// writes are still delivered.
		if r := recover(); r != nil {
			v.queueMu.Lock()
			v.pending = nil
			v.delivering = false
			v.queueMu.Unlock()
			panic(r)
		}
	}()

	for len(v.pending) > 0 {
		d := v.pending[0]
		v.pending[0] = delivery[T]{}
		v.pending = v.pending[1:]
		v.queueMu.Unlock()

		for _, s := range d.subs {
			// Unsubscribed after the snapshot was taken.
			if !s.active.Load() {
				continue
			}
			s.fn(d.value)
		}

		v.queueMu.Lock()
	}
	v.pending = nil
	v.delivering = false
	v.queueMu.Unlock()
}

// Subscribe registers fn to be called with the new value after every
// change. The returned func removes it and is safe to call more than once.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	s := &subscriber[T]{fn: fn}
	s.active.Store(true)

	v.mu.Lock()
	v.subs = append(v.subs, s)
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.active.Store(false)
			v.remove(s)
		})
	}
}

func (v *Value[T]) remove(target *subscriber[T]) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, s := range v.subs {
		if s == target {
			v.subs = slices.Delete(v.subs, i, i+1)
			return
		}
	}
}

// Len returns the number of registered subscribers.
func (v *Value[T]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subs)
}
