// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncqueue

import (
	"sync"
	"sync/atomic"
	"time"
)

// Queue is a reference-counted FIFO of opaque items (§4.8 "Async
// queue"). The zero value is not usable; construct one with New or
// NewFull.
type Queue struct {
	refs atomic.Int32

	mu      sync.Mutex
	cond    *sync.Cond
	items   []any
	waiting int

	destroy func(item any)
}

// New constructs a queue with one reference and no destroy notifier.
func New() *Queue {
	return NewFull(nil)
}

// NewFull constructs a queue with one reference, running destroy over
// every item still present when the last reference is dropped.
func NewFull(destroy func(item any)) *Queue {
	q := &Queue{destroy: destroy}
	q.cond = sync.NewCond(&q.mu)
	q.refs.Store(1)
	return q
}

// Ref increments the reference count and returns q, for chaining.
func (q *Queue) Ref() *Queue {
	q.refs.Add(1)
	return q
}

// Unref decrements the reference count. On the last reference it runs
// the destroy notifier (if any) over every item still queued.
func (q *Queue) Unref() {
	if q.refs.Add(-1) != 0 {
		return
	}
	q.mu.Lock()
	items := q.items
	q.items = nil
	destroy := q.destroy
	q.mu.Unlock()
	if destroy != nil {
		for _, it := range items {
			destroy(it)
		}
	}
}

// Lock acquires the queue's internal mutex for use with the _unlocked
// methods.
func (q *Queue) Lock() { q.mu.Lock() }

// Unlock releases the queue's internal mutex.
func (q *Queue) Unlock() { q.mu.Unlock() }

// Push appends item to the tail of the queue, waking one blocked popper
// if any are waiting.
func (q *Queue) Push(item any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.PushUnlocked(item)
}

// PushUnlocked is Push for a caller already holding the lock.
func (q *Queue) PushUnlocked(item any) {
	q.items = append(q.items, item)
	if q.waiting > 0 {
		q.cond.Signal()
	}
}

// PushFront prepends item to the head of the queue (it will be the next
// item popped), waking one blocked popper if any are waiting.
func (q *Queue) PushFront(item any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.PushFrontUnlocked(item)
}

// PushFrontUnlocked is PushFront for a caller already holding the lock.
func (q *Queue) PushFrontUnlocked(item any) {
	q.items = append(q.items, nil)
	copy(q.items[1:], q.items)
	q.items[0] = item
	if q.waiting > 0 {
		q.cond.Signal()
	}
}

// PushSorted inserts item at the position cmp indicates, keeping the
// queue ordered head-to-tail by cmp (ascending: cmp(a, b) < 0 means a
// sorts before b). The item that would be popped first (Pop returns
// from the head) is the one cmp ranks lowest.
func (q *Queue) PushSorted(item any, cmp func(a, b any) int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.PushSortedUnlocked(item, cmp)
}

// PushSortedUnlocked is PushSorted for a caller already holding the
// lock.
func (q *Queue) PushSortedUnlocked(item any, cmp func(a, b any) int) {
	i := 0
	for i < len(q.items) && cmp(q.items[i], item) <= 0 {
		i++
	}
	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = item
	if q.waiting > 0 {
		q.cond.Signal()
	}
}

// Pop blocks until an item is available, then removes and returns the
// item at the head of the queue.
func (q *Queue) Pop() any {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.PopUnlocked()
}

// PopUnlocked is Pop for a caller already holding the lock.
func (q *Queue) PopUnlocked() any {
	q.waiting++
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	q.waiting--
	return q.takeHeadLocked()
}

// TryPop removes and returns the head item without blocking; ok is
// false if the queue was empty.
func (q *Queue) TryPop() (item any, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.TryPopUnlocked()
}

// TryPopUnlocked is TryPop for a caller already holding the lock.
func (q *Queue) TryPopUnlocked() (item any, ok bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.takeHeadLocked(), true
}

// TimeoutPop blocks until an item is available or timeout elapses,
// whichever comes first; ok is false on timeout.
func (q *Queue) TimeoutPop(timeout time.Duration) (item any, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.TimeoutPopUnlocked(timeout)
}

// TimeoutPopUnlocked is TimeoutPop for a caller already holding the
// lock.
//
// sync.Cond has no native deadline wait, so the deadline is enforced by
// a timer goroutine that sets a timed-out flag and broadcasts once it
// fires; spurious early wake-ups are handled by re-checking both the queue
// and that flag.
func (q *Queue) TimeoutPopUnlocked(timeout time.Duration) (item any, ok bool) {
	deadline := time.Now().Add(timeout)
	timedOut := false
	timer := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		timedOut = true
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	q.waiting++
	for len(q.items) == 0 && !timedOut {
		q.cond.Wait()
	}
	q.waiting--

	if len(q.items) == 0 {
		return nil, false
	}
	_ = deadline
	return q.takeHeadLocked(), true
}

func (q *Queue) takeHeadLocked() any {
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return item
}

// Length returns the number of queued items minus the number of
// goroutines currently blocked in Pop/TimeoutPop; it may be negative
// when waiters outnumber items, by design (§4.8, "length_unlocked sign
// behavior").
func (q *Queue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.LengthUnlocked()
}

// LengthUnlocked is Length for a caller already holding the lock.
func (q *Queue) LengthUnlocked() int {
	return len(q.items) - q.waiting
}

// Sort reorders the queue's items using cmp, which ranks items the same
// way as PushSorted (ascending, head pops first).
func (q *Queue) Sort(cmp func(a, b any) int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.SortUnlocked(cmp)
}

// SortUnlocked is Sort for a caller already holding the lock.
func (q *Queue) SortUnlocked(cmp func(a, b any) int) {
	insertionSort(q.items, cmp)
}

func insertionSort(items []any, cmp func(a, b any) int) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && cmp(items[j-1], items[j]) > 0; j-- {
			items[j-1], items[j] = items[j], items[j-1]
		}
	}
}

// Remove deletes the first item equal to target (per the equal
// function) from the queue, reporting whether one was found.
func (q *Queue) Remove(target any, equal func(a, b any) bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.RemoveUnlocked(target, equal)
}

// RemoveUnlocked is Remove for a caller already holding the lock.
func (q *Queue) RemoveUnlocked(target any, equal func(a, b any) bool) bool {
	for i, it := range q.items {
		if equal(it, target) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// ForEach calls fn for every queued item, head to tail, without
// removing any of them. fn must not call back into q.
func (q *Queue) ForEach(fn func(item any)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ForEachUnlocked(fn)
}

// ForEachUnlocked is ForEach for a caller already holding the lock.
func (q *Queue) ForEachUnlocked(fn func(item any)) {
	for _, it := range q.items {
		fn(it)
	}
}
