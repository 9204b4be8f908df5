// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gthread

import (
	"runtime"
	"sync/atomic"
)

// Func is the body of a created thread. Its return value becomes the
// value Join returns.
type Func func(data any) any

// Thread is a joinable handle to a goroutine pinned to its own OS thread
// for the duration of its run. The zero value is not usable; obtain one
// from Create.
//
// Mirroring GThread's refcount discipline: a successfully created Thread
// starts with two references, one held by the caller (released by Join
// or Unref) and one held by the running body itself (released when the
// body returns). Unref on the last reference simply drops the handle;
// there is no OS resource to reclaim since the underlying goroutine is
// not "ours" to kill, only to wait for.
type Thread struct {
	name      string
	stackSize uint
	joinable  bool

	refs atomic.Int32
	done chan struct{}
	ret  any
}

// Name returns the name given to Create, applied best-effort to the
// underlying OS thread.
func (t *Thread) Name() string { return t.name }

// StackSize returns the clamped stack-size hint recorded at creation.
func (t *Thread) StackSize() uint { return t.stackSize }

// Joinable reports whether Join may be called on this handle. Create
// always produces joinable threads; the field exists so a future
// CreateOptions.Joinable=false (fire-and-forget) mirrors GLib's
// distinction without an API break.
func (t *Thread) Joinable() bool { return t.joinable }

// Ref increments the reference count and returns t, for chaining.
func (t *Thread) Ref() *Thread {
	t.refs.Add(1)
	return t
}

// Unref decrements the reference count. It never blocks and never joins;
// use Join to both wait for completion and release the caller's
// reference.
func (t *Thread) Unref() {
	t.refs.Add(-1)
}

// Join blocks until the thread's body returns, then releases the
// caller's reference and returns the body's result. Join must be called
// at most once.
func (t *Thread) Join() any {
	<-t.done
	t.Unref()
	return t.ret
}

// liveThreads bounds the number of concurrently live Create-spawned
// threads when maxLiveThreads is set via SetMaxLiveThreads, so callers
// can exercise the AGAIN error path deterministically in tests without
// needing to actually exhaust OS resources.
var liveThreads atomic.Int64
var maxLiveThreads atomic.Int64 // 0 means unbounded

// SetMaxLiveThreads caps the number of simultaneously live Create-spawned
// threads; once the cap is reached, Create returns an *Error of kind
// ErrKindAgain instead of spawning. Pass 0 to remove the cap (the
// default). This exists purely to make resource-exhaustion behavior
// testable; production code should leave the default unbounded cap.
func SetMaxLiveThreads(n int) {
	maxLiveThreads.Store(int64(n))
}

// Create starts fn(data) on a goroutine locked to its own OS thread for
// its entire run, applies name to that OS thread on a best-effort basis,
// and returns a joinable handle. It returns an *Error of kind
// ErrKindAgain instead of spawning if a ceiling set via SetMaxLiveThreads
// has been reached.
func Create(name string, fn Func, data any) (*Thread, error) {
	return CreateWithOptions(name, fn, data, CreateOptions{InheritScheduling: true})
}

// CreateWithOptions is Create with explicit CreateOptions.
func CreateWithOptions(name string, fn Func, data any, opts CreateOptions) (*Thread, error) {
	if max := maxLiveThreads.Load(); max > 0 && liveThreads.Load() >= max {
		return nil, newAgainError("live thread ceiling reached")
	}

	t := &Thread{
		name:      name,
		stackSize: opts.clampedStackSize(),
		joinable:  true,
		done:      make(chan struct{}),
	}
	t.refs.Store(2)
	liveThreads.Add(1)

	ready := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer liveThreads.Add(-1)
		defer close(t.done)

		setThreadName(name)
		if opts.InheritScheduling {
			inheritScheduling()
		}
		close(ready)

		t.ret = fn(data)
		t.Unref()
	}()
	<-ready

	return t, nil
}

// Yield is a hint to the scheduler that the calling goroutine is willing
// to let others run; it wraps runtime.Gosched, the nearest analogue Go
// offers to sched_yield(2).
func Yield() {
	runtime.Gosched()
}
