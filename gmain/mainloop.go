// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import "sync/atomic"

// Loop is a thin run/quit shell around a [Context] (§4.4): a refcount, a
// running flag, and the context it drives.
type Loop struct {
	refs    atomic.Int32
	running atomic.Bool
	context *Context
}

// NewLoop constructs a loop bound either to an explicitly supplied context
// (via [WithLoopContext]) or, absent one, the calling goroutine's
// thread-default context.
func NewLoop(opts ...LoopOption) *Loop {
	cfg := resolveLoopOptions(opts)
	ctx := cfg.context
	if ctx == nil {
		ctx = RefThreadDefaultContext()
	} else {
		ctx.Ref()
	}
	l := &Loop{context: ctx}
	l.refs.Store(1)
	return l
}

// Ref increments the loop's reference count.
func (l *Loop) Ref() *Loop {
	l.refs.Add(1)
	return l
}

// Unref decrements the loop's reference count, releasing its context
// reference at zero.
func (l *Loop) Unref() {
	if l.refs.Add(-1) != 0 {
		return
	}
	l.context.Unref()
}

// GetContext returns the context this loop drives.
func (l *Loop) GetContext() *Context { return l.context }

// IsRunning reports whether a goroutine is currently inside Run.
func (l *Loop) IsRunning() bool { return l.running.Load() }

// Run takes ownership of the loop's context (waiting on it if currently
// owned by another goroutine) and iterates with mayBlock=true until Quit
// is called (§4.4).
func (l *Loop) Run() {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	defer l.running.Store(false)

	for l.running.Load() {
		l.context.Iteration(true)
	}
}

// Quit clears the running flag, wakes the context, and wakes every
// goroutine queued for ownership. A woken goroutine retries acquisition
// and, while another goroutine still owns the context, queues again; it
// does not itself check the running flag.
func (l *Loop) Quit() {
	l.running.Store(false)
	l.context.Wake()

	l.context.mu.Lock()
	waiters := l.context.waiters
	l.context.waiters = nil
	l.context.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}
}
