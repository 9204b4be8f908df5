// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gsync

import "sync/atomic"

// Once is a statically zero-initializable one-time-initialization guard
// (§4.6 "One-time init"). Enter returns true for exactly the goroutine
// that should run the initializer; every other caller blocks until Leave
// publishes the result, then observes it directly.
type Once struct {
	state atomic.Uint32 // 0 = untouched, 1 = in-progress, 2 = ready
	value atomic.Pointer[any]
	mu    mutexOnce
}

const (
	onceUntouched = iota
	onceInProgress
	onceReady
)

// mutexOnce is a thin alias for this package's own lazily initialized
// Mutex, kept private to this file.
type mutexOnce = Mutex

// Enter returns true for the single caller responsible for performing
// initialization; all concurrent callers return false only after Leave has
// been called by the winner, so they may safely assume the value is ready.
func (o *Once) Enter() (enter bool) {
	if o.state.CompareAndSwap(onceUntouched, onceInProgress) {
		o.mu.Lock()
		return true
	}
	for o.state.Load() != onceReady {
		o.mu.Lock()
		o.mu.Unlock()
	}
	return false
}

// Leave publishes value with release semantics and unblocks every
// goroutine parked in Enter.
func (o *Once) Leave(value any) {
	o.value.Store(&value)
	o.state.Store(onceReady)
	o.mu.Unlock()
}

// Value returns the published value and whether initialization has
// completed; fast-path callers may use this to skip calling Enter/Leave
// entirely once it returns true.
func (o *Once) Value() (any, bool) {
	if o.state.Load() != onceReady {
		return nil, false
	}
	if v := o.value.Load(); v != nil {
		return *v, true
	}
	return nil, true
}
