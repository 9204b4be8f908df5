// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gsync

import (
	"sync"
	"sync/atomic"
)

// Mutex is a statically zero-initializable mutual-exclusion lock. Double
// locking by the same goroutine is undefined and not guaranteed to be
// recursive; use [RecMutex] when that is needed.
type Mutex struct {
	p atomic.Pointer[sync.Mutex]
}

func (m *Mutex) handle() *sync.Mutex {
	if p := m.p.Load(); p != nil {
		return p
	}
	fresh := &sync.Mutex{}
	if m.p.CompareAndSwap(nil, fresh) {
		return fresh
	}
	// A concurrent first-user won the race; its handle wins and our
	// candidate is simply discarded to the garbage collector.
	return m.p.Load()
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() { m.handle().Lock() }

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool { return m.handle().TryLock() }

// Unlock releases the mutex.
func (m *Mutex) Unlock() { m.handle().Unlock() }
