// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gsync

import (
	"runtime"
	"sync"
)

// RecMutex is a recursive mutual-exclusion lock: the owning goroutine may
// lock it repeatedly without deadlocking itself, and must unlock it the
// same number of times (§4.6 "n-lock requires n-unlock"). Identity is
// tracked via the calling goroutine's stack-trace id, the same technique
// [gmain.Context] uses for ownership, since Go exposes no public
// goroutine-id API.
type RecMutex struct {
	mu    sync.Mutex
	cond  *sync.Cond
	owner uint64
	depth int
}

func (m *RecMutex) init() {
	if m.cond == nil {
		m.cond = sync.NewCond(&m.mu)
	}
}

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// Lock acquires the lock, blocking only if another goroutine currently
// holds it.
func (m *RecMutex) Lock() {
	gid := goroutineID()
	m.mu.Lock()
	m.init()
	for m.depth > 0 && m.owner != gid {
		m.cond.Wait()
	}
	m.owner = gid
	m.depth++
	m.mu.Unlock()
}

// TryLock attempts to acquire the lock without blocking.
func (m *RecMutex) TryLock() bool {
	gid := goroutineID()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	if m.depth > 0 && m.owner != gid {
		return false
	}
	m.owner = gid
	m.depth++
	return true
}

// Unlock releases one level of recursion; only the owning goroutine may
// call it, and only as many times as it called Lock/TryLock successfully.
func (m *RecMutex) Unlock() {
	m.mu.Lock()
	m.depth--
	if m.depth == 0 {
		m.owner = 0
		m.cond.Signal()
	}
	m.mu.Unlock()
}
