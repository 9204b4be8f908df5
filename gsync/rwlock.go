// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gsync

import "sync"

// RWLock is a statically zero-initializable reader/writer lock. Fairness
// between readers and writers is undefined.
type RWLock struct {
	mu sync.RWMutex
}

// ReaderLock acquires a shared (read) lock, blocking while a writer holds
// it.
func (l *RWLock) ReaderLock() { l.mu.RLock() }

// ReaderTryLock attempts to acquire a shared lock without blocking.
func (l *RWLock) ReaderTryLock() bool { return l.mu.TryRLock() }

// ReaderUnlock releases a shared lock.
func (l *RWLock) ReaderUnlock() { l.mu.RUnlock() }

// WriterLock acquires the exclusive (write) lock.
func (l *RWLock) WriterLock() { l.mu.Lock() }

// WriterTryLock attempts to acquire the exclusive lock without blocking.
func (l *RWLock) WriterTryLock() bool { return l.mu.TryLock() }

// WriterUnlock releases the exclusive lock.
func (l *RWLock) WriterUnlock() { l.mu.Unlock() }
