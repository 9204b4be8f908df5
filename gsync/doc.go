// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package gsync provides the bounded concurrency primitives a main-loop
// consumer relies on: [Mutex], [RecMutex], [RWLock], [Cond], [Once], and
// [ThreadLocal]. The zero values of Mutex, RecMutex, RWLock, Cond and Once
// are ready to use, so such a handle embedded in a larger struct needs no
// constructor call; Mutex allocates its underlying sync.Mutex lazily, with a
// CAS, on first use. A ThreadLocal's zero value is not usable: construct it
// with [NewThreadLocal].
package gsync
