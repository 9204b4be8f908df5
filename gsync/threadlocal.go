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

// ThreadLocal is a goroutine-local slot with an optional destroy notify.
// Values never copy across goroutines. The slot itself is one-way
// allocated — it has no Destroy method; only individual values can be
// replaced or cleared.
type ThreadLocal struct {
	destroy func(value any)

	mu     sync.Mutex
	values map[uint64]any
}

// NewThreadLocal constructs a slot whose values, when replaced via Replace,
// are passed to destroy (if non-nil). Values overwritten by Set, and values
// still stored when their goroutine exits, are not passed to destroy.
func NewThreadLocal(destroy func(value any)) *ThreadLocal {
	return &ThreadLocal{destroy: destroy, values: make(map[uint64]any)}
}

func gid() uint64 {
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

// Get returns the calling goroutine's current value, or nil if unset.
func (t *ThreadLocal) Get() any {
	id := gid()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[id]
}

// Set stores value for the calling goroutine without running the destroy
// notify on any previous value (use Replace for that).
func (t *ThreadLocal) Set(value any) {
	id := gid()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[id] = value
}

// Replace stores value for the calling goroutine, running the destroy
// notify (if any) on whatever value it is replacing.
func (t *ThreadLocal) Replace(value any) {
	id := gid()
	t.mu.Lock()
	old, had := t.values[id]
	t.values[id] = value
	t.mu.Unlock()
	if had && t.destroy != nil {
		t.destroy(old)
	}
}
