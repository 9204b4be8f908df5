// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gthread

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// setThreadName applies name to the calling OS thread via prctl(2)
// PR_SET_NAME, truncated to 15 bytes plus NUL (the kernel's limit).
// Failures are ignored: this is advisory, exactly as in GLib.
func setThreadName(name string) {
	if name == "" {
		return
	}
	if len(name) > 15 {
		name = name[:15]
	}
	buf := make([]byte, len(name)+1)
	copy(buf, name)
	_ = unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}

// inheritScheduling copies the calling thread's niceness onto itself.
// Given clone(2) semantics the new OS thread already inherits it, so
// this is a deliberate no-op check: it exists to surface the failure
// mode (an EPERM from Setpriority) rather than assume success silently.
func inheritScheduling() {
	tid := unix.Gettid()
	if prio, err := unix.Getpriority(unix.PRIO_PROCESS, 0); err == nil {
		// Getpriority returns 20-prio; Setpriority wants prio directly.
		_ = unix.Setpriority(unix.PRIO_PROCESS, tid, 20-prio)
	}
}
