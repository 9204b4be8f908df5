// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gthread

// minStackSize is the floor below which a requested stack-size hint is
// silently clamped upward, matching glibc's PTHREAD_STACK_MIN on most
// targets closely enough for a hint that Go's runtime ignores anyway.
const minStackSize = 16 * 1024

// CreateOptions configures Create. The zero value creates a joinable
// thread with no stack-size hint and best-effort scheduler inheritance.
type CreateOptions struct {
	// StackSize is an advisory stack size in bytes. Values below
	// minStackSize are clamped up to it; Go's goroutine stacks grow
	// dynamically regardless, so this only affects what Create reports
	// back via Thread.StackSize.
	StackSize uint

	// InheritScheduling, if true (the default when using Create), makes
	// a best effort to copy the calling OS thread's scheduling policy
	// and priority onto the new one. Failure is silent: scheduler
	// inheritance is advisory everywhere GLib supports it too.
	InheritScheduling bool
}

func (o CreateOptions) clampedStackSize() uint {
	if o.StackSize < minStackSize {
		return minStackSize
	}
	return o.StackSize
}
