// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package gthread provides a thin thread-creation/join wrapper modeled on
// GLib's GThread: a joinable handle around a goroutine pinned to its own
// OS thread, with best-effort name application and scheduler-inheritance,
// and a stack-size hint that is accepted but silently clamped (the Go
// runtime manages its own growable stacks and has no per-goroutine fixed
// stack knob).
//
// Unlike pthreads, goroutine creation essentially never fails; Create
// nonetheless returns an error of kind AGAIN when an optional configured
// ceiling on live gthread-created goroutines is exceeded, mirroring the
// specification's resource-exhaustion contract for callers that want to
// simulate or bound it.
package gthread
