// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package gmain

import "syscall"

// NewSignalWatchSource is unsupported on Windows, which has no equivalent
// of POSIX asynchronous signal delivery for arbitrary signal numbers
// (§9 Open Question; §4.5 names this mechanism as UNIX-specific).
func NewSignalWatchSource(signum syscall.Signal) (*Source, error) {
	return nil, ErrSignalUnsupported
}

// SignalWatchAdd always fails on Windows; see [NewSignalWatchSource].
func SignalWatchAdd(ctx *Context, signum syscall.Signal, fn SourceFunc) (uint64, error) {
	return 0, ErrSignalUnsupported
}
