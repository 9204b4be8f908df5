// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package gthread

// setThreadName is a no-op on windows: SetThreadDescription requires a
// newer API surface than this module vendors, so naming stays
// best-effort-unsupported here rather than fabricating a partial binding.
func setThreadName(string) {}

// inheritScheduling is a no-op on windows for the same reason; threads
// created via CreateThread already inherit their creator's priority
// class.
func inheritScheduling() {}
