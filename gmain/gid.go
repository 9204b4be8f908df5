// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import "runtime"

// goroutineID extracts the calling goroutine's numeric id by parsing its
// own stack trace header ("goroutine 123 [running]:..."). Go deliberately
// exposes no public goroutine-identity API; this is the standard
// workaround used where a "current thread" concept (context ownership,
// thread-default stacks) must be keyed on something.
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
