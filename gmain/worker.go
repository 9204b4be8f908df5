// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import "sync"

var (
	workerOnce sync.Once
	workerCtx  *Context
	workerLoop *Loop
)

// workerContext returns the singleton worker context (§4.5): a dedicated
// background goroutine that iterates forever, used to host child-watch
// dispatch so that it does not depend on any particular user-created
// context being pumped. Signal-watch sources are attached to the caller's
// context instead (see [SignalWatchAdd]).
func workerContext() *Context {
	workerOnce.Do(func() {
		workerCtx = NewContext()
		workerLoop = NewLoop(WithLoopContext(workerCtx))
		go workerLoop.Run()
	})
	return workerCtx
}
