// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package gmain

import (
	"os"
	"sync"
	"sync/atomic"
)

// NewChildWatchSource on Windows has no SIGCHLD/waitpid equivalent; per
// §4.5's "systems with process-handle waits, the source itself owns a
// pollfd for the process handle", exit notification would ideally ride
// the process handle through [defaultPollFunc]'s WaitForMultipleObjects
// loop. os.Process exposes no handle for that without cgo, so this
// fallback parks one goroutine per watch on os.Process.Wait and surfaces
// the result through the regular prepare/check readiness path.
func NewChildWatchSource(pid int) *Source {
	proc, err := os.FindProcess(pid)

	var (
		mu     sync.Mutex
		result childWatchResult
	)
	var ready atomic.Bool

	s := NewSource(&SourceFuncs{
		Prepare: func(*Source) (bool, int) { return ready.Load(), -1 },
		Check:   func(*Source) bool { return ready.Load() },
		Dispatch: func(s *Source, cb SourceFunc, userdata any) bool {
			mu.Lock()
			r := result
			mu.Unlock()
			if cb != nil {
				cb(r)
			}
			return false
		},
	})

	if err != nil {
		mu.Lock()
		result = childWatchResult{pid: pid, status: -1}
		mu.Unlock()
		ready.Store(true)
		return s
	}

	go func() {
		state, waitErr := proc.Wait()
		status := -1
		if waitErr == nil && state != nil {
			status = state.ExitCode()
		}
		mu.Lock()
		result = childWatchResult{pid: pid, status: status}
		mu.Unlock()
		ready.Store(true)
		workerContext().Wake()
	}()

	return s
}

type childWatchResult struct {
	pid      int
	status   int
	userdata any
}

// ChildWatchAdd attaches a child-watch source for pid to the worker
// context and returns its id; fn receives a [ChildWatchResult].
func ChildWatchAdd(pid int, fn func(ChildWatchResult)) uint64 {
	return ChildWatchAddFull(PriorityDefault, pid, fn)
}

// ChildWatchResult reports a reaped child process's id and exit status.
type ChildWatchResult struct {
	PID    int
	Status int
}

// ChildWatchAddFull is ChildWatchAdd with an explicit priority.
func ChildWatchAddFull(priority int32, pid int, fn func(ChildWatchResult)) uint64 {
	s := NewChildWatchSource(pid)
	_ = s.SetPriority(priority)
	s.SetCallback(func(userdata any) bool {
		r := userdata.(childWatchResult)
		if fn != nil {
			fn(ChildWatchResult{PID: r.pid, Status: r.status})
		}
		return false
	}, nil, nil)
	id, _ := workerContext().AttachSource(s)
	s.Unref()
	return id
}
