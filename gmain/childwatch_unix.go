// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !windows

package gmain

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	childWatchOnce sync.Once
	childWatchCh   chan os.Signal

	childWatchMu sync.Mutex
	childWatches = map[int]*childWatchState{}
)

type childWatchState struct {
	pid     int
	exited  bool
	status  int
	noChild bool
}

func installChildWatchHandler() {
	childWatchOnce.Do(func() {
		childWatchCh = make(chan os.Signal, 16)
		signal.Notify(childWatchCh, syscall.SIGCHLD)
		go func() {
			ctx := workerContext()
			for range childWatchCh {
				if scanChildWatches() {
					ctx.Wake()
				}
			}
		}()
	})
}

// scanChildWatches performs a non-blocking waitpid on every registered
// child watch, per §4.5's "worker context scans all registered child
// watches on each SIGCHLD". Returns whether any watch transitioned to
// exited.
func scanChildWatches() bool {
	childWatchMu.Lock()
	defer childWatchMu.Unlock()
	changed := false
	for pid, cw := range childWatches {
		if cw.exited {
			continue
		}
		var ws syscall.WaitStatus
		wpid, err := syscall.Wait4(pid, &ws, syscall.WNOHANG, nil)
		switch {
		case err == syscall.ECHILD:
			cw.exited = true
			cw.noChild = true
			changed = true
		case wpid == pid:
			cw.exited = true
			cw.status = int(ws)
			changed = true
		}
	}
	return changed
}

// NewChildWatchSource creates a source that becomes ready once, when pid
// exits, carrying its wait status (§4.5 "Child-watch"). The source
// destroys itself after dispatch.
func NewChildWatchSource(pid int) *Source {
	installChildWatchHandler()

	cw := &childWatchState{pid: pid}
	childWatchMu.Lock()
	childWatches[pid] = cw
	childWatchMu.Unlock()

	ready := func() bool {
		childWatchMu.Lock()
		defer childWatchMu.Unlock()
		return cw.exited
	}

	s := NewSource(&SourceFuncs{
		Prepare: func(*Source) (bool, int) { return ready(), -1 },
		Check:   func(*Source) bool { return ready() },
		Dispatch: func(s *Source, cb SourceFunc, userdata any) bool {
			childWatchMu.Lock()
			status := cw.status
			noChild := cw.noChild
			childWatchMu.Unlock()
			if noChild && s.context != nil {
				s.context.logger.Diagnostic("child-watch-echild", "waitpid reported ECHILD for a watched pid", F("pid", pid))
			}
			if cb != nil {
				cb(childWatchResult{pid: pid, status: status, userdata: userdata})
			}
			return false
		},
		Finalize: func(*Source) {
			childWatchMu.Lock()
			delete(childWatches, pid)
			childWatchMu.Unlock()
		},
	})
	return s
}

// childWatchResult is the userdata value a child-watch callback receives,
// carrying the reaped process's id and raw wait status.
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

// ChildWatchResult reports a reaped child process's id and wait status.
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
