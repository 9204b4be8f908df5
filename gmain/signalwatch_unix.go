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
	"sync/atomic"
	"syscall"
)

var (
	signalWatchMu      sync.Mutex
	signalWatchByNum   = map[syscall.Signal][]*signalWatchState{}
	signalWatchStarted = map[syscall.Signal]bool{}
)

type signalWatchState struct {
	signum  syscall.Signal
	pending atomic.Bool
	ctx     *Context
}

func installSignalWatch(signum syscall.Signal, st *signalWatchState) {
	signalWatchMu.Lock()
	signalWatchByNum[signum] = append(signalWatchByNum[signum], st)
	started := signalWatchStarted[signum]
	signalWatchStarted[signum] = true
	signalWatchMu.Unlock()

	if started {
		return
	}
	ch := make(chan os.Signal, 16)
	signal.Notify(ch, signum)
	go func() {
		for range ch {
			signalWatchMu.Lock()
			watchers := append([]*signalWatchState(nil), signalWatchByNum[signum]...)
			signalWatchMu.Unlock()
			for _, w := range watchers {
				w.pending.Store(true)
				if w.ctx != nil {
					w.ctx.Wake()
				}
			}
		}
	}()
}

func uninstallSignalWatch(st *signalWatchState) {
	signalWatchMu.Lock()
	defer signalWatchMu.Unlock()
	list := signalWatchByNum[st.signum]
	for i, w := range list {
		if w == st {
			signalWatchByNum[st.signum] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// NewSignalWatchSource creates a source that becomes ready each time the
// process receives signum, until destroyed (§4.5 "UNIX signal-watch").
func NewSignalWatchSource(signum syscall.Signal) *Source {
	st := &signalWatchState{signum: signum}

	s := NewSource(&SourceFuncs{
		Prepare: func(*Source) (bool, int) { return st.pending.Load(), -1 },
		Check:   func(*Source) bool { return st.pending.Load() },
		Dispatch: func(s *Source, cb SourceFunc, userdata any) bool {
			st.pending.Store(false)
			if cb != nil {
				return cb(userdata)
			}
			return true
		},
		Finalize: func(*Source) {
			uninstallSignalWatch(st)
		},
	})
	s.SetPriority(PriorityHigh)

	// st.ctx names the context the notifier goroutine wakes. Only
	// SignalWatchAdd below sets it; a source attached with AttachSource
	// directly is not woken on delivery and sees the signal at its
	// context's next iteration.
	installSignalWatch(signum, st)
	s.userData = st
	return s
}

func bindSignalWatchContext(s *Source, ctx *Context) {
	if st, ok := s.userData.(*signalWatchState); ok {
		st.ctx = ctx
	}
}

// SignalWatchAdd attaches a signal-watch source for signum to ctx (nil
// uses [DefaultContext]) and returns its id.
func SignalWatchAdd(ctx *Context, signum syscall.Signal, fn SourceFunc) uint64 {
	if ctx == nil {
		ctx = DefaultContext()
	}
	s := NewSignalWatchSource(signum)
	bindSignalWatchContext(s, ctx)
	s.SetCallback(fn, nil, nil)
	id, _ := ctx.AttachSource(s)
	s.Unref()
	return id
}
