// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package gmain

import "golang.org/x/sys/windows"

// Wakeup is the token a [Context] signals to interrupt a concurrent
// [PollFunc] wait. Windows has no descriptor-based eventfd/pipe mechanism
// compatible with [defaultPollFunc]'s WaitForMultipleObjects loop, so the
// token is an auto-reset Event object included directly in the wait set.
type Wakeup struct {
	event windows.Handle
}

func newWakeup() (*Wakeup, error) {
	h, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	return &Wakeup{event: h}, nil
}

// fd exposes the event handle as an int so it can sit in a [PollFD] slice
// alongside other Windows handles.
func (w *Wakeup) fd() int { return int(w.event) }

// Signal sets the event; the next wait on it returns and resets it.
func (w *Wakeup) Signal() error {
	return windows.SetEvent(w.event)
}

// drain resets the event after a poll observes it signaled.
func (w *Wakeup) drain() {
	_ = windows.ResetEvent(w.event)
}

// Close releases the event handle. The Wakeup must not be used afterwards.
func (w *Wakeup) Close() error {
	return windows.CloseHandle(w.event)
}
