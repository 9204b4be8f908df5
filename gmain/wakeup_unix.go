// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !windows

package gmain

import "golang.org/x/sys/unix"

// Wakeup is the token a [Context] signals to interrupt a concurrent
// [PollFunc] wait: on Linux it is an eventfd, on Darwin a self-pipe, in
// either case surfaced as a readable descriptor added to every poll.
type Wakeup struct {
	readFD, writeFD int
}

func newWakeup() (*Wakeup, error) {
	r, w, err := createWakeFD()
	if err != nil {
		return nil, err
	}
	return &Wakeup{readFD: r, writeFD: w}, nil
}

// fd is the descriptor [Context.poll] adds to its read set.
func (w *Wakeup) fd() int { return w.readFD }

// Signal wakes any goroutine blocked in a poll carrying this token.
// Idempotent: multiple signals before the next drain coalesce into one
// poll return rather than queuing one wakeup per signal.
func (w *Wakeup) Signal() error {
	buf := [8]byte{1}
	for {
		_, err := unix.Write(w.writeFD, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return err
		}
	}
}

// drain discards any pending wakeups after a poll returns ready on fd().
func (w *Wakeup) drain() {
	var buf [64]byte
	for {
		_, err := unix.Read(w.readFD, buf[:])
		if err != nil {
			return
		}
	}
}

// Close releases the underlying descriptors. The Wakeup must not be used
// afterwards.
func (w *Wakeup) Close() error {
	_ = unix.Close(w.readFD)
	if w.writeFD != w.readFD {
		_ = unix.Close(w.writeFD)
	}
	return nil
}
