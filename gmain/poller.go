// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

// PollEvent is a bitmask of the POSIX poll(2) condition flags named in §6;
// the numeric values match POLLIN/POLLPRI/POLLOUT/POLLERR/POLLHUP/POLLNVAL
// so a [PollFunc] implementation built on a real poll(2) can cast directly.
type PollEvent uint32

const (
	PollIn   PollEvent = 0x0001
	PollPri  PollEvent = 0x0002
	PollOut  PollEvent = 0x0004
	PollErr  PollEvent = 0x0008
	PollHup  PollEvent = 0x0010
	PollNval PollEvent = 0x0020
)

// PollFD is one entry of the array passed to a [PollFunc]: a descriptor plus
// the events requested on it, with REvents filled in on return.
type PollFD struct {
	FD      int
	Events  PollEvent
	REvents PollEvent
}

// PollFunc matches the external interface named in §6:
//
//	poll(fds[], nfds, timeout_ms) -> int
//
// It blocks until at least one descriptor in fds is ready, timeoutMS
// milliseconds elapse (a negative timeout means block forever, zero means a
// non-blocking check), or the wait is interrupted. It fills in REvents for
// every entry of fds and returns the count of entries with a non-zero
// REvents, or a non-nil error if the wait itself failed (not merely that
// nothing became ready).
type PollFunc func(fds []PollFD, timeoutMS int) (int, error)
