// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !windows

package gmain

import "golang.org/x/sys/unix"

// defaultPollFunc is the platform default [PollFunc], a thin wrapper over
// the real poll(2) syscall: poll-record management (coalescing, ordering,
// re-querying every iteration) lives on [Context], not in the poller.
func defaultPollFunc(fds []PollFD, timeoutMS int) (int, error) {
	raw := make([]unix.PollFd, len(fds))
	for i, f := range fds {
		raw[i] = unix.PollFd{Fd: int32(f.FD), Events: int16(f.Events)}
	}

	n, err := unix.Poll(raw, timeoutMS)
	for i := range raw {
		fds[i].REvents = PollEvent(raw[i].Revents)
	}
	if err == unix.EINTR {
		return 0, nil
	}
	return n, err
}
