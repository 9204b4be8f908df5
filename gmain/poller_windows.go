// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package gmain

import (
	"time"

	"golang.org/x/sys/windows"
)

// maxWaitObjects is WAIT_OBJECT_0's usable range: WaitForMultipleObjects
// accepts at most this many handles in one call.
const maxWaitObjects = 64

// defaultPollFunc on Windows has no socket-level poll(2) equivalent with
// uniform semantics across pipes, sockets and events, so descriptors are
// treated as Windows HANDLE values and waited on via WaitForMultipleObjects,
// per §4.9's note that Windows drives its poller from WaitForMultipleObjects
// rather than WSAPoll. Readiness is reported coarsely as [PollIn] on any
// requested event mask; add-unix-fd (§4.2) remains POSIX-only and is not
// reachable through this path.
func defaultPollFunc(fds []PollFD, timeoutMS int) (int, error) {
	if len(fds) == 0 {
		if timeoutMS < 0 {
			select {}
		}
		time.Sleep(time.Duration(timeoutMS) * time.Millisecond)
		return 0, nil
	}
	if len(fds) > maxWaitObjects {
		fds = fds[:maxWaitObjects]
	}

	handles := make([]windows.Handle, len(fds))
	for i, f := range fds {
		handles[i] = windows.Handle(f.FD)
	}

	timeout := uint32(windows.INFINITE)
	if timeoutMS >= 0 {
		timeout = uint32(timeoutMS)
	}

	idx, err := windows.WaitForMultipleObjects(handles, false, timeout)
	switch {
	case err == windows.WAIT_TIMEOUT:
		return 0, nil
	case err != nil:
		return -1, err
	}

	i := int(idx - windows.WAIT_OBJECT_0)
	if i < 0 || i >= len(fds) {
		return 0, nil
	}
	fds[i].REvents = PollIn
	return 1, nil
}
