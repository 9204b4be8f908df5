// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !windows

package iochannel

import (
	"io"

	"golang.org/x/sys/unix"

	"github.com/cmoretti/gomainloop/gmain"
)

// FDTransport is a Transport backed by a POSIX file descriptor.
type FDTransport struct {
	fd int
}

// NewFDTransport wraps an already-open file descriptor.
func NewFDTransport(fd int) *FDTransport {
	return &FDTransport{fd: fd}
}

// FD returns the wrapped descriptor.
func (t *FDTransport) FD() int { return t.fd }

func (t *FDTransport) Read(p []byte) (int, Status, error) {
	n, err := unix.Read(t.fd, p)
	switch {
	case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
		return 0, StatusAgain, nil
	case err == unix.EINTR:
		return 0, StatusAgain, nil
	case err != nil:
		return 0, StatusError, classifyErrno(err)
	case n == 0:
		return 0, StatusEOF, nil
	default:
		return n, StatusNormal, nil
	}
}

func (t *FDTransport) Write(p []byte) (int, Status, error) {
	n, err := unix.Write(t.fd, p)
	switch {
	case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
		return n, StatusAgain, nil
	case err == unix.EINTR:
		return n, StatusAgain, nil
	case err != nil:
		return n, StatusError, classifyErrno(err)
	default:
		return n, StatusNormal, nil
	}
}

func (t *FDTransport) Seek(offset int64, whence int) (int64, error) {
	off, err := unix.Seek(t.fd, offset, whence)
	if err != nil {
		return 0, classifyErrno(err)
	}
	return off, nil
}

func (t *FDTransport) Close() error {
	return unix.Close(t.fd)
}

func (t *FDTransport) SetFlags(flags Flags) error {
	cur, err := unix.FcntlInt(uintptr(t.fd), unix.F_GETFL, 0)
	if err != nil {
		return classifyErrno(err)
	}
	if flags&FlagNonblock != 0 {
		cur |= unix.O_NONBLOCK
	} else {
		cur &^= unix.O_NONBLOCK
	}
	if flags&FlagAppend != 0 {
		cur |= unix.O_APPEND
	} else {
		cur &^= unix.O_APPEND
	}
	_, err = unix.FcntlInt(uintptr(t.fd), unix.F_SETFL, cur)
	if err != nil {
		return classifyErrno(err)
	}
	return nil
}

func (t *FDTransport) GetFlags() Flags {
	cur, err := unix.FcntlInt(uintptr(t.fd), unix.F_GETFL, 0)
	if err != nil {
		return 0
	}
	var flags Flags
	if cur&unix.O_NONBLOCK != 0 {
		flags |= FlagNonblock
	}
	if cur&unix.O_APPEND != 0 {
		flags |= FlagAppend
	}
	return flags
}

// CreateWatch returns a source that polls t.fd for cond via the
// tag-based unix-fd API, translating the resulting revents back into
// Condition on each Check.
func (t *FDTransport) CreateWatch(cond Condition) *gmain.Source {
	var tag uint64
	var s *gmain.Source
	s = gmain.NewSource(&gmain.SourceFuncs{
		Prepare: func(*gmain.Source) (bool, int) { return false, -1 },
		Check: func(*gmain.Source) bool {
			revents, err := s.QueryUnixFD(tag)
			return err == nil && Condition(revents)&cond != 0
		},
		Dispatch: func(_ *gmain.Source, cb gmain.SourceFunc, data any) bool {
			if cb == nil {
				return true
			}
			return cb(data)
		},
	})
	tag = s.AddUnixFD(t.fd, gmain.PollEvent(cond))
	s.SetName("iochannel.fdwatch")
	return s
}

func classifyErrno(err error) error {
	switch err {
	case unix.EFBIG:
		return newError(CodeFBIG, "file too large", err)
	case unix.EINVAL:
		return newError(CodeInval, "invalid argument", err)
	case unix.EISDIR:
		return newError(CodeIsDir, "is a directory", err)
	case unix.ENOSPC:
		return newError(CodeNoSpace, "no space left on device", err)
	case unix.ENXIO:
		return newError(CodeNXIO, "no such device or address", err)
	case unix.EOVERFLOW:
		return newError(CodeOverflow, "value too large", err)
	case unix.EPIPE:
		return newError(CodePipe, "broken pipe", err)
	case io.EOF:
		return nil
	default:
		return newError(CodeIO, "i/o error", err)
	}
}
