// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package iochannel

import (
	"golang.org/x/sys/windows"

	"github.com/cmoretti/gomainloop/gmain"
)

// HandleTransport is a Transport backed by a Windows HANDLE (file, pipe,
// or socket opened in handle-compatible mode).
type HandleTransport struct {
	h windows.Handle
}

// NewHandleTransport wraps an already-open handle.
func NewHandleTransport(h windows.Handle) *HandleTransport {
	return &HandleTransport{h: h}
}

// Handle returns the wrapped HANDLE.
func (t *HandleTransport) Handle() windows.Handle { return t.h }

func (t *HandleTransport) Read(p []byte) (int, Status, error) {
	var done uint32
	err := windows.ReadFile(t.h, p, &done, nil)
	switch {
	case err == windows.ERROR_HANDLE_EOF:
		return int(done), StatusEOF, nil
	case err != nil:
		return int(done), StatusError, newError(CodeIO, "i/o error", err)
	case done == 0 && len(p) > 0:
		return 0, StatusEOF, nil
	default:
		return int(done), StatusNormal, nil
	}
}

func (t *HandleTransport) Write(p []byte) (int, Status, error) {
	var done uint32
	err := windows.WriteFile(t.h, p, &done, nil)
	if err != nil {
		return int(done), StatusError, newError(CodeIO, "i/o error", err)
	}
	return int(done), StatusNormal, nil
}

func (t *HandleTransport) Seek(offset int64, whence int) (int64, error) {
	lo := int32(offset)
	hi := int32(offset >> 32)
	newLo, err := windows.SetFilePointer(t.h, lo, &hi, uint32(whence))
	if err != nil {
		return 0, newError(CodeIO, "seek failed", err)
	}
	return int64(newLo) | int64(hi)<<32, nil
}

func (t *HandleTransport) Close() error {
	return windows.CloseHandle(t.h)
}

// SetFlags is unsupported on Windows handles; it is a no-op, matching
// the platform's lack of a fcntl(2) equivalent for these flags.
func (t *HandleTransport) SetFlags(Flags) error { return nil }

// GetFlags always reports no flags set on Windows.
func (t *HandleTransport) GetFlags() Flags { return 0 }

// CreateWatch returns a source whose readiness tracks the handle via
// the shared gmain poller, which treats PollFD.FD as a raw Windows
// HANDLE value (see gmain/poller_windows.go).
func (t *HandleTransport) CreateWatch(cond Condition) *gmain.Source {
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
	tag = s.AddUnixFD(int(t.h), gmain.PollEvent(cond))
	s.SetName("iochannel.handlewatch")
	return s
}
