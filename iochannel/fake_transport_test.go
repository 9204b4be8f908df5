// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package iochannel

import (
	"io"

	"github.com/cmoretti/gomainloop/gmain"
)

// fakeTransport is an in-memory Transport for exercising Channel without
// a real descriptor.
type fakeTransport struct {
	in      []byte
	inEOF   bool
	out     []byte
	closed  bool
	seekPos int64
	flags   Flags
}

func (t *fakeTransport) Read(p []byte) (int, Status, error) {
	if len(t.in) == 0 {
		if t.inEOF {
			return 0, StatusEOF, nil
		}
		return 0, StatusAgain, nil
	}
	n := copy(p, t.in)
	t.in = t.in[n:]
	return n, StatusNormal, nil
}

func (t *fakeTransport) Write(p []byte) (int, Status, error) {
	t.out = append(t.out, p...)
	return len(p), StatusNormal, nil
}

func (t *fakeTransport) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		t.seekPos = offset
	case io.SeekCurrent:
		t.seekPos += offset
	case io.SeekEnd:
		t.seekPos = offset
	default:
		return 0, newError(CodeInval, "bad seek whence", nil)
	}
	return t.seekPos, nil
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

func (t *fakeTransport) SetFlags(flags Flags) error { t.flags = flags; return nil }
func (t *fakeTransport) GetFlags() Flags            { return t.flags }

func (t *fakeTransport) CreateWatch(cond Condition) *gmain.Source {
	return gmain.NewSource(&gmain.SourceFuncs{
		Prepare:  func(*gmain.Source) (bool, int) { return false, -1 },
		Check:    func(*gmain.Source) bool { return false },
		Dispatch: func(*gmain.Source, gmain.SourceFunc, any) bool { return true },
	})
}

var _ Transport = (*fakeTransport)(nil)
