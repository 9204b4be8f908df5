// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package iochannel

import "github.com/cmoretti/gomainloop/gmain"

// Condition is a readiness condition bitset, shaped to compose directly
// with gmain.PollEvent for watch construction.
type Condition uint32

const (
	CondIn   Condition = Condition(gmain.PollIn)
	CondOut  Condition = Condition(gmain.PollOut)
	CondPri  Condition = Condition(gmain.PollPri)
	CondErr  Condition = Condition(gmain.PollErr)
	CondHup  Condition = Condition(gmain.PollHup)
	CondNval Condition = Condition(gmain.PollNval)
)

// Flags are transport-level flags readable/writable via
// Transport.GetFlags/SetFlags.
type Flags uint32

const (
	FlagAppend Flags = 1 << iota
	FlagNonblock
)

// Transport is the vtable a concrete channel type (POSIX fd, Windows
// handle/socket) implements; Channel drives it and is otherwise
// transport-agnostic.
type Transport interface {
	// Read reads up to len(p) bytes into p.
	Read(p []byte) (n int, status Status, err error)
	// Write writes up to len(p) bytes from p.
	Write(p []byte) (n int, status Status, err error)
	// Seek repositions the transport, per io.Seeker whence semantics. A
	// transport that does not support seeking returns an error; the
	// descriptor and handle transports in this package report it as a
	// CodeIO Error.
	Seek(offset int64, whence int) (int64, error)
	// Close closes the underlying descriptor/handle.
	Close() error
	// CreateWatch returns a new source attached to no context yet,
	// whose readiness reflects cond on the transport's underlying fd.
	CreateWatch(cond Condition) *gmain.Source
	// SetFlags applies transport-level flags.
	SetFlags(flags Flags) error
	// GetFlags reports the transport's current flags.
	GetFlags() Flags
}
