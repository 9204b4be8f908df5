// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package iochannel implements a buffered, encoding-aware I/O channel
// state machine on top of a pluggable transport, modeled on GLib's
// GIOChannel: a read pipeline that validates or converts bytes into a
// decoded buffer, a write pipeline that converts or validates outgoing
// UTF-8 into transport bytes (stashing a trailing partial multi-byte
// sequence across writes), line-terminator autodetection, and an
// event-loop watch source whose readiness is the OR of the transport's
// fd condition and the channel's own buffer condition.
//
// The channel core (Channel) is transport-agnostic; Transport
// implementations in this package cover POSIX file descriptors and
// Windows handles/sockets.
package iochannel
