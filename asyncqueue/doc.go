// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package asyncqueue is a reference-counted, thread-safe FIFO of opaque
// items, modeled on GLib's GAsyncQueue: an internal mutex and condition
// variable guard a deque, with blocking, non-blocking, and
// timeout-bounded pop variants, an optional destroy notifier run over
// any items still queued when the last reference drops, and sorted
// insertion via a caller-supplied comparator.
//
// Every mutating operation has an "_unlocked" counterpart (PushUnlocked,
// PopUnlocked, and so on) for composing multi-step atomic sequences
// under an explicitly held Lock/Unlock pair, exactly as the locked
// methods are themselves implemented in terms of the unlocked ones.
package asyncqueue
