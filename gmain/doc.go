// Package gmain provides a portable main-context/source event-loop core:
// a state machine that prepares, polls, checks, dispatches, and retires
// event sources across one or more cooperating goroutines.
//
// # Architecture
//
// A [Context] owns a set of per-priority [Source] lists, a sorted
// poll-record list, a [Wakeup] token, and at most one owning goroutine at a
// time. [Context.Iteration] drives one prepare->query->poll->check->dispatch
// pass; [Loop] is a thin run/quit shell bound to a Context.
//
// Concrete source types ([NewTimeoutSource], [NewIdleSource],
// [NewChildWatchSource], [NewSignalWatchSource]) produce readiness from
// monotonic time, immediate availability, process exit, and asynchronous
// signal delivery respectively. Arbitrary file descriptors are monitored
// via [Source.AddUnixFD] on any source.
//
// # Thread safety
//
// Any goroutine may attach, destroy, or modify sources on a Context
// concurrently with any other goroutine. Exactly one goroutine at a time
// may be inside prepare/query/check/dispatch for a given Context (the
// "owner" — see [Context.Acquire]); ownership is recursive for the owning
// goroutine. A [Context.Wake] issued after an attach is guaranteed to
// unblock a concurrent poll.
//
// # Non-goals
//
// gmain does not provide multi-owner concurrent iteration of the same
// Context, real-time scheduling latency guarantees, or a coroutine/task
// runtime — sources are callback-driven and run to completion within a
// single dispatch turn.
package gmain
