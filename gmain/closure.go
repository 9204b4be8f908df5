// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

// SourceFunc is the user callback a [Source] dispatches to. Returning false
// requests that the source be destroyed after this dispatch turn.
type SourceFunc func(userdata any) bool

// Closure is the indirection a [Source] stores its callback behind,
// supplementing the plain SetCallback path with the ref/unref/get scheme
// GLib calls GSourceCallbackFuncs: some embedders want the callback and its
// userdata's lifetime managed independently of the source itself (e.g.
// shared across several sources, or reference-counted alongside other
// state). A Closure is one of [FuncClosure] or [RefClosure].
type Closure interface {
	closure() (SourceFunc, any)
	release()
}

// FuncClosure is the common case: a plain callback and userdata, with an
// optional notify run once when the closure is finally discarded (the
// source is destroyed, or the callback is replaced).
type FuncClosure struct {
	Callback SourceFunc
	Data     any
	Notify   func(data any)
}

func (c FuncClosure) closure() (SourceFunc, any) { return c.Callback, c.Data }

func (c FuncClosure) release() {
	if c.Notify != nil {
		c.Notify(c.Data)
	}
}

// RefClosure defers ownership of the callback and userdata to an external
// reference-counted object: Ref is called once when the closure is attached
// to a source, Unref once when discarded, and Get fetches the current
// (callback, userdata) pair at dispatch time, allowing it to change between
// dispatches (e.g. a closure shared across several sources of a scripting
// runtime, swapped out from under them).
type RefClosure struct {
	Data  any
	Ref   func(data any)
	Unref func(data any)
	Get   func(data any) (SourceFunc, any)
}

func (c RefClosure) closure() (SourceFunc, any) {
	if c.Get == nil {
		return nil, c.Data
	}
	return c.Get(c.Data)
}

func (c RefClosure) release() {
	if c.Unref != nil {
		c.Unref(c.Data)
	}
}

func retainClosure(c Closure) {
	if rc, ok := c.(RefClosure); ok && rc.Ref != nil {
		rc.Ref(rc.Data)
	}
}
