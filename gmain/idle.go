// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

// NewIdleSource creates a source that is always ready: prepare returns
// (true, 0) and check returns true. Default priority is [PriorityDefaultIdle],
// below normal sources, so idle work never starves timeouts or fd watches
// (§4.5 "Idle").
func NewIdleSource() *Source {
	s := NewSource(&SourceFuncs{
		Prepare: func(*Source) (bool, int) { return true, 0 },
		Check:   func(*Source) bool { return true },
		Dispatch: func(s *Source, cb SourceFunc, userdata any) bool {
			if cb == nil {
				return false
			}
			return cb(userdata)
		},
	})
	_ = s.SetPriority(PriorityDefaultIdle)
	return s
}

// IdleAdd attaches an idle source running fn at [PriorityDefaultIdle] to
// ctx (a nil ctx uses [DefaultContext]) and returns its id.
func IdleAdd(ctx *Context, fn SourceFunc) uint64 {
	return IdleAddFull(ctx, PriorityDefaultIdle, fn, nil)
}

// IdleAddFull is IdleAdd with an explicit priority and destroy notify.
func IdleAddFull(ctx *Context, priority int32, fn SourceFunc, notify func(data any)) uint64 {
	if ctx == nil {
		ctx = DefaultContext()
	}
	s := NewIdleSource()
	_ = s.SetPriority(priority)
	s.SetCallback(fn, nil, notify)
	id, _ := ctx.AttachSource(s)
	s.Unref()
	return id
}
