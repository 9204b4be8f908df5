// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

// contextOptions holds the options passed to [NewContext].
type contextOptions struct {
	ownerlessPolling bool
	pollFunc         PollFunc
	logger           Logger
}

// ContextOption configures a [Context] at construction time.
type ContextOption interface {
	applyContext(*contextOptions)
}

type contextOptionFunc func(*contextOptions)

func (f contextOptionFunc) applyContext(o *contextOptions) { f(o) }

// WithOwnerlessPolling sets the "ownerless polling" flag described in §3:
// when enabled, every attach/wake sends a wakeup even without an owner
// thread, for embedders that drive the context from an external loop.
func WithOwnerlessPolling(enabled bool) ContextOption {
	return contextOptionFunc(func(o *contextOptions) {
		o.ownerlessPolling = enabled
	})
}

// WithPollFunc overrides the platform default poll function. The supplied
// function must have the semantics documented on [PollFunc].
func WithPollFunc(fn PollFunc) ContextOption {
	return contextOptionFunc(func(o *contextOptions) {
		if fn != nil {
			o.pollFunc = fn
		}
	})
}

// WithContextLogger attaches a diagnostic [Logger] to the context. A nil
// logger is ignored (the context keeps its current, possibly no-op,
// logger).
func WithContextLogger(logger Logger) ContextOption {
	return contextOptionFunc(func(o *contextOptions) {
		if logger != nil {
			o.logger = logger
		}
	})
}

func resolveContextOptions(opts []ContextOption) *contextOptions {
	cfg := &contextOptions{
		pollFunc: defaultPollFunc,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyContext(cfg)
	}
	return cfg
}

// LoopOption configures a [Loop] at construction time.
type LoopOption interface {
	applyLoop(*loopOptions)
}

type loopOptions struct {
	context *Context
}

type loopOptionFunc func(*loopOptions)

func (f loopOptionFunc) applyLoop(o *loopOptions) { f(o) }

// WithLoopContext binds the loop to an explicit context instead of the
// thread-default one current at [NewLoop] time.
func WithLoopContext(ctx *Context) LoopOption {
	return loopOptionFunc(func(o *loopOptions) {
		o.context = ctx
	})
}

func resolveLoopOptions(opts []LoopOption) *loopOptions {
	cfg := &loopOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyLoop(cfg)
	}
	return cfg
}
