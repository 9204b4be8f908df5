// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import (
	"sync"
	"sync/atomic"
)

// Context is the main-context: the owner of a set of sources, a
// poll-record list, and a wakeup token, at most one goroutine deep in
// ownership at a time (§3/§4.1).
type Context struct {
	refs atomic.Int32

	mu      sync.Mutex
	sources sourceList
	byID    map[uint64]*Source
	nextID  uint64

	polls  pollRecordList
	wakeup *Wakeup

	owner      uint64 // goroutine id, 0 = unowned
	ownerCount int
	waiters    []chan struct{}

	pending []*Source // pending-dispatches, each holding a reference

	iterTimeout  int // computed by prepare, consumed by poll
	inPrepare    bool
	pollFunc     PollFunc
	ownerless    bool
	logger       Logger
	fdBuf        []PollFD
}

// NewContext allocates a context: default poll function installed, its
// wakeup token inserted into the poll set at priority 0 (§4.1 "new").
func NewContext(opts ...ContextOption) *Context {
	cfg := resolveContextOptions(opts)

	w, err := newWakeup()
	if err != nil {
		// A wakeup token is foundational; without one the context could
		// never be interrupted from another goroutine. Diagnose and fall
		// back to a context that can still run single-goroutine, since
		// nothing else in this package depends on the wakeup record
		// existing for correctness of the prepare/check/dispatch logic
		// itself.
		cfg.logger.Diagnostic("wakeup-init-failed", "failed to create context wakeup token", F("error", err))
	}

	ctx := &Context{
		byID:      make(map[uint64]*Source),
		wakeup:    w,
		pollFunc:  cfg.pollFunc,
		ownerless: cfg.ownerlessPolling,
		logger:    cfg.logger,
		fdBuf:     make([]PollFD, 16),
	}
	ctx.refs.Store(1)

	if w != nil {
		rec := &pollRecord{fd: w.fd(), events: PollIn, priority: PriorityDefault}
		ctx.polls.insert(rec)
	}

	trackContext(ctx)
	return ctx
}

// Ref increments the context's reference count.
func (ctx *Context) Ref() *Context {
	ctx.refs.Add(1)
	return ctx
}

// Unref decrements the reference count. At zero, every still-attached
// source is collected into a local slice (so dispose/finalize callbacks
// cannot dereference a partially torn-down context), then each is
// destroyed and unreferenced (§4.1 "ref/unref").
func (ctx *Context) Unref() {
	if ctx.refs.Add(-1) != 0 {
		return
	}

	ctx.mu.Lock()
	var attached []*Source
	ctx.sources.forEach(func(s *Source) { attached = append(attached, s.Ref()) })
	ctx.mu.Unlock()

	for _, s := range attached {
		s.Destroy()
		s.context = nil
		s.Unref()
	}

	if ctx.wakeup != nil {
		_ = ctx.wakeup.Close()
	}
	untrackContext(ctx)
}

// SetPollFromExternal toggles "ownerless polling": when enabled, a Wake is
// issued unconditionally on every attach/ready transition even when no
// goroutine currently owns the context, for embedders that pump the
// context from an externally driven loop (§13).
func (ctx *Context) SetPollFromExternal(enabled bool) {
	ctx.mu.Lock()
	ctx.ownerless = enabled
	ctx.mu.Unlock()
}

// Wake interrupts a concurrent poll on this context, if any.
func (ctx *Context) Wake() {
	if ctx.wakeup == nil {
		return
	}
	if err := ctx.wakeup.Signal(); err != nil {
		ctx.logger.Diagnostic("wake-failed", "failed to signal context wakeup", F("error", err))
	}
}

// Acquire tries to become the owner of the context for the calling
// goroutine. If unowned, it takes ownership with a recursion count of one.
// If already owned by the calling goroutine, the count is incremented.
// If owned by another goroutine, Acquire returns false immediately (§4.3).
func (ctx *Context) Acquire() bool {
	gid := goroutineID()
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.acquireLocked(gid)
}

func (ctx *Context) acquireLocked(gid uint64) bool {
	if ctx.owner == 0 {
		ctx.owner = gid
		ctx.ownerCount = 1
		return true
	}
	if ctx.owner == gid {
		ctx.ownerCount++
		return true
	}
	return false
}

// Release decrements the ownership count; at zero it clears ownership and,
// if a waiter is queued, wakes the first one so it may retry acquisition
// (§4.3 "release").
func (ctx *Context) Release() {
	ctx.mu.Lock()
	ctx.ownerCount--
	if ctx.ownerCount > 0 {
		ctx.mu.Unlock()
		return
	}
	ctx.owner = 0
	var w chan struct{}
	if len(ctx.waiters) > 0 {
		w = ctx.waiters[0]
		ctx.waiters = ctx.waiters[1:]
	}
	ctx.mu.Unlock()
	if w != nil {
		close(w)
	}
}

// waitForOwnership blocks the calling goroutine until it can acquire the
// context, per §4.3's "wait-internal": enqueue on waiters, wait, then try
// again (looping, since a woken waiter races other acquirers).
func (ctx *Context) waitForOwnership(gid uint64) {
	for {
		ctx.mu.Lock()
		if ctx.acquireLocked(gid) {
			ctx.mu.Unlock()
			return
		}
		w := make(chan struct{})
		ctx.waiters = append(ctx.waiters, w)
		ctx.mu.Unlock()
		<-w
	}
}

// AttachSource attaches a fresh source to the context, assigning it an id
// and inserting it into the priority list (child sources are inserted
// immediately before their parent). It wakes the context if owned by
// another goroutine, or unconditionally when ownerless polling is enabled
// (§4.2 "attach").
func (ctx *Context) AttachSource(s *Source) (uint64, error) {
	if s.context != nil {
		return 0, ErrSourceAttached
	}
	if s.refs.Load() <= 0 || !s.flags.has(flagActive) {
		return 0, ErrSourceDestroyed
	}

	ctx.mu.Lock()
	ctx.nextID++
	for ctx.nextID == 0 || ctx.byID[ctx.nextID] != nil {
		ctx.nextID++
	}
	id := ctx.nextID
	s.id = id
	s.context = ctx
	s.Ref() // the context's reference, dropped when the source is destroyed
	ctx.byID[id] = s

	if s.parent != nil && s.parent.context == ctx {
		ctx.sources.insertBefore(s.parent, s)
	} else {
		ctx.sources.insert(s)
	}
	for _, rec := range s.polls {
		ctx.polls.insert(rec)
	}

	blocked := s.flags.has(flagBlocked)
	gid := goroutineID()
	shouldWake := ctx.ownerless || (ctx.owner != 0 && ctx.owner != gid)
	ctx.mu.Unlock()

	if !blocked {
		for _, c := range s.children {
			if c.context == nil {
				_, _ = ctx.AttachSource(c)
			}
		}
	}

	if shouldWake {
		ctx.Wake()
	}
	return id, nil
}

func (ctx *Context) detachSourceLocked(s *Source) {
	if s.id != 0 {
		delete(ctx.byID, s.id)
		if s.next != nil || s.prev != nil || ctx.sources.head == s {
			ctx.sources.remove(s)
		}
	}
	for _, rec := range s.polls {
		ctx.polls.remove(rec)
	}
	s.context = nil
}

// FindSourceByID returns the attached source with the given id, or nil.
func (ctx *Context) FindSourceByID(id uint64) *Source {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.byID[id]
}

// Invoke schedules fn to run once on the goroutine driving this context's
// iterations, at default priority, and returns immediately. It is realized
// as a one-shot idle source, per §4.2/§4.5.
func (ctx *Context) Invoke(fn func()) {
	ctx.InvokeFull(PriorityDefault, fn)
}

// InvokeFull is Invoke with an explicit priority.
func (ctx *Context) InvokeFull(priority int32, fn func()) {
	s := NewSource(&SourceFuncs{
		Prepare:  func(*Source) (bool, int) { return true, 0 },
		Check:    func(*Source) bool { return true },
		Dispatch: func(*Source, SourceFunc, any) bool { fn(); return false },
	})
	s.priority = priority
	_, _ = ctx.AttachSource(s)
	s.Unref()
}

// process-wide default context and thread-default stacks (§4.1).

var (
	defaultContextOnce sync.Once
	defaultContextVal  *Context

	threadDefaultMu     sync.Mutex
	threadDefaultStacks = map[uint64][]*Context{}

	liveContextsMu sync.Mutex
	liveContexts   = map[*Context]struct{}{}
)

func trackContext(ctx *Context) {
	liveContextsMu.Lock()
	liveContexts[ctx] = struct{}{}
	liveContextsMu.Unlock()
}

func untrackContext(ctx *Context) {
	liveContextsMu.Lock()
	delete(liveContexts, ctx)
	liveContextsMu.Unlock()
}

// DefaultContext returns the process-wide lazily constructed context
// returned whenever a caller passes nil (§4.1 "default").
func DefaultContext() *Context {
	defaultContextOnce.Do(func() {
		defaultContextVal = NewContext()
	})
	return defaultContextVal
}

// PushThreadDefaultContext makes ctx the calling goroutine's thread-default
// context, acquiring ownership (one count deep) and, unless ctx is the
// global default, taking a reference (§4.1 "push/pop thread-default").
func PushThreadDefaultContext(ctx *Context) {
	if ctx != DefaultContext() {
		ctx.Ref()
	}
	ctx.Acquire()
	gid := goroutineID()
	threadDefaultMu.Lock()
	threadDefaultStacks[gid] = append(threadDefaultStacks[gid], ctx)
	threadDefaultMu.Unlock()
}

// PopThreadDefaultContext pops the calling goroutine's thread-default
// stack; ctx must match the top of stack, or [ErrThreadDefaultMismatch] is
// returned. [ErrThreadDefaultStackEmpty] is returned if the stack is empty.
func PopThreadDefaultContext(ctx *Context) error {
	gid := goroutineID()
	threadDefaultMu.Lock()
	stack := threadDefaultStacks[gid]
	if len(stack) == 0 {
		threadDefaultMu.Unlock()
		return ErrThreadDefaultStackEmpty
	}
	top := stack[len(stack)-1]
	if top != ctx {
		threadDefaultMu.Unlock()
		return ErrThreadDefaultMismatch
	}
	threadDefaultStacks[gid] = stack[:len(stack)-1]
	threadDefaultMu.Unlock()

	ctx.Release()
	if ctx != DefaultContext() {
		ctx.Unref()
	}
	return nil
}

// GetThreadDefaultContext returns the calling goroutine's thread-default
// context, or nil if it is (or defaults to) the global default.
func GetThreadDefaultContext() *Context {
	gid := goroutineID()
	threadDefaultMu.Lock()
	defer threadDefaultMu.Unlock()
	stack := threadDefaultStacks[gid]
	if len(stack) == 0 {
		return nil
	}
	top := stack[len(stack)-1]
	if top == DefaultContext() {
		return nil
	}
	return top
}

// RefThreadDefaultContext canonicalizes GetThreadDefaultContext to always
// return a referenced, non-nil context: the global default when the
// goroutine has no thread-default of its own.
func RefThreadDefaultContext() *Context {
	if ctx := GetThreadDefaultContext(); ctx != nil {
		return ctx.Ref()
	}
	return DefaultContext().Ref()
}
