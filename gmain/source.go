// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import (
	"sync/atomic"
)

// Priority levels, matching the conventional spread used throughout the
// specification's examples: lower numbers dispatch first.
const (
	PriorityHigh        int32 = -100
	PriorityDefault      int32 = 0
	PriorityHighIdle     int32 = 100
	PriorityDefaultIdle  int32 = 200
	PriorityLow          int32 = 300
)

// SourceFuncs is the vtable a [Source] is constructed from, matching §4.2's
// "Source-funcs semantics". Prepare and Check may be nil (treated as
// "ready = false, timeout = -1" and "ready = false" respectively); Dispatch
// is required; Finalize may be nil.
type SourceFuncs struct {
	Prepare  func(s *Source) (ready bool, timeoutMS int)
	Check    func(s *Source) bool
	Dispatch func(s *Source, callback SourceFunc, userdata any) (keep bool)
	Finalize func(s *Source)
}

// Source is one event source: a prepare/check/dispatch vtable plus the
// bookkeeping a [Context] needs to schedule it (§3 Data model: "Source").
type Source struct {
	refs atomic.Int32

	funcs *SourceFuncs

	id       uint64
	priority int32
	flags    sourceFlags
	readyTime atomic.Int64

	name    string
	closure Closure

	polls []*pollRecord

	parent   *Source
	children []*Source

	next, prev *Source // sourceList links, valid only while attached

	context *Context

	userData any
}

// NewSource allocates a source with the given vtable, default priority,
// active flag set, and ready-time "never" (§4.2 "new").
func NewSource(funcs *SourceFuncs) *Source {
	s := &Source{
		funcs:    funcs,
		priority: PriorityDefault,
		flags:    flagActive,
	}
	s.refs.Store(1)
	s.readyTime.Store(neverReady)
	return s
}

// Ref increments the source's reference count. Ref tolerates a refcount of
// zero, so a Finalize callback may resurrect the source by holding a new
// reference to it.
func (s *Source) Ref() *Source {
	s.refs.Add(1)
	return s
}

// Unref decrements the reference count. At zero it runs Finalize (if any)
// with the count temporarily bumped so Finalize may safely touch the
// source, then — if the count is still zero afterward — detaches the
// source from its context's bookkeeping and releases its callback closure
// and poll-fd allocations, per §4.2 "ref/unref".
func (s *Source) Unref() {
	if s.refs.Add(-1) != 0 {
		return
	}
	s.refs.Store(1)
	if s.funcs != nil && s.funcs.Finalize != nil {
		s.funcs.Finalize(s)
	}
	if s.refs.Add(-1) != 0 {
		return
	}

	if ctx := s.context; ctx != nil {
		ctx.logger.Diagnostic("unref-attached", "last reference to a source dropped while it is still attached")
		ctx.mu.Lock()
		ctx.detachSourceLocked(s)
		ctx.mu.Unlock()
	}
	if s.closure != nil {
		s.closure.release()
		s.closure = nil
	}
	s.polls = nil
	for _, c := range s.children {
		c.parent = nil
		c.Unref()
	}
	s.children = nil
}

// SetCallback installs a plain [SourceFunc]/userdata pair, replacing (and
// releasing) any previous closure.
func (s *Source) SetCallback(fn SourceFunc, userdata any, notify func(data any)) {
	s.setClosure(FuncClosure{Callback: fn, Data: userdata, Notify: notify})
}

// SetClosure installs a [Closure], replacing (and releasing) any previous
// one, and retaining the new one per RefClosure's Ref hook.
func (s *Source) SetClosure(c Closure) {
	s.setClosure(c)
}

func (s *Source) setClosure(c Closure) {
	old := s.closure
	retainClosure(c)
	s.closure = c
	if old != nil {
		old.release()
	}
}

func (s *Source) callback() (SourceFunc, any) {
	if s.closure == nil {
		return nil, s.userData
	}
	return s.closure.closure()
}

// Priority returns the source's current dispatch priority.
func (s *Source) Priority() int32 { return s.priority }

// SetPriority changes the source's dispatch priority. A child source's
// priority is fixed by its parent (§4.2): calling SetPriority on one
// returns [ErrChildPriorityFixed].
func (s *Source) SetPriority(priority int32) error {
	if s.parent != nil {
		return ErrChildPriorityFixed
	}
	return s.setPriority(priority)
}

func (s *Source) setPriority(priority int32) error {
	if s.priority == priority {
		return nil
	}
	ctx := s.context
	if ctx != nil {
		ctx.mu.Lock()
		ctx.sources.remove(s)
	}
	s.priority = priority
	for _, rec := range s.polls {
		rec.priority = priority
	}
	if ctx != nil {
		if s.parent != nil && s.parent.context == ctx {
			ctx.sources.insertBefore(s.parent, s)
		} else {
			ctx.sources.insert(s)
		}
		ctx.mu.Unlock()
	}
	for _, c := range s.children {
		_ = c.setPriority(priority)
	}
	return nil
}

// ReadyTime returns the source's absolute monotonic-microsecond deadline,
// neverReady if none, immediatelyReady if it should fire on the very next
// check.
func (s *Source) ReadyTime() int64 { return s.readyTime.Load() }

// SetReadyTime sets the deadline; -1 means never, 0 means immediately,
// otherwise t is absolute monotonic microseconds. Changing the deadline on
// an attached source wakes its context, since a previously computed
// prepare timeout may no longer be valid (§4.2).
func (s *Source) SetReadyTime(t int64) {
	if s.readyTime.Swap(t) == t {
		return
	}
	if ctx := s.context; ctx != nil {
		ctx.Wake()
	}
}

// SetName attaches a debugging name to the source.
func (s *Source) SetName(name string) { s.name = name }

// Name returns the source's debugging name, if any.
func (s *Source) Name() string { return s.name }

// Context returns the context the source is currently attached to, or nil.
func (s *Source) Context() *Context { return s.context }

// SetCanRecurse controls whether the source remains unblocked while its
// own dispatch is in progress. Off by default: a source is blocked for the
// duration of its dispatch call, so a re-entrant iteration of the same
// context cannot dispatch it again.
func (s *Source) SetCanRecurse(canRecurse bool) {
	s.flags = s.flags.set(flagCanRecurse, canRecurse)
}

// IsDestroyed reports whether Destroy has been called on this source.
func (s *Source) IsDestroyed() bool { return !s.flags.has(flagActive) }

// Destroy is idempotent and safe from any goroutine: it clears the active
// flag, unregisters every poll-fd, unparents (recursively destroying and
// unreferencing) child sources, detaches the source from its context
// (dropping the reference AttachSource took), and releases the callback
// closure (§4.2).
func (s *Source) Destroy() {
	ctx := s.context
	if ctx != nil {
		ctx.mu.Lock()
	}
	closures := s.destroyLocked(nil)
	if ctx != nil {
		ctx.mu.Unlock()
	}
	for _, c := range closures {
		c.release()
	}
}

// destroyLocked detaches s (and its children) from the context, dropping
// the context's reference, and appends the closures to release once the
// context lock is no longer held.
func (s *Source) destroyLocked(closures []Closure) []Closure {
	if !s.flags.has(flagActive) {
		return closures
	}
	s.flags = s.flags.set(flagActive, false)
	if s.closure != nil {
		closures = append(closures, s.closure)
		s.closure = nil
	}

	children := s.children
	s.children = nil
	for _, c := range children {
		c.parent = nil
		closures = c.destroyLocked(closures)
		c.Unref()
	}

	if ctx := s.context; ctx != nil {
		ctx.detachSourceLocked(s)
		s.Unref()
	}
	return closures
}

// AddPoll registers an arbitrary file descriptor and event mask directly,
// bypassing the tag-based unix-fd API. Intended for concrete source types
// (timeout/idle/child-watch) that manage their own descriptor lifecycle.
func (s *Source) AddPoll(fd int, events PollEvent) {
	rec := &pollRecord{fd: fd, events: events, priority: s.priority, owner: s}
	s.polls = append(s.polls, rec)
	if ctx := s.context; ctx != nil {
		ctx.mu.Lock()
		ctx.polls.insert(rec)
		ctx.mu.Unlock()
		ctx.Wake()
	}
}

// RemovePoll unregisters a descriptor previously added with AddPoll.
func (s *Source) RemovePoll(fd int) {
	for i, rec := range s.polls {
		if rec.fd == fd {
			s.polls = append(s.polls[:i], s.polls[i+1:]...)
			if ctx := s.context; ctx != nil {
				ctx.mu.Lock()
				ctx.polls.remove(rec)
				ctx.mu.Unlock()
			}
			return
		}
	}
}

// AddUnixFD monitors fd for the given condition mask and returns an opaque
// tag identifying the resulting poll record for later ModifyUnixFD,
// RemoveUnixFD, or QueryUnixFD calls (§4.2).
func (s *Source) AddUnixFD(fd int, events PollEvent) uint64 {
	rec := &pollRecord{fd: fd, events: events, priority: s.priority, tag: pollTagSeq.Add(1), owner: s}
	s.polls = append(s.polls, rec)
	if ctx := s.context; ctx != nil {
		ctx.mu.Lock()
		ctx.polls.insert(rec)
		ctx.mu.Unlock()
		ctx.Wake()
	}
	return rec.tag
}

// ModifyUnixFD changes the event mask of a previously added unix-fd record,
// waking the context so the new mask is observed by the next poll.
func (s *Source) ModifyUnixFD(tag uint64, events PollEvent) error {
	rec := s.findPoll(tag)
	if rec == nil {
		return ErrUnixFDNotFound
	}
	rec.events = events
	if ctx := s.context; ctx != nil {
		ctx.mu.Lock()
		ctx.polls.changed = true
		ctx.mu.Unlock()
		ctx.Wake()
	}
	return nil
}

// RemoveUnixFD unregisters a previously added unix-fd record.
func (s *Source) RemoveUnixFD(tag uint64) error {
	for i, rec := range s.polls {
		if rec.tag == tag {
			s.polls = append(s.polls[:i], s.polls[i+1:]...)
			if ctx := s.context; ctx != nil {
				ctx.mu.Lock()
				ctx.polls.remove(rec)
				ctx.mu.Unlock()
			}
			return nil
		}
	}
	return ErrUnixFDNotFound
}

// QueryUnixFD returns the events observed on the record in the most recent
// check.
func (s *Source) QueryUnixFD(tag uint64) (PollEvent, error) {
	rec := s.findPoll(tag)
	if rec == nil {
		return 0, ErrUnixFDNotFound
	}
	return rec.revents, nil
}

func (s *Source) findPoll(tag uint64) *pollRecord {
	for _, rec := range s.polls {
		if rec.tag == tag {
			return rec
		}
	}
	return nil
}

// AddChildSource attaches child to this source as a child (§4.2): the
// child must be unattached, unparented, and not destroyed. It inherits the
// parent's priority, is blocked whenever the parent is blocked, and is
// attached to whatever context the parent is (or later becomes) attached
// to.
func (s *Source) AddChildSource(child *Source) error {
	if child.parent != nil || child.context != nil {
		return ErrChildSourceReparented
	}
	if !child.flags.has(flagActive) {
		return ErrSourceDestroyed
	}
	child.parent = s
	child.priority = s.priority
	s.children = append(s.children, child.Ref())
	if s.flags.has(flagBlocked) {
		child.flags = child.flags.set(flagBlocked, true)
	}
	if ctx := s.context; ctx != nil {
		_, _ = ctx.AttachSource(child)
	}
	return nil
}

func (s *Source) propagateReady() {
	for p := s.parent; p != nil; p = p.parent {
		p.flags = p.flags.set(flagReady, true)
	}
}
