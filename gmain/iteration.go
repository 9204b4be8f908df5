// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import "math"

// Iteration drives one prepare->query->poll->check->dispatch pass (§4.3).
// If mayBlock is true and the context is currently owned by another
// goroutine, it waits for ownership before proceeding; if false, it
// returns false immediately in that case. It returns whether any source
// was dispatched.
func (ctx *Context) Iteration(mayBlock bool) bool {
	gid := goroutineID()
	if !ctx.acquireForIteration(gid, mayBlock) {
		return false
	}
	defer ctx.Release()

	_, maxPriority := ctx.prepare()
	timeout := ctx.iterTimeout
	if !mayBlock {
		timeout = 0
	}

	fds := ctx.queryFDs(maxPriority)
	revents, pollChanged := ctx.poll(fds, timeout)
	if pollChanged {
		return false
	}

	anyReady := ctx.check(maxPriority, fds, revents)
	if !anyReady {
		return false
	}
	return ctx.dispatch()
}

// Pending is §4.3's "pending": shorthand for iteration(false) with the
// dispatch phase skipped, reporting only whether something is ready.
func (ctx *Context) Pending() bool {
	gid := goroutineID()
	if !ctx.acquireForIteration(gid, false) {
		return false
	}
	defer ctx.Release()

	_, maxPriority := ctx.prepare()
	fds := ctx.queryFDs(maxPriority)
	revents, pollChanged := ctx.poll(fds, 0)
	if pollChanged {
		return false
	}
	return ctx.check(maxPriority, fds, revents)
}

func (ctx *Context) acquireForIteration(gid uint64, mayBlock bool) bool {
	ctx.mu.Lock()
	if ctx.acquireLocked(gid) {
		ctx.mu.Unlock()
		return true
	}
	ctx.mu.Unlock()
	if !mayBlock {
		return false
	}
	ctx.waitForOwnership(gid)
	return true
}

// prepare resets and recomputes source readiness; see §4.3 "prepare".
func (ctx *Context) prepare() (anyReady bool, maxPriority int32) {
	ctx.mu.Lock()
	if ctx.inPrepare {
		ctx.mu.Unlock()
		ctx.logger.Diagnostic("reentrant-prepare", "prepare called while already preparing")
		return false, math.MaxInt32
	}
	ctx.inPrepare = true

	for _, s := range ctx.pending {
		s.Unref()
	}
	ctx.pending = ctx.pending[:0]

	ctx.iterTimeout = -1
	maxPriority = math.MaxInt32

	type candidate struct {
		s *Source
	}
	var toCall []*Source
	ctx.sources.forEach(func(s *Source) {
		if s.flags.has(flagBlocked) || !s.flags.has(flagActive) {
			return
		}
		if anyReady && s.priority > maxPriority {
			return
		}
		toCall = append(toCall, s)
	})
	ctx.mu.Unlock()

	for _, s := range toCall {
		ready, timeoutMS := ctx.callPrepare(s)
		if !ready {
			rt := s.readyTime.Load()
			if rt != neverReady {
				now := MonotonicMicros()
				if rt <= now {
					ready, timeoutMS = true, 0
				} else {
					ms := int((rt - now + 999) / 1000)
					if timeoutMS < 0 || ms < timeoutMS {
						timeoutMS = ms
					}
				}
			}
		}
		if ready {
			ctx.mu.Lock()
			s.flags = s.flags.set(flagReady, true)
			s.propagateReady()
			ctx.mu.Unlock()
			anyReady = true
			if s.priority < maxPriority {
				maxPriority = s.priority
			}
		}
		if timeoutMS >= 0 {
			ctx.mu.Lock()
			if ctx.iterTimeout < 0 || timeoutMS < ctx.iterTimeout {
				ctx.iterTimeout = timeoutMS
			}
			ctx.mu.Unlock()
		}
	}

	ctx.mu.Lock()
	ctx.inPrepare = false
	ctx.mu.Unlock()

	if !anyReady {
		maxPriority = math.MaxInt32
	}
	return anyReady, maxPriority
}

// callPrepare invokes a source's Prepare func outside the context lock,
// with the in-check-or-prepare flag set so re-entrant context operations
// from within it are refused and diagnosed (§4.2).
func (ctx *Context) callPrepare(s *Source) (ready bool, timeoutMS int) {
	if s.funcs == nil || s.funcs.Prepare == nil {
		return false, -1
	}
	s.flags = s.flags.set(flagInCheckOrPrepare, true)
	ready, timeoutMS = s.funcs.Prepare(s)
	s.flags = s.flags.set(flagInCheckOrPrepare, false)
	return ready, timeoutMS
}

// queryFDs runs §4.3 "query", growing the cached buffer as needed until it
// fits every record at or below maxPriority.
func (ctx *Context) queryFDs(maxPriority int32) []PollFD {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for {
		n := ctx.polls.query(maxPriority, ctx.fdBuf)
		if n <= len(ctx.fdBuf) {
			return ctx.fdBuf[:n]
		}
		ctx.fdBuf = make([]PollFD, n)
	}
}

// poll runs §4.3 "poll": invoke the installed poll function. A poll error
// never surfaces to the caller; worst case every revents stays zero and
// nothing dispatches this turn.
func (ctx *Context) poll(fds []PollFD, timeoutMS int) (revents []PollFD, pollChanged bool) {
	ctx.mu.Lock()
	changedBefore := ctx.polls.changed
	ctx.mu.Unlock()
	if changedBefore {
		return fds, true
	}

	if _, err := ctx.pollFunc(fds, timeoutMS); err != nil {
		ctx.logger.Diagnostic("poll-error", "poll function returned an error", F("error", err))
		for i := range fds {
			fds[i].REvents = 0
		}
	}
	return fds, false
}

// check runs §4.3 "check".
func (ctx *Context) check(maxPriority int32, fds []PollFD, _ []PollFD) bool {
	ctx.mu.Lock()
	if ctx.inPrepare {
		ctx.mu.Unlock()
		ctx.logger.Diagnostic("reentrant-check", "check called while preparing")
		return false
	}

	if ctx.wakeup != nil {
		for _, f := range fds {
			if f.FD == ctx.wakeup.fd() && f.REvents != 0 {
				ctx.wakeup.drain()
				break
			}
		}
	}

	if ctx.polls.changed {
		ctx.mu.Unlock()
		return false
	}

	ctx.polls.mergeRevents(fds)

	var toCall []*Source
	ctx.sources.forEach(func(s *Source) {
		if s.flags.has(flagBlocked) || !s.flags.has(flagActive) {
			return
		}
		if s.priority > maxPriority {
			return
		}
		toCall = append(toCall, s)
	})
	ctx.mu.Unlock()

	anyReady := false
	now := MonotonicMicros()
	for _, s := range toCall {
		if maxPriority < math.MaxInt32 && s.priority > maxPriority {
			continue
		}
		ready := s.flags.has(flagReady)
		if !ready {
			ready = ctx.callCheck(s)
		}
		if !ready {
			for _, rec := range s.polls {
				if rec.revents != 0 {
					ready = true
					break
				}
			}
		}
		if !ready {
			rt := s.readyTime.Load()
			if rt != neverReady && rt <= now {
				ready = true
			}
		}
		if !ready {
			continue
		}

		ctx.mu.Lock()
		s.flags = s.flags.set(flagReady, true)
		s.propagateReady()
		ctx.pending = append(ctx.pending, s.Ref())
		ctx.mu.Unlock()
		anyReady = true
		if s.priority < maxPriority {
			maxPriority = s.priority
		}
	}
	return anyReady
}

func (ctx *Context) callCheck(s *Source) bool {
	if s.funcs == nil || s.funcs.Check == nil {
		return false
	}
	s.flags = s.flags.set(flagInCheckOrPrepare, true)
	ready := s.funcs.Check(s)
	s.flags = s.flags.set(flagInCheckOrPrepare, false)
	return ready
}

// dispatch runs §4.3 "dispatch": consume pending-dispatches in order.
func (ctx *Context) dispatch() bool {
	ctx.mu.Lock()
	pending := ctx.pending
	ctx.pending = nil
	ctx.mu.Unlock()

	dispatched := false
	for _, s := range pending {
		ctx.mu.Lock()
		s.flags = s.flags.set(flagReady, false)
		destroyed := !s.flags.has(flagActive)
		if destroyed {
			ctx.mu.Unlock()
			s.Unref()
			continue
		}
		callback, userdata := s.callback()
		canRecurse := s.flags.has(flagCanRecurse)
		if !canRecurse {
			s.flags = s.flags.set(flagBlocked, true)
		}
		s.flags = s.flags.set(flagInCall, true)
		ctx.mu.Unlock()

		keep := true
		if s.funcs != nil && s.funcs.Dispatch != nil {
			keep = s.funcs.Dispatch(s, callback, userdata)
		}
		dispatched = true

		ctx.mu.Lock()
		s.flags = s.flags.set(flagInCall, false)
		if !canRecurse && !s.IsDestroyed() {
			s.flags = s.flags.set(flagBlocked, false)
		}
		ctx.mu.Unlock()

		if !keep && !s.IsDestroyed() {
			s.Destroy()
		}
		s.Unref()
	}
	return dispatched
}
