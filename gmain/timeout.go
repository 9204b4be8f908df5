// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import "time"

// timeoutSource backs [NewTimeoutSource]/[NewTimeoutSourceSeconds] (§4.5
// "Timeout"): ready-time driven, recomputed from the current monotonic
// time after every successful dispatch.
type timeoutSource struct {
	intervalMicros int64
	seconds        bool
}

// NewTimeoutSource creates a source that becomes ready every interval,
// starting interval from now.
func NewTimeoutSource(interval time.Duration) *Source {
	return newTimeoutSource(interval.Microseconds(), false)
}

// NewTimeoutSourceSeconds creates a second-granularity timeout source. Its
// deadline's microsecond part is aligned to a process-unique perturbation
// so that multiple second-timers created around the same moment fire in
// the same context iteration (§4.5, §13).
func NewTimeoutSourceSeconds(interval time.Duration) *Source {
	return newTimeoutSource(interval.Microseconds(), true)
}

func newTimeoutSource(intervalMicros int64, seconds bool) *Source {
	t := &timeoutSource{intervalMicros: intervalMicros, seconds: seconds}
	s := NewSource(&SourceFuncs{
		Prepare:  t.prepare,
		Check:    t.check,
		Dispatch: t.dispatch,
	})
	t.schedule(s)
	return s
}

func (t *timeoutSource) schedule(s *Source) {
	next := MonotonicMicros() + t.intervalMicros
	if t.seconds {
		const usPerSec = int64(time.Second / time.Microsecond)
		perturb := secondTimerPerturbation()
		rounded := ((next - perturb + usPerSec - 1) / usPerSec) * usPerSec
		next = rounded + perturb
	}
	s.SetReadyTime(next)
}

func (t *timeoutSource) prepare(s *Source) (bool, int) {
	rt := s.ReadyTime()
	if rt == neverReady {
		return false, -1
	}
	now := MonotonicMicros()
	if rt <= now {
		return true, 0
	}
	return false, int((rt - now + 999) / 1000)
}

func (t *timeoutSource) check(s *Source) bool {
	rt := s.ReadyTime()
	return rt != neverReady && rt <= MonotonicMicros()
}

func (t *timeoutSource) dispatch(s *Source, cb SourceFunc, userdata any) bool {
	keep := true
	if cb != nil {
		keep = cb(userdata)
	}
	if keep {
		t.schedule(s)
	} else {
		s.SetReadyTime(neverReady)
	}
	return keep
}

// TimeoutAdd attaches a one-shot-or-repeating timeout source to ctx (a nil
// ctx uses [DefaultContext]) and returns its id.
func TimeoutAdd(ctx *Context, interval time.Duration, fn SourceFunc) uint64 {
	return TimeoutAddFull(ctx, PriorityDefault, interval, fn, nil)
}

// TimeoutAddFull is TimeoutAdd with an explicit priority and destroy
// notify.
func TimeoutAddFull(ctx *Context, priority int32, interval time.Duration, fn SourceFunc, notify func(data any)) uint64 {
	if ctx == nil {
		ctx = DefaultContext()
	}
	s := NewTimeoutSource(interval)
	_ = s.SetPriority(priority)
	s.SetCallback(fn, nil, notify)
	id, _ := ctx.AttachSource(s)
	s.Unref()
	return id
}

// TimeoutAddSeconds is TimeoutAdd at second granularity (§4.5).
func TimeoutAddSeconds(ctx *Context, interval time.Duration, fn SourceFunc) uint64 {
	if ctx == nil {
		ctx = DefaultContext()
	}
	s := NewTimeoutSourceSeconds(interval)
	s.SetCallback(fn, nil, nil)
	id, _ := ctx.AttachSource(s)
	s.Unref()
	return id
}
