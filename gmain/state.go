package gmain

import "sync/atomic"

// LoopState names the run-states of a main loop: idle, running and
// quitting. [Loop] itself does not use it; it tracks only a running flag.
type LoopState uint32

const (
	// LoopIdle means the loop has been created but Run has not been
	// called (or a previous Run has already returned).
	LoopIdle LoopState = iota
	// LoopRunning means a goroutine is inside Run, driving iterations.
	LoopRunning
	// LoopQuitting means Quit has been called; the running goroutine
	// will observe it and return from Run at the next iteration boundary.
	LoopQuitting
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "Idle"
	case LoopRunning:
		return "Running"
	case LoopQuitting:
		return "Quitting"
	default:
		return "Unknown"
	}
}

// runState is a small atomic holder for a [LoopState]; nothing in this
// package uses it. It only offers CAS and Load/Store — no transition table —
// trusting callers to sequence transitions correctly rather than
// validating every edge in a hot path.
type runState struct {
	v atomic.Uint32
}

func (s *runState) Load() LoopState { return LoopState(s.v.Load()) }

func (s *runState) Store(state LoopState) { s.v.Store(uint32(state)) }

func (s *runState) CAS(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// sourceFlags holds the small bitset of boolean attributes a [Source]
// carries (§3 Data model: "flags (active, in-call, can-recurse, ready,
// blocked)"), manipulated under the owning [Context]'s mutex except for
// the handful of accessors documented as lock-free.
type sourceFlags uint32

const (
	flagActive sourceFlags = 1 << iota
	flagInCall
	flagCanRecurse
	flagReady
	flagBlocked
	flagDestroyed
	flagInCheckOrPrepare
)

func (f sourceFlags) has(bit sourceFlags) bool { return f&bit != 0 }

func (f sourceFlags) set(bit sourceFlags, on bool) sourceFlags {
	if on {
		return f | bit
	}
	return f &^ bit
}
