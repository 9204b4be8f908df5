package gmain

import (
	"hash/fnv"
	"os"
	"sync"
	"time"
)

// processMonotonicOrigin is the reference point every MonotonicMicros call
// is measured from. Using time.Since against a fixed origin (rather than
// time.Now().UnixNano()) keeps the value on Go's monotonic clock reading,
// so it never moves backwards across NTP adjustments.
var processMonotonicOrigin = time.Now()

// MonotonicMicros returns the current time, in microseconds, on a clock
// that never moves backwards. Absolute values are meaningless across
// process restarts; only differences between two readings are meaningful.
func MonotonicMicros() int64 {
	return time.Since(processMonotonicOrigin).Microseconds()
}

// WallMicros returns the current wall-clock time in microseconds since the
// Unix epoch. Unlike MonotonicMicros, this can jump when the system clock
// is adjusted; it exists for display/logging purposes only, never for
// scheduling deadlines.
func WallMicros() int64 {
	return time.Now().UnixMicro()
}

// neverReady is the ready-time sentinel meaning "this source has no
// deadline and relies entirely on prepare/check for readiness".
const neverReady int64 = -1

// immediatelyReady is the ready-time sentinel meaning "ready on the very
// next check", per Source.SetReadyTime's documented t=0 special case.
const immediatelyReady int64 = 0

var (
	timerPerturbOnce  sync.Once
	timerPerturbMicro int64
)

// secondTimerPerturbation returns the process-unique microsecond offset
// second-granularity timeout sources align their deadlines to, so that
// multiple second-timers created around the same time fire in the same
// iteration instead of spreading across the full second.
//
// The seed is GMAIN_TIMER_SEED when set, otherwise os.Args[0]; the offset
// is an FNV-1a hash of it modulo one second, or 0 when both are empty.
func secondTimerPerturbation() int64 {
	timerPerturbOnce.Do(func() {
		seed := os.Getenv("GMAIN_TIMER_SEED")
		if seed == "" && len(os.Args) > 0 {
			seed = os.Args[0]
		}
		if seed == "" {
			timerPerturbMicro = 0
			return
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(seed))
		timerPerturbMicro = int64(h.Sum64() % uint64(time.Second/time.Microsecond))
	})
	return timerPerturbMicro
}
