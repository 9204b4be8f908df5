// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPriorityOrdering(t *testing.T) {
	ctx := NewContext()
	defer ctx.Unref()

	var order []string
	var mu sync.Mutex
	record := func(name string) SourceFunc {
		return func(any) bool {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return false
		}
	}

	low := NewIdleSource()
	_ = low.SetPriority(PriorityLow)
	low.SetCallback(record("low"), nil, nil)

	high := NewIdleSource()
	_ = high.SetPriority(PriorityHigh)
	high.SetCallback(record("high"), nil, nil)

	def := NewIdleSource()
	_ = def.SetPriority(PriorityDefault)
	def.SetCallback(record("default"), nil, nil)

	_, err := ctx.AttachSource(low)
	require.NoError(t, err)
	_, err = ctx.AttachSource(high)
	require.NoError(t, err)
	_, err = ctx.AttachSource(def)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ctx.Iteration(false)
	}

	require.Equal(t, []string{"high", "default", "low"}, order)
}

func TestTimeoutAccuracy(t *testing.T) {
	ctx := NewContext()
	defer ctx.Unref()

	start := time.Now()
	fired := make(chan struct{})
	s := NewTimeoutSource(30 * time.Millisecond)
	s.SetCallback(func(any) bool {
		close(fired)
		return false
	}, nil, nil)
	_, err := ctx.AttachSource(s)
	require.NoError(t, err)

	go func() {
		for {
			if !ctx.Iteration(true) {
				return
			}
			select {
			case <-fired:
				return
			default:
			}
		}
	}()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout source never fired")
	}
	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
	require.Less(t, elapsed, time.Second)
}

func TestCrossThreadWakeup(t *testing.T) {
	ctx := NewContext()
	defer ctx.Unref()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx.Iteration(true)
	}()

	// Give the owner goroutine a chance to block in poll before waking
	// it with a freshly attached, always-ready idle source.
	time.Sleep(20 * time.Millisecond)

	s := NewIdleSource()
	s.SetCallback(func(any) bool { return false }, nil, nil)
	_, err := ctx.AttachSource(s)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("iteration on another goroutine never woke for the new source")
	}
}

func TestAttachDestroyIdempotence(t *testing.T) {
	ctx := NewContext()
	defer ctx.Unref()

	s := NewIdleSource()
	_, err := ctx.AttachSource(s)
	require.NoError(t, err)

	s.Destroy()
	s.Destroy() // must not panic or double-free
	require.True(t, s.IsDestroyed())

	require.Nil(t, ctx.FindSourceByID(s.id))
}

func TestChildSourcePriorityPropagation(t *testing.T) {
	parent := NewIdleSource()
	child := NewIdleSource()
	require.NoError(t, parent.SetPriority(PriorityHigh))
	require.NoError(t, parent.AddChildSource(child))
	require.Equal(t, PriorityHigh, child.Priority())

	require.NoError(t, parent.SetPriority(PriorityLow))
	require.Equal(t, PriorityLow, child.Priority())

	require.ErrorIs(t, child.SetPriority(PriorityDefault), ErrChildPriorityFixed)
}

func TestReadyTimeDedupWakeup(t *testing.T) {
	ctx := NewContext()
	defer ctx.Unref()

	s := NewIdleSource()
	s.SetCallback(func(any) bool { return false }, nil, nil)
	_, err := ctx.AttachSource(s)
	require.NoError(t, err)

	// Setting the same ready-time twice should not panic or deadlock;
	// it is a no-op wake on the second call.
	s.SetReadyTime(immediatelyReady)
	s.SetReadyTime(immediatelyReady)
	require.True(t, ctx.Pending())
}

func TestThreadDefaultContextStack(t *testing.T) {
	require.Nil(t, GetThreadDefaultContext())

	ctx := NewContext()
	defer ctx.Unref()

	PushThreadDefaultContext(ctx)
	require.Same(t, ctx, GetThreadDefaultContext())

	ref := RefThreadDefaultContext()
	require.Same(t, ctx, ref)
	ref.Unref()

	require.NoError(t, PopThreadDefaultContext(ctx))
	require.Nil(t, GetThreadDefaultContext())
}

func TestInvokeRunsOnContextIteration(t *testing.T) {
	ctx := NewContext()
	defer ctx.Unref()

	ran := make(chan struct{})
	ctx.Invoke(func() { close(ran) })

	for i := 0; i < 5; i++ {
		ctx.Iteration(false)
		select {
		case <-ran:
			return
		default:
		}
	}
	t.Fatal("Invoke callback never ran")
}
