// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gsync

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutexLazyInitUnderRace(t *testing.T) {
	var m Mutex
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Lock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 5000, counter)
}

func TestMutexTryLock(t *testing.T) {
	var m Mutex
	require.True(t, m.TryLock())
	require.False(t, m.TryLock())
	m.Unlock()
	require.True(t, m.TryLock())
	m.Unlock()
}

func TestRecMutexNLockRequiresNUnlock(t *testing.T) {
	var m RecMutex
	m.Lock()
	m.Lock()
	m.Lock()

	unlocked := make(chan struct{})
	go func() {
		m.Lock()
		close(unlocked)
		m.Unlock()
	}()

	m.Unlock()
	m.Unlock()
	select {
	case <-unlocked:
		t.Fatal("other goroutine acquired the lock before the owner's final unlock")
	case <-time.After(20 * time.Millisecond):
	}

	m.Unlock() // final unlock releases depth to zero
	select {
	case <-unlocked:
	case <-time.After(time.Second):
		t.Fatal("other goroutine never acquired the lock")
	}
}

func TestRWLockExclusion(t *testing.T) {
	var l RWLock
	l.ReaderLock()
	require.True(t, l.ReaderTryLock())
	l.ReaderUnlock()
	require.False(t, l.WriterTryLock())
	l.ReaderUnlock()

	require.True(t, l.WriterTryLock())
	require.False(t, l.ReaderTryLock())
	l.WriterUnlock()
}

func TestCondWaitUntilDeadline(t *testing.T) {
	var c Cond
	var mu sync.Mutex

	mu.Lock()
	start := time.Now()
	woken := c.WaitUntil(&mu, start.Add(30*time.Millisecond))
	mu.Unlock()

	require.False(t, woken)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestCondSignalWakesWaiter(t *testing.T) {
	var c Cond
	var mu sync.Mutex
	woke := make(chan struct{})

	mu.Lock()
	go func() {
		mu.Lock()
		c.Wait(&mu)
		mu.Unlock()
		close(woke)
	}()
	mu.Unlock()

	require.Eventually(t, func() bool {
		c.Signal()
		select {
		case <-woke:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestOnceRunsInitializerExactlyOnce(t *testing.T) {
	var once Once
	var runs atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if once.Enter() {
				runs.Add(1)
				once.Leave("ready")
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), runs.Load())
	v, ok := once.Value()
	require.True(t, ok)
	require.Equal(t, "ready", v)
}

func TestThreadLocalDestroyOnReplace(t *testing.T) {
	var destroyed []any
	tl := NewThreadLocal(func(v any) { destroyed = append(destroyed, v) })

	require.Nil(t, tl.Get())
	tl.Set("a")
	require.Equal(t, "a", tl.Get())

	tl.Replace("b")
	require.Equal(t, []any{"a"}, destroyed)
	require.Equal(t, "b", tl.Get())

	other := make(chan any, 1)
	go func() { other <- tl.Get() }()
	require.Nil(t, <-other)
}
