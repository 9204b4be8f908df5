// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gthread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateJoin(t *testing.T) {
	th, err := Create("worker", func(data any) any {
		n := data.(int)
		return n * 2
	}, 21)
	require.NoError(t, err)
	require.True(t, th.Joinable())
	require.Equal(t, "worker", th.Name())

	result := th.Join()
	require.Equal(t, 42, result)
}

func TestCreateAppliesNameBestEffort(t *testing.T) {
	// Name application has no observable cross-platform effect beyond
	// not panicking and not affecting the result; this just exercises
	// the path with a name long enough to need truncation on Linux.
	th, err := Create("a-rather-long-thread-name", func(any) any { return nil }, nil)
	require.NoError(t, err)
	th.Join()
}

func TestStackSizeClamping(t *testing.T) {
	th, err := CreateWithOptions("small-stack", func(any) any { return nil }, nil, CreateOptions{StackSize: 1})
	require.NoError(t, err)
	require.GreaterOrEqual(t, th.StackSize(), uint(minStackSize))
	th.Join()

	th2, err := CreateWithOptions("big-stack", func(any) any { return nil }, nil, CreateOptions{StackSize: 1 << 20})
	require.NoError(t, err)
	require.Equal(t, uint(1<<20), th2.StackSize())
	th2.Join()
}

func TestCreateAgainOnExhaustion(t *testing.T) {
	SetMaxLiveThreads(1)
	defer SetMaxLiveThreads(0)

	block := make(chan struct{})
	th, err := Create("first", func(any) any {
		<-block
		return nil
	}, nil)
	require.NoError(t, err)

	_, err = Create("second", func(any) any { return nil }, nil)
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, ErrKindAgain, gerr.Kind)

	close(block)
	th.Join()

	// Once the first thread has exited, the ceiling has room again.
	require.Eventually(t, func() bool {
		th3, err := Create("third", func(any) any { return nil }, nil)
		if err != nil {
			return false
		}
		th3.Join()
		return true
	}, time.Second, time.Millisecond)
}

func TestYieldDoesNotPanic(t *testing.T) {
	Yield()
}
