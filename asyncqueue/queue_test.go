// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncqueue

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFIFOOrdering(t *testing.T) {
	q := New()
	done := make(chan struct{})

	go func() {
		defer close(done)
		q.Push("a")
		q.Push("b")
		q.Push("c")
	}()
	<-done

	require.Equal(t, "a", q.Pop())
	require.Equal(t, "b", q.Pop())
	require.Equal(t, "c", q.Pop())
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New()
	result := make(chan any, 1)
	go func() { result <- q.Pop() }()

	// Give the popper a chance to register as a waiter before pushing.
	require.Eventually(t, func() bool { return q.Length() < 0 }, time.Second, time.Millisecond)

	q.Push("late")
	require.Equal(t, "late", <-result)
}

func TestPushSortedOrdersByComparator(t *testing.T) {
	q := New()
	cmp := func(a, b any) int { return strings.Compare(a.(string), b.(string)) }

	q.PushSorted("banana", cmp)
	q.PushSorted("apple", cmp)
	q.PushSorted("cherry", cmp)

	require.Equal(t, "apple", q.Pop())
	require.Equal(t, "banana", q.Pop())
	require.Equal(t, "cherry", q.Pop())
}

func TestPushFront(t *testing.T) {
	q := New()
	q.Push("first")
	q.Push("second")
	q.PushFront("jump-the-line")

	require.Equal(t, "jump-the-line", q.Pop())
	require.Equal(t, "first", q.Pop())
}

func TestLengthSignSemantics(t *testing.T) {
	q := New()
	require.Equal(t, 0, q.Length())

	q.Push("x")
	require.Equal(t, 1, q.Length())
	q.Pop()
	require.Equal(t, 0, q.Length())

	started := make(chan struct{})
	unblocked := make(chan struct{})
	go func() {
		close(started)
		q.Pop()
		close(unblocked)
	}()
	<-started
	require.Eventually(t, func() bool { return q.Length() == -1 }, time.Second, time.Millisecond)

	q.Push("y")
	<-unblocked
	require.Equal(t, 0, q.Length())
}

func TestTimeoutPopDeadline(t *testing.T) {
	q := New()
	start := time.Now()
	_, ok := q.TimeoutPop(50 * time.Millisecond)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestTimeoutPopSucceedsBeforeDeadline(t *testing.T) {
	q := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push("in-time")
	}()
	item, ok := q.TimeoutPop(time.Second)
	require.True(t, ok)
	require.Equal(t, "in-time", item)
}

func TestDestroyNotifyOnFinalUnref(t *testing.T) {
	var destroyed []any
	q := NewFull(func(item any) { destroyed = append(destroyed, item) })
	q.Push("a")
	q.Push("b")

	q.Ref()
	q.Unref()
	require.Nil(t, destroyed)

	q.Unref()
	require.ElementsMatch(t, []any{"a", "b"}, destroyed)
}

func TestUnlockedVariantComposition(t *testing.T) {
	q := New()
	q.Lock()
	q.PushUnlocked("a")
	q.PushUnlocked("b")
	item, ok := q.TryPopUnlocked()
	q.Unlock()

	require.True(t, ok)
	require.Equal(t, "a", item)
	require.Equal(t, 1, q.Length())
}

func TestRemoveAndForEach(t *testing.T) {
	q := New()
	q.Push("a")
	q.Push("b")
	q.Push("c")

	equal := func(a, b any) bool { return a.(string) == b.(string) }
	require.True(t, q.Remove("b", equal))
	require.False(t, q.Remove("missing", equal))

	var seen []any
	q.ForEach(func(item any) { seen = append(seen, item) })
	require.Equal(t, []any{"a", "c"}, seen)
}
