//
// Tencent is pleased to support the open source community by making trpc-cassette-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the trpc-cassette-go source code from Tencent,
// please note that trpc-cassette-go source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package fetch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/fetch/fetchtest"
)

func constant(v string) fetch.Op[string] {
	return func(context.Context) (string, error) { return v, nil }
}

func TestDispatchSetsFetchingSynchronously(t *testing.T) {
	sched := fetchtest.New()
	slot := &fetchtest.Slot[string]{}

	require.True(t, fetch.Dispatch(sched, slot, false, "items", constant("done")))
	assert.Equal(t, fetch.Fetching, slot.Latest().Phase)
	assert.NotZero(t, slot.Latest().Attempt)
	assert.Equal(t, "loading", slot.Latest().String())

	sched.Drain(context.Background())
	assert.Equal(t, fetch.Completed, slot.Latest().Phase)
	assert.Equal(t, "done", slot.Latest().Value)
	assert.Equal(t, 1, sched.Applied())
}

func TestDispatchOnlyFromPending(t *testing.T) {
	sched := fetchtest.New()
	slot := &fetchtest.Slot[string]{}

	require.True(t, fetch.Dispatch(sched, slot, false, "items", constant("a")))
	assert.False(t, fetch.Dispatch(sched, slot, false, "items", constant("b")))
	assert.Equal(t, 1, sched.Pending())

	sched.Drain(context.Background())
	assert.False(t, fetch.Dispatch(sched, slot, false, "items", constant("c")))
	assert.Equal(t, "a", slot.Latest().Value)
}

func TestDispatchError(t *testing.T) {
	sched := fetchtest.New()
	slot := &fetchtest.Slot[string]{}

	fetch.Dispatch(sched, slot, false, "items", func(context.Context) (string, error) {
		return "", errors.New("Failed to fetch the items: refused")
	})
	sched.Drain(context.Background())
	assert.Equal(t, fetch.Error, slot.Latest().Phase)
	assert.Equal(t, "Failed to fetch the items: refused", slot.Latest().String())
}

func TestStaleResultAfterResetIsDropped(t *testing.T) {
	sched := fetchtest.New()
	slot := &fetchtest.Slot[string]{}

	fetch.Dispatch(sched, slot, false, "items", constant("attempt A"))
	slot.Set(fetch.NewPending[string]())

	sched.Drain(context.Background())
	assert.Equal(t, fetch.Pending, slot.Latest().Phase)
	assert.Empty(t, slot.Latest().Value)
	assert.Equal(t, 1, sched.Dropped())
}

func TestForcedRedispatchSupersedesEarlierAttempt(t *testing.T) {
	sched := fetchtest.New()
	slot := &fetchtest.Slot[string]{}

	fetch.Dispatch(sched, slot, false, "items", constant("A"))
	require.True(t, fetch.Dispatch(sched, slot, true, "items", constant("B")))

	first := sched.Next(context.Background())
	second := sched.Next(context.Background())
	// B lands first, then A arrives late.
	sched.Apply(second...)
	sched.Apply(first...)

	assert.Equal(t, "B", slot.Latest().Value)
	assert.Equal(t, 1, sched.Applied())
	assert.Equal(t, 1, sched.Dropped())
}

func TestResultDroppedAfterSlotMovedOn(t *testing.T) {
	sched := fetchtest.New()
	slot := &fetchtest.Slot[string]{}

	fetch.Dispatch(sched, slot, false, "items", constant("late"))
	cur := slot.Latest()
	slot.Set(fetch.State[string]{Phase: fetch.Error, Err: "torn down", Attempt: cur.Attempt})

	sched.Drain(context.Background())
	assert.Equal(t, "torn down", slot.Latest().Err)
}

func TestSpawnFailureBecomesError(t *testing.T) {
	sched := fetchtest.New()
	sched.Close()
	slot := &fetchtest.Slot[string]{}

	require.True(t, fetch.Dispatch(sched, slot, false, "items", constant("x")))
	assert.Equal(t, fetch.Error, slot.Latest().Phase)
	assert.Contains(t, slot.Latest().Err, "Failed to fetch the items")
}

func TestDispatchStream(t *testing.T) {
	sched := fetchtest.New()
	slot := &fetchtest.Slot[string]{}

	op := func(_ context.Context, update func(string)) (string, error) {
		update("He")
		update("Hello")
		return "Hello world", nil
	}
	require.True(t, fetch.DispatchStream(sched, slot, false, "chat", op))

	completions := sched.Next(context.Background())
	require.Len(t, completions, 3)

	sched.Apply(completions[0])
	first := slot.Latest()
	assert.Equal(t, fetch.Collecting, first.Phase)
	assert.Equal(t, "He", first.Value)
	assert.Equal(t, uint64(1), first.Revision)

	sched.Apply(completions[1])
	second := slot.Latest()
	assert.Equal(t, "Hello", second.Value)
	assert.False(t, first.Equal(second))
	assert.True(t, second.Equal(second))

	sched.Apply(completions[2])
	assert.Equal(t, fetch.Completed, slot.Latest().Phase)
	assert.Equal(t, "Hello world", slot.Latest().String())
}

func TestDispatchStreamDropsProgressAfterReset(t *testing.T) {
	sched := fetchtest.New()
	slot := &fetchtest.Slot[string]{}

	fetch.DispatchStream(sched, slot, false, "chat", func(_ context.Context, update func(string)) (string, error) {
		update("partial")
		return "final", nil
	})
	completions := sched.Next(context.Background())
	slot.Set(fetch.NewPending[string]())
	sched.Apply(completions...)

	assert.Equal(t, fetch.Pending, slot.Latest().Phase)
	assert.Equal(t, 2, sched.Dropped())
}

func TestStateEqual(t *testing.T) {
	a := fetch.State[string]{Phase: fetch.Completed, Value: "x"}
	b := fetch.State[string]{Phase: fetch.Completed, Value: "y"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(fetch.NewPending[string]()))

	c1 := fetch.State[string]{Phase: fetch.Collecting, Attempt: 1, Revision: 1}
	c2 := fetch.State[string]{Phase: fetch.Collecting, Attempt: 1, Revision: 2}
	c3 := fetch.State[string]{Phase: fetch.Collecting, Attempt: 2, Revision: 1}
	assert.False(t, c1.Equal(c2))
	assert.False(t, c1.Equal(c3))
	assert.True(t, c1.Equal(c1))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "pending", fetch.Pending.String())
	assert.Equal(t, "collecting", fetch.Collecting.String())
	assert.Equal(t, "phase(9)", fetch.Phase(9).String())
}
