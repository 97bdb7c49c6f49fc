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

package fetch

import (
	"context"
	"fmt"

	itelemetry "trpc.group/trpc-go/trpc-cassette-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-cassette-go/log"
	"trpc.group/trpc-go/trpc-cassette-go/telemetry/trace"
)

// Slot holds the state of one remote operation.
type Slot[T any] interface {
	// Latest returns the current state, including writes made after the
	// caller obtained the slot.
	Latest() State[T]
	// Set stores a new state.
	Set(State[T])
}

// Completion is a result produced off the render loop. Apply runs on the loop;
// it performs the staleness check and the write together and reports whether
// the result was kept.
type Completion interface {
	Apply() bool
}

// CompletionFunc adapts a function to Completion.
type CompletionFunc func() bool

// Apply implements Completion.
func (f CompletionFunc) Apply() bool {
	return f()
}

// Job is the asynchronous part of an operation. It runs on a worker, may hand
// intermediate completions to progress, and returns the terminal completion.
type Job func(ctx context.Context, progress func(Completion)) Completion

// Scheduler runs jobs and applies their completions on a single goroutine.
type Scheduler interface {
	Spawn(name string, job Job) error
}

// Op performs one request.
type Op[T any] func(ctx context.Context) (T, error)

// StreamOp performs one streamed request, calling update with each partial
// value before returning the final one.
type StreamOp[T any] func(ctx context.Context, update func(T)) (T, error)

// Dispatch starts op if the slot is Pending or force is set, and reports
// whether it did. The slot moves to Fetching before Dispatch returns. The
// terminal state is written only if the slot still belongs to this attempt
// and is still Pending or Fetching.
func Dispatch[T any](sched Scheduler, slot Slot[T], force bool, name string, op Op[T]) bool {
	attempt, ok := begin(slot, force)
	if !ok {
		return false
	}
	err := sched.Spawn(name, func(ctx context.Context, _ func(Completion)) Completion {
		ctx, span := trace.Tracer.Start(ctx, itelemetry.NewFetchSpanName(name))
		defer span.End()

		value, err := op(ctx)
		next := terminal(attempt, value, err)
		itelemetry.TraceFetch(span, name, attempt, next.Phase.String())
		return commit(slot, name, next, Pending, Fetching)
	})
	if err != nil {
		spawnFailed(slot, name, attempt, err)
	}
	return true
}

// DispatchStream is like Dispatch for streamed operations. Each partial value
// is published as Collecting with an increasing revision while the slot is
// Fetching or Collecting for this attempt. The terminal state is also accepted
// from Collecting.
func DispatchStream[T any](sched Scheduler, slot Slot[T], force bool, name string, op StreamOp[T]) bool {
	attempt, ok := begin(slot, force)
	if !ok {
		return false
	}
	err := sched.Spawn(name, func(ctx context.Context, progress func(Completion)) Completion {
		ctx, span := trace.Tracer.Start(ctx, itelemetry.NewStreamSpanName(name))
		defer span.End()

		var revision uint64
		value, err := op(ctx, func(partial T) {
			revision++
			progress(commit(slot, name, State[T]{
				Phase:    Collecting,
				Value:    partial,
				Attempt:  attempt,
				Revision: revision,
			}, Fetching, Collecting))
		})
		next := terminal(attempt, value, err)
		itelemetry.TraceFetch(span, name, attempt, next.Phase.String())
		return commit(slot, name, next, Pending, Fetching, Collecting)
	})
	if err != nil {
		spawnFailed(slot, name, attempt, err)
	}
	return true
}

func begin[T any](slot Slot[T], force bool) (uint64, bool) {
	if !force && !slot.Latest().IsPending() {
		return 0, false
	}
	attempt := nextAttempt()
	slot.Set(State[T]{Phase: Fetching, Attempt: attempt})
	return attempt, true
}

func terminal[T any](attempt uint64, value T, err error) State[T] {
	if err != nil {
		return State[T]{Phase: Error, Err: err.Error(), Attempt: attempt}
	}
	return State[T]{Phase: Completed, Value: value, Attempt: attempt}
}

func spawnFailed[T any](slot Slot[T], name string, attempt uint64, err error) {
	slot.Set(State[T]{
		Phase:   Error,
		Err:     fmt.Sprintf("Failed to fetch the %s: %v", name, err),
		Attempt: attempt,
	})
}

// commit builds the completion that writes next into slot if the slot is
// still on the same attempt and in one of the allowed phases.
func commit[T any](slot Slot[T], name string, next State[T], allowed ...Phase) Completion {
	return CompletionFunc(func() bool {
		cur := slot.Latest()
		if cur.Attempt != next.Attempt || !phaseIn(cur.Phase, allowed) {
			log.Debugf("fetch %s: dropping stale %s result of attempt %d (slot is %s, attempt %d)",
				name, next.Phase, next.Attempt, cur.Phase, cur.Attempt)
			return false
		}
		slot.Set(next)
		return true
	})
}

func phaseIn(p Phase, allowed []Phase) bool {
	for _, a := range allowed {
		if p == a {
			return true
		}
	}
	return false
}
