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

// Package fetch implements the lifecycle of one remote operation as seen by a
// task: Pending, Fetching, optionally Collecting partial values, and finally
// Completed or Error. Results are committed through a Scheduler so that the
// staleness guard and the write happen in one step on the render loop.
package fetch

import (
	"fmt"
	"sync/atomic"
)

// Phase is the discriminant of a State.
type Phase int

// Phases of a remote operation.
const (
	Pending Phase = iota
	Fetching
	Collecting
	Completed
	Error
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Fetching:
		return "fetching"
	case Collecting:
		return "collecting"
	case Completed:
		return "completed"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the state of one remote operation. Attempt identifies the dispatch
// that produced the state and is zero while Pending. Revision counts the
// Collecting updates of one attempt.
type State[T any] struct {
	Phase    Phase
	Value    T
	Err      string
	Attempt  uint64
	Revision uint64
}

// NewPending returns the initial state.
func NewPending[T any]() State[T] {
	return State[T]{}
}

// IsPending reports whether no request has been dispatched.
func (s State[T]) IsPending() bool {
	return s.Phase == Pending
}

// InFlight reports whether a request is outstanding and has not yet produced
// any value.
func (s State[T]) InFlight() bool {
	return s.Phase == Pending || s.Phase == Fetching
}

// Done reports whether the attempt reached a terminal phase.
func (s State[T]) Done() bool {
	return s.Phase == Completed || s.Phase == Error
}

// Equal compares phases. Collecting states are equal only when they belong to
// the same attempt and revision, so partial values are never compared deeply.
func (s State[T]) Equal(other State[T]) bool {
	if s.Phase != other.Phase {
		return false
	}
	if s.Phase == Collecting {
		return s.Attempt == other.Attempt && s.Revision == other.Revision
	}
	return true
}

// String renders the state for display.
func (s State[T]) String() string {
	switch s.Phase {
	case Pending:
		return "pending"
	case Fetching:
		return "loading"
	case Collecting, Completed:
		return fmt.Sprint(s.Value)
	default:
		return s.Err
	}
}

var attempts atomic.Uint64

// nextAttempt returns a process-wide unique attempt id. Ids are never zero, so
// a slot reset to Pending never matches an outstanding attempt.
func nextAttempt() uint64 {
	return attempts.Add(1)
}
