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

package render

import (
	"fmt"

	"trpc.group/trpc-go/trpc-cassette-go/taskspec"
)

// Verdict tells the sequencer what to do after a task.
type Verdict int

// Verdicts.
const (
	// VerdictBreak shows the body and stops the pipeline.
	VerdictBreak Verdict = iota
	// VerdictContinue shows the body and moves on.
	VerdictContinue
	// VerdictSkip shows nothing and moves on.
	VerdictSkip
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case VerdictBreak:
		return "break"
	case VerdictContinue:
		return "continue"
	case VerdictSkip:
		return "skip"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// TaskState is the result of rendering one task. A nil State leaves the
// persisted state of the task untouched.
type TaskState[T any] struct {
	Verdict Verdict
	Body    Fragment
	State   *T
}

// Outcome is a TaskState with its state encoded.
type Outcome = TaskState[taskspec.Spec]

// Break stops the pipeline after showing body.
func Break[T any](body Fragment, state *T) TaskState[T] {
	return TaskState[T]{Verdict: VerdictBreak, Body: body, State: state}
}

// Continue shows body and renders the next task.
func Continue[T any](body Fragment, state *T) TaskState[T] {
	return TaskState[T]{Verdict: VerdictContinue, Body: body, State: state}
}

// Skip renders the next task without showing anything.
func Skip[T any](state *T) TaskState[T] {
	return TaskState[T]{Verdict: VerdictSkip, State: state}
}

// encode converts the typed state into a Spec.
func encode[T any](ts TaskState[T]) (Outcome, error) {
	out := Outcome{Verdict: ts.Verdict, Body: ts.Body}
	if ts.State == nil {
		return out, nil
	}
	spec, err := taskspec.From(*ts.State)
	if err != nil {
		return Outcome{}, fmt.Errorf("Failed to encode task state: %v", err)
	}
	out.State = &spec
	return out, nil
}
