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

// Package render runs one pass over the tasks of a cassette. Each task reads
// the outputs committed by earlier tasks, renders through the renderer of its
// kind, commits its own output and decides whether the pass goes on.
package render

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	itelemetry "trpc.group/trpc-go/trpc-cassette-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-cassette-go/telemetry/trace"
)

// Pass is the visible result of one run over the tasks.
type Pass struct {
	Fragments []Fragment `json:"fragments"`
	// Halted is set when a Break or an error stopped the pass early.
	Halted bool `json:"halted"`
	// Invoked lists the tasks whose renderer ran, in order.
	Invoked []string `json:"-"`
	// Err is the message of the error that stopped the pass, if any.
	Err string `json:"error,omitempty"`
}

// Sequencer renders task lists with the renderers of a Kinds registry.
type Sequencer struct {
	kinds *Kinds
}

// NewSequencer creates a sequencer over kinds.
func NewSequencer(kinds *Kinds) *Sequencer {
	return &Sequencer{kinds: kinds}
}

// Run renders tasks in order against root. A Break stops the pass after its
// body. An error shows an alert in place of the task, commits nothing and
// stops the pass.
func (s *Sequencer) Run(ctx context.Context, root *Root, tasks []cassette.Task) Pass {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameRenderPass)
	defer span.End()

	var pass Pass
	for _, task := range tasks {
		verdict, body, err := s.runTask(ctx, root, task, &pass)
		if err != nil {
			alert := Alert("Error", err.Error())
			alert.Task = task.Name
			alert.Column = task.Metadata.Column
			pass.Fragments = append(pass.Fragments, alert)
			pass.Halted = true
			pass.Err = err.Error()
			break
		}
		if verdict != VerdictSkip {
			body.Task = task.Name
			if body.Column == "" {
				body.Column = task.Metadata.Column
			}
			pass.Fragments = append(pass.Fragments, body)
		}
		if verdict == VerdictBreak {
			pass.Halted = true
			break
		}
	}
	span.SetAttributes(
		attribute.Int("trpc.cassette.fragments", len(pass.Fragments)),
		attribute.Bool("trpc.cassette.halted", pass.Halted),
	)
	return pass
}

func (s *Sequencer) runTask(ctx context.Context, root *Root, task cassette.Task, pass *Pass) (Verdict, Fragment, error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewTaskSpanName(task.Name))
	defer span.End()

	r, ok := s.kinds.Lookup(task.Kind)
	if !ok {
		err := fmt.Errorf("Unknown type: %q as %s", task.Name, task.Kind)
		itelemetry.TraceTask(span, task.Kind, "error", err)
		return 0, Fragment{}, err
	}

	c := root.Context(task)
	pass.Invoked = append(pass.Invoked, task.Name)
	outcome, err := r.Render(ctx, c, task.Spec)
	if err != nil {
		itelemetry.TraceTask(span, task.Kind, "error", err)
		return 0, Fragment{}, err
	}
	committed := c.Commit(outcome)
	itelemetry.TraceTask(span, task.Kind, committed.Verdict.String(), nil)
	return committed.Verdict, committed.Body, nil
}
