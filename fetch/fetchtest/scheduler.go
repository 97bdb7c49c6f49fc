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

// Package fetchtest provides a manual fetch.Scheduler for deterministic tests.
// Spawned jobs are queued and only run when the test asks for it.
package fetchtest

import (
	"context"
	"errors"
	"sync"

	"trpc.group/trpc-go/trpc-cassette-go/fetch"
)

// ErrClosed is returned by Spawn after Close.
var ErrClosed = errors.New("fetchtest: scheduler closed")

type queued struct {
	name string
	job  fetch.Job
}

// Scheduler queues jobs until Run or Drain is called.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []queued
	closed  bool
	applied int
	dropped int
	names   []string
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Spawn implements fetch.Scheduler.
func (s *Scheduler) Spawn(name string, job fetch.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.jobs = append(s.jobs, queued{name: name, job: job})
	s.names = append(s.names, name)
	return nil
}

// Close makes later Spawn calls fail.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Pending returns the number of queued jobs.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Spawned returns the names of every job spawned so far.
func (s *Scheduler) Spawned() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

// Next runs the oldest queued job and returns its completions, progress
// first, without applying them. It returns nil when the queue is empty.
func (s *Scheduler) Next(ctx context.Context) []fetch.Completion {
	s.mu.Lock()
	if len(s.jobs) == 0 {
		s.mu.Unlock()
		return nil
	}
	next := s.jobs[0]
	s.jobs = s.jobs[1:]
	s.mu.Unlock()

	var out []fetch.Completion
	final := next.job(ctx, func(c fetch.Completion) {
		out = append(out, c)
	})
	if final != nil {
		out = append(out, final)
	}
	return out
}

// Apply applies completions in order and records the outcome.
func (s *Scheduler) Apply(completions ...fetch.Completion) {
	for _, c := range completions {
		kept := c.Apply()
		s.mu.Lock()
		if kept {
			s.applied++
		} else {
			s.dropped++
		}
		s.mu.Unlock()
	}
}

// Drain runs and applies queued jobs until the queue is empty, including jobs
// spawned while draining.
func (s *Scheduler) Drain(ctx context.Context) {
	for {
		completions := s.Next(ctx)
		if completions == nil && s.Pending() == 0 {
			return
		}
		s.Apply(completions...)
	}
}

// Applied returns the number of kept completions.
func (s *Scheduler) Applied() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Dropped returns the number of completions rejected by the staleness guard.
func (s *Scheduler) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Slot is a plain fetch.Slot for tests that do not need a registry.
type Slot[T any] struct {
	mu     sync.Mutex
	state  fetch.State[T]
	writes int
}

// Latest implements fetch.Slot.
func (s *Slot[T]) Latest() fetch.State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set implements fetch.Slot.
func (s *Slot[T]) Set(state fetch.State[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.writes++
}

// Writes returns the number of Set calls.
func (s *Slot[T]) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
