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
	"encoding/json"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/log"
	"trpc.group/trpc-go/trpc-cassette-go/registry"
	"trpc.group/trpc-go/trpc-cassette-go/stream"
	"trpc.group/trpc-go/trpc-cassette-go/taskspec"
)

// Context is the view one task has of the root. Reads see every commit made
// so far, including earlier tasks of the same pass. Writes are scoped to the
// task name.
type Context struct {
	root *Root
	task cassette.Task
}

// Task returns the bound task.
func (c *Context) Task() cassette.Task {
	return c.task
}

// Name returns the bound task name.
func (c *Context) Name() string {
	return c.task.Name
}

// Data returns the persisted value at ptr, e.g. "/load/items".
func (c *Context) Data(ptr string) (json.RawMessage, error) {
	return c.root.spec.Get(ptr)
}

// TryData is like Data but reports absence.
func (c *Context) TryData(ptr string) (json.RawMessage, bool) {
	return c.root.spec.TryGet(ptr)
}

// PriorState decodes the state this task committed before into out. It
// reports false and leaves out untouched when there is none or it no longer
// decodes.
func (c *Context) PriorState(out any) bool {
	prior, ok := c.root.spec.Child(c.task.Name)
	if !ok || prior.IsNull() {
		return false
	}
	if err := prior.Decode(out); err != nil {
		log.Warnf("render: task %s: dropping undecodable state: %v", c.task.Name, err)
		return false
	}
	return true
}

// Commit writes the state of outcome under the task name and strips it. A nil
// state is left alone.
func (c *Context) Commit(outcome Outcome) TaskState[struct{}] {
	if outcome.State != nil {
		c.root.SetChild(c.task.Name, *outcome.State)
	}
	return TaskState[struct{}]{Verdict: outcome.Verdict, Body: outcome.Body}
}

// Registry returns the handler registry of the root.
func (c *Context) Registry() *registry.Registry {
	return c.root.registry
}

// Scheduler returns the scheduler fetches are dispatched on.
func (c *Context) Scheduler() fetch.Scheduler {
	return c.root.services.Scheduler
}

// Client returns the HTTP client for fetches.
func (c *Context) Client() *fetch.Client {
	return c.root.services.Client
}

// Namespace returns the cassette namespace being rendered.
func (c *Context) Namespace() string {
	return c.root.services.Namespace
}

// StreamOptions returns the options for streamed fetches.
func (c *Context) StreamOptions() []stream.Option {
	return c.root.services.Stream
}

// Resolve substitutes references in spec against the persisted tree and spec
// itself.
func (c *Context) Resolve(spec taskspec.Spec) (taskspec.Spec, error) {
	return taskspec.Resolve(spec, c.root, spec)
}

// UseState returns the handler name of the bound task, creating it with
// create when absent or when forceInit is set.
func UseState[T any](c *Context, name string, forceInit bool, create func() T, opts ...registry.UseOption) *registry.Handle[T] {
	key := registry.Key{Task: c.task.Name, Handler: name}
	return registry.Use(c.root.registry, key, forceInit, create, opts...)
}

// UseFetch keeps the state of op under handler name, dispatching it once
// while the handler is Pending, and returns the current state.
func UseFetch[T any](c *Context, name string, op fetch.Op[T]) fetch.State[T] {
	h := UseState(c, name, false, fetch.NewPending[T])
	fetch.Dispatch[T](c.Scheduler(), h, false, name, op)
	return h.Latest()
}

// UseStream is like UseFetch for streamed operations.
func UseStream[T any](c *Context, name string, op fetch.StreamOp[T]) fetch.State[T] {
	h := UseState(c, name, false, fetch.NewPending[T])
	fetch.DispatchStream[T](c.Scheduler(), h, false, name, op)
	return h.Latest()
}
