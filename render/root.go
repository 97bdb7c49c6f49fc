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
	"errors"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/log"
	"trpc.group/trpc-go/trpc-cassette-go/registry"
	"trpc.group/trpc-go/trpc-cassette-go/stream"
	"trpc.group/trpc-go/trpc-cassette-go/taskspec"
)

// errNoScheduler is reported by fetches issued from a root without a scheduler.
var errNoScheduler = errors.New("no scheduler attached to the render root")

// Services are the collaborators renderers reach through their Context.
type Services struct {
	Scheduler fetch.Scheduler
	Client    *fetch.Client
	Namespace string
	Stream    []stream.Option
}

// Root is the state of one cassette render: the tree of persisted task
// outputs and the handler registry. It is owned by a single goroutine.
type Root struct {
	spec     taskspec.Spec
	registry *registry.Registry
	services Services
	version  uint64
	dirty    bool
}

// NewRoot creates an empty root.
func NewRoot(services Services, opts ...registry.Option) *Root {
	if services.Scheduler == nil {
		services.Scheduler = noScheduler{}
	}
	if services.Client == nil {
		services.Client = fetch.NewClient("")
	}
	return &Root{
		spec:     taskspec.Null(),
		registry: registry.New(opts...),
		services: services,
	}
}

// Spec returns the tree of persisted task outputs.
func (r *Root) Spec() taskspec.Spec {
	return r.spec
}

// Registry returns the handler registry.
func (r *Root) Registry() *registry.Registry {
	return r.registry
}

// Services returns the attached collaborators.
func (r *Root) Services() Services {
	return r.services
}

// TryGet implements taskspec.Lookup over the persisted tree.
func (r *Root) TryGet(ptr string) (json.RawMessage, bool) {
	return r.spec.TryGet(ptr)
}

// SetChild stores the persisted state of task name. It marks the root dirty
// only when the value actually changed.
func (r *Root) SetChild(name string, value taskspec.Spec) bool {
	next, changed := r.spec.SetChild(name, value)
	if !changed {
		return false
	}
	r.spec = next
	r.version++
	r.dirty = true
	log.Debugf("render: detected child update: %s", name)
	return true
}

// Version increases with every write to the tree or the registry.
func (r *Root) Version() uint64 {
	return r.version + r.registry.Version()
}

// Dirty reports whether a write asked for another pass.
func (r *Root) Dirty() bool {
	return r.dirty || r.registry.Dirty()
}

// TakeDirty returns the dirty flag and clears it.
func (r *Root) TakeDirty() bool {
	dirty := r.dirty
	r.dirty = false
	return r.registry.TakeDirty() || dirty
}

// Context binds the root to task.
func (r *Root) Context(task cassette.Task) *Context {
	return &Context{root: r, task: task}
}

type noScheduler struct{}

func (noScheduler) Spawn(string, fetch.Job) error {
	return errNoScheduler
}
