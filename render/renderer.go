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
	"context"
	"fmt"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-cassette-go/taskspec"
)

// Renderer renders one task kind.
type Renderer interface {
	Render(ctx context.Context, c *Context, spec taskspec.Spec) (Outcome, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, c *Context, spec taskspec.Spec) (Outcome, error)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, c *Context, spec taskspec.Spec) (Outcome, error) {
	return f(ctx, c, spec)
}

// TypedFunc renders a task from its decoded spec S and its prior state T.
// state is the zero T when the task has no decodable prior state.
type TypedFunc[S, T any] func(ctx context.Context, c *Context, state T, spec S) (TaskState[T], error)

// Typed builds a Renderer that resolves references in the raw spec, decodes
// it into S, loads the prior state, calls fn and encodes the resulting state.
func Typed[S, T any](fn TypedFunc[S, T]) Renderer {
	return RendererFunc(func(ctx context.Context, c *Context, raw taskspec.Spec) (Outcome, error) {
		resolved, err := c.Resolve(raw)
		if err != nil {
			return Outcome{}, fmt.Errorf("Failed to parse task spec: %v", err)
		}
		var spec S
		if err := resolved.Decode(&spec); err != nil {
			return Outcome{}, fmt.Errorf("Failed to parse task spec: %v", err)
		}
		var state T
		c.PriorState(&state)

		ts, err := fn(ctx, c, state, spec)
		if err != nil {
			return Outcome{}, err
		}
		return encode(ts)
	})
}

// Kinds maps task kinds to renderers.
type Kinds struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewKinds creates an empty kind registry.
func NewKinds() *Kinds {
	return &Kinds{renderers: make(map[string]Renderer)}
}

// Register binds kind to r, replacing any previous binding.
func (k *Kinds) Register(kind string, r Renderer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.renderers[kind] = r
}

// Lookup returns the renderer bound to kind.
func (k *Kinds) Lookup(kind string) (Renderer, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	r, ok := k.renderers[kind]
	return r, ok
}

// Names returns the registered kinds in order.
func (k *Kinds) Names() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	names := make([]string, 0, len(k.renderers))
	for name := range k.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
