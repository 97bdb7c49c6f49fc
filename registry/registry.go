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

// Package registry stores the handler values of a render session. Each value
// lives under a (task, handler) key and survives re-renders until it is
// re-initialized or replaced. Every write stamps the value with a new
// version, and handles compare by key and version.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-cassette-go/log"
)

var (
	// ErrNotFound is returned when no handler exists for a key.
	ErrNotFound = errors.New("handler not found")
	// ErrTypeMismatch is returned when a value does not match the stored type.
	ErrTypeMismatch = errors.New("handler type mismatch")
)

// Key identifies one handler.
type Key struct {
	Task    string
	Handler string
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return k.Task + "/" + k.Handler
}

type entry struct {
	value   any
	version uint64
}

// Registry holds the handler values of one render session. It is safe for
// concurrent use, although a session only mutates it from its loop.
type Registry struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	version   uint64
	dirty     bool
	onTrigger func(Key)
}

// Option configures a Registry.
type Option func(*Registry)

// WithOnTrigger registers a callback invoked after every triggering write.
func WithOnTrigger(fn func(Key)) Option {
	return func(r *Registry) {
		r.onTrigger = fn
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{entries: make(map[Key]*entry)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnTrigger replaces the trigger callback.
func (r *Registry) OnTrigger(fn func(Key)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTrigger = fn
}

// Version returns the number of writes made so far.
func (r *Registry) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// Dirty reports whether a write asked for a new render since the last
// TakeDirty.
func (r *Registry) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// TakeDirty returns the dirty flag and clears it.
func (r *Registry) TakeDirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	dirty := r.dirty
	r.dirty = false
	return dirty
}

// Keys returns every key in task then handler order.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]Key, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Task != keys[j].Task {
			return keys[i].Task < keys[j].Task
		}
		return keys[i].Handler < keys[j].Handler
	})
	return keys
}

// Value returns the current value stored under key.
func (r *Registry) Value(key Key) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// UseOption configures Use.
type UseOption func(*useOptions)

type useOptions struct {
	quiet bool
}

// Quiet creates the handler without asking for a new render.
func Quiet() UseOption {
	return func(o *useOptions) {
		o.quiet = true
	}
}

// Use returns the handler stored under key, creating it with create when it is
// absent or forceInit is set. Creation marks the registry dirty unless Quiet
// is given; returning an existing handler does not. A stored value of another
// type is a programming error and panics.
func Use[T any](r *Registry, key Key, forceInit bool, create func() T, opts ...UseOption) *Handle[T] {
	var o useOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if forceInit || !ok {
		value := create()
		r.mu.Lock()
		r.version++
		e = &entry{value: value, version: r.version}
		r.entries[key] = e
		if !o.quiet {
			r.dirty = true
		}
		r.mu.Unlock()
		log.Debugf("registry: created handler %s (version %d)", key, e.version)
	}
	value, ok := e.value.(T)
	if !ok {
		panic(fmt.Sprintf("cannot get a handler with heterogeneous types: %q/%q (stored %T, requested %s)",
			key.Task, key.Handler, e.value, reflect.TypeOf((*T)(nil)).Elem()))
	}
	return &Handle[T]{r: r, key: key, version: e.version, value: value}
}

// Replace stores v under an existing key and triggers a render.
func Replace[T any](r *Registry, key Key, v T) error {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if _, ok := e.value.(T); !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, key, e.value)
	}
	r.mu.Unlock()
	r.store(key, v, true)
	return nil
}

// Decode replaces the value under an existing key with raw decoded into the
// stored value's type, and triggers a render.
func Decode(r *Registry, key Key, raw json.RawMessage) error {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	typ := reflect.TypeOf(e.value)
	r.mu.Unlock()
	if typ == nil {
		return fmt.Errorf("%w: %s holds nil", ErrTypeMismatch, key)
	}

	ptr := reflect.New(typ)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTypeMismatch, key, err)
	}
	r.store(key, ptr.Elem().Interface(), true)
	return nil
}

// store writes value under key with a new version. A triggering store marks
// the registry dirty and runs the trigger callback outside the lock.
func (r *Registry) store(key Key, value any, trigger bool) uint64 {
	r.mu.Lock()
	r.version++
	version := r.version
	r.entries[key] = &entry{value: value, version: version}
	if trigger {
		r.dirty = true
	}
	fn := r.onTrigger
	r.mu.Unlock()

	log.Debugf("registry: updated handler %s (version %d)", key, version)
	if trigger && fn != nil {
		fn(key)
	}
	return version
}

// trigger marks the registry dirty and runs the callback.
func (r *Registry) trigger(key Key) {
	r.mu.Lock()
	r.dirty = true
	fn := r.onTrigger
	r.mu.Unlock()
	if fn != nil {
		fn(key)
	}
}

func (r *Registry) latest(key Key) (any, uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, 0, false
	}
	return e.value, e.version, true
}
