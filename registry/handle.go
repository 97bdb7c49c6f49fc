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

package registry

// Handle is a typed view of one handler. Get returns the value the handle was
// obtained with; Latest follows later writes.
type Handle[T any] struct {
	r       *Registry
	key     Key
	version uint64
	value   T
}

// Key returns the handler key.
func (h *Handle[T]) Key() Key {
	return h.key
}

// Version returns the version the handle was obtained with.
func (h *Handle[T]) Version() uint64 {
	return h.version
}

// Get returns the value the handle was obtained with.
func (h *Handle[T]) Get() T {
	return h.value
}

// Latest returns the value currently stored under the key. If the key now
// holds another type the handle's own value is returned.
func (h *Handle[T]) Latest() T {
	value, _, ok := h.r.latest(h.key)
	if !ok {
		return h.value
	}
	v, ok := value.(T)
	if !ok {
		return h.value
	}
	return v
}

// Current reports whether no write happened since the handle was obtained.
func (h *Handle[T]) Current() bool {
	_, version, ok := h.r.latest(h.key)
	return ok && version == h.version
}

// Set stores v and triggers a render.
func (h *Handle[T]) Set(v T) {
	h.r.store(h.key, v, true)
}

// Equal reports whether both handles view the same write of the same key.
func (h *Handle[T]) Equal(other *Handle[T]) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.key == other.key && h.version == other.version
}

// Lazy returns a view whose writes do not trigger a render by themselves.
func (h *Handle[T]) Lazy() *LazyHandle[T] {
	return &LazyHandle[T]{h: h}
}

// LazyHandle batches writes until Trigger is called.
type LazyHandle[T any] struct {
	h *Handle[T]
}

// Get returns the value the underlying handle was obtained with.
func (l *LazyHandle[T]) Get() T {
	return l.h.Get()
}

// Latest returns the value currently stored under the key.
func (l *LazyHandle[T]) Latest() T {
	return l.h.Latest()
}

// Set stores v without triggering a render.
func (l *LazyHandle[T]) Set(v T) {
	l.h.r.store(l.h.key, v, false)
}

// Trigger asks for a render.
func (l *LazyHandle[T]) Trigger() {
	l.h.r.trigger(l.h.key)
}

// Item returns element i of a slice handler.
func Item[T any](h *Handle[[]T], i int) (T, bool) {
	items := h.Latest()
	if i < 0 || i >= len(items) {
		var zero T
		return zero, false
	}
	return items[i], true
}

// SetItem replaces element i of a slice handler. Out of range indexes are
// ignored. The stored slice is never modified in place.
func SetItem[T any](h *Handle[[]T], i int, v T) {
	items := h.Latest()
	if i < 0 || i >= len(items) {
		return
	}
	next := append([]T(nil), items...)
	next[i] = v
	h.Set(next)
}

// SetAll replaces every element of a slice handler with v.
func SetAll[T any](h *Handle[[]T], v T) {
	items := h.Latest()
	next := make([]T, len(items))
	for i := range next {
		next[i] = v
	}
	h.Set(next)
}
