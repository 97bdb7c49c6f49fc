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

package session

import (
	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/stream"
)

const (
	// DefaultWorkers is the default size of the worker pool.
	DefaultWorkers = 64
	// DefaultMaxPasses bounds the passes run to settle one event.
	DefaultMaxPasses = 16
	// DefaultQueueSize is the default capacity of the event queues.
	DefaultQueueSize = 64
)

type options struct {
	id        string
	workers   int
	maxPasses int
	queueSize int
	namespace string
	client    *fetch.Client
	stream    []stream.Option
}

func newOptions(opts ...Option) options {
	o := options{
		workers:   DefaultWorkers,
		maxPasses: DefaultMaxPasses,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	return o
}

// Option configures a Session.
type Option func(*options)

// WithID sets the session id. A random id is used by default.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithWorkers sets the number of concurrent fetch workers.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithMaxPasses bounds the render passes run after a single event.
func WithMaxPasses(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPasses = n
		}
	}
}

// WithQueueSize sets the capacity of the completion and action queues.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithNamespace sets the cassette namespace exposed to renderers.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithClient sets the HTTP client used by renderers.
func WithClient(c *fetch.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithStreamOptions sets the options applied to streamed chat requests.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(o *options) {
		o.stream = append(o.stream, opts...)
	}
}
