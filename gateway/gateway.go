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

// Package gateway is a client for the cassette source HTTP API.
//
// Every response is wrapped in an envelope:
//
//	{"result": "ok", "spec": <value>}
//	{"result": "err", "spec": "<message>"}
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/fetch"
)

// Envelope results.
const (
	ResultOK  = "ok"
	ResultErr = "err"
)

// Health is the body of a healthy gateway.
const Health = "healthy"

// ErrNotFound is returned when the gateway knows no such cassette.
var ErrNotFound = errors.New("cassette not found")

// Envelope is the wire form of every gateway answer.
type Envelope struct {
	Result string          `json:"result"`
	Spec   json.RawMessage `json:"spec"`
}

// OK wraps v in a successful envelope.
func OK(v any) (Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Result: ResultOK, Spec: raw}, nil
}

// Err wraps msg in a failed envelope.
func Err(msg string) Envelope {
	raw, _ := json.Marshal(msg)
	return Envelope{Result: ResultErr, Spec: raw}
}

// Decode unpacks the envelope into out. A failed envelope becomes an error
// carrying its message.
func (e Envelope) Decode(out any) error {
	switch e.Result {
	case ResultOK:
		if len(e.Spec) == 0 {
			return nil
		}
		return json.Unmarshal(e.Spec, out)
	case ResultErr:
		var msg string
		if err := json.Unmarshal(e.Spec, &msg); err != nil {
			msg = string(e.Spec)
		}
		return errors.New(msg)
	default:
		return fmt.Errorf("unknown result %q", e.Result)
	}
}

// Client talks to one gateway.
type Client struct {
	http      *fetch.Client
	namespace string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	namespace string
	fetchOpts []fetch.ClientOption
}

// WithNamespace sets the namespace used when a call passes none.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithClientOptions passes options to the underlying HTTP client.
func WithClientOptions(opts ...fetch.ClientOption) Option {
	return func(o *options) {
		o.fetchOpts = append(o.fetchOpts, opts...)
	}
}

// New creates a client for the gateway at baseURL.
func New(baseURL string, opts ...Option) *Client {
	o := options{namespace: "default"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		http:      fetch.NewClient(baseURL, o.fetchOpts...),
		namespace: o.namespace,
	}
}

// HTTP returns the underlying HTTP client.
func (c *Client) HTTP() *fetch.Client {
	return c.http
}

// Namespace returns the default namespace.
func (c *Client) Namespace() string {
	return c.namespace
}

func (c *Client) ns(ns string) string {
	if ns == "" {
		return c.namespace
	}
	return ns
}

// Health returns the gateway status text.
func (c *Client) Health(ctx context.Context) (string, error) {
	var status string
	err := c.http.Do(ctx, fetch.Request{Method: http.MethodGet, Name: "gateway health", Path: "/_health"}, &status)
	return status, err
}

// Get returns the cassette id in namespace ns.
func (c *Client) Get(ctx context.Context, ns string, id uuid.UUID) (*cassette.Cassette, error) {
	var out *cassette.Cassette
	path := fmt.Sprintf("/c/%s/%s", url.PathEscape(c.ns(ns)), id)
	if err := c.call(ctx, "get", path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return out, nil
}

// List returns the cassettes of namespace ns.
func (c *Client) List(ctx context.Context, ns string) ([]cassette.Ref, error) {
	var out []cassette.Ref
	path := fmt.Sprintf("/c/%s", url.PathEscape(c.ns(ns)))
	if err := c.call(ctx, "list", path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, name, path string, out any) error {
	var env Envelope
	if err := c.http.Do(ctx, fetch.Request{Method: http.MethodGet, Name: name, Path: path}, &env); err != nil {
		return err
	}
	if err := env.Decode(out); err != nil {
		return fmt.Errorf("Failed to parse the %s: %w", name, err)
	}
	return nil
}
