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

package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// defaultTimeout bounds non-streaming requests made with the default client.
const defaultTimeout = 30 * time.Second

// Request describes one HTTP call.
type Request struct {
	// Method is GET when empty.
	Method string
	// Name appears in error messages, e.g. "Failed to fetch the <Name>".
	Name string
	// BaseURL overrides the client base URL when set.
	BaseURL string
	Path    string
	Query   url.Values
	// Body is JSON-encoded when non-nil.
	Body   any
	Header http.Header
}

// ResponseError is returned for responses with an error status.
type ResponseError struct {
	Status  int
	Message string
}

// Error implements error.
func (e *ResponseError) Error() string {
	return e.Message
}

// Client issues the HTTP calls of fetch operations.
type Client struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(client *Client) {
		client.header.Add(key, value)
	}
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		header:     make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes the JSON response into out.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	rsp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return fmt.Errorf("Failed to fetch the %s: %w", req.Name, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("Failed to parse the %s: %w", req.Name, err)
	}
	return nil
}

// Open sends req and returns the response body for streaming. The caller
// closes it.
func (c *Client) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	rsp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if rsp.Body == nil {
		return nil, fmt.Errorf("Empty body: %s", req.Name)
	}
	return rsp.Body, nil
}

// send performs the round trip and converts error statuses into errors. On
// success the caller owns the response body.
func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	rsp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch the %s: %w", req.Name, err)
	}
	if rsp.StatusCode >= 200 && rsp.StatusCode < 400 {
		return rsp, nil
	}
	defer rsp.Body.Close()
	body, _ := io.ReadAll(rsp.Body)
	return nil, &ResponseError{Status: rsp.StatusCode, Message: errorMessage(body)}
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolve(req)
	if err != nil {
		return nil, fmt.Errorf("Failed to build the request %s: %w", req.Name, err)
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("Failed to encode the body %s: %w", req.Name, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("Failed to build the request %s: %w", req.Name, err)
	}
	for key, values := range c.header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	return httpReq, nil
}

func (c *Client) resolve(req Request) (string, error) {
	base := req.BaseURL
	if base == "" {
		base = c.baseURL
	}
	path := req.Path
	target := path
	if !strings.Contains(path, "://") {
		switch {
		case base == "":
		case path == "":
			target = base
		default:
			target = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
		}
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// errorMessage turns an error response body into a message: empty bodies are
// "No Response", gateway envelopes yield their message, anything else is the
// literal body text.
func errorMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "No Response"
	}
	if gjson.Valid(text) {
		envelope := gjson.Parse(text)
		if envelope.Get("result").String() == "err" {
			if msg := envelope.Get("spec"); msg.Type == gjson.String {
				return msg.String()
			}
		}
	}
	return text
}

// Call returns an Op that sends req through c and decodes a T.
func Call[T any](c *Client, req Request) Op[T] {
	return func(ctx context.Context) (T, error) {
		var out T
		err := c.Do(ctx, req, &out)
		return out, err
	}
}
