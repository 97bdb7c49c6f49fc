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

// Package stream merges token-streamed chat completions into one text. Frames
// follow the "\n\ndata: <json>" format; responses cut off by the length limit
// are continued with a follow-up request seeded with the partial output.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/log"
)

const (
	// DefaultMaxContinuations bounds follow-up requests for one merge.
	DefaultMaxContinuations = 16
	// DefaultContinuePrompt is the user turn appended to a truncated request.
	DefaultContinuePrompt = "continue"

	readChunkSize = 4096
)

// Opener sends req and returns the streamed response body.
type Opener func(ctx context.Context, req Request) (io.ReadCloser, error)

// Option configures Merge.
type Option func(*options)

type options struct {
	maxContinuations int
	continuePrompt   string
}

// WithMaxContinuations bounds the number of follow-up requests. Zero means
// unbounded. When the bound is hit the merge completes with the text gathered
// so far.
func WithMaxContinuations(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxContinuations = n
		}
	}
}

// WithContinuePrompt sets the user turn appended to truncated requests.
func WithContinuePrompt(prompt string) Option {
	return func(o *options) {
		if prompt != "" {
			o.continuePrompt = prompt
		}
	}
}

// Collector accumulates the content of decoded frames.
type Collector struct {
	acc     strings.Builder
	finish  FinishReason
	choices int
	publish func(string)
}

// NewCollector starts from prefix. publish, if not nil, receives the whole
// accumulated text after every published frame.
func NewCollector(prefix string, publish func(string)) *Collector {
	c := &Collector{publish: publish}
	c.acc.WriteString(prefix)
	return c
}

// Frame decodes one frame payload and appends its first choice. Done frames
// are ignored. The accumulated text is published when update is set.
func (c *Collector) Frame(payload []byte, update bool) error {
	if len(payload) == 0 || bytes.Equal(payload, []byte(Done)) {
		return nil
	}
	var rsp Response
	if err := json.Unmarshal(payload, &rsp); err != nil {
		return fmt.Errorf("%w: invalid frame: %v", ErrProtocol, err)
	}
	if len(rsp.Choices) == 0 {
		return nil
	}
	choice := rsp.Choices[0]
	c.choices++
	c.acc.WriteString(choice.Content())
	c.finish = ""
	if choice.FinishReason != nil {
		c.finish = *choice.FinishReason
	}
	if update && c.publish != nil {
		c.publish(c.acc.String())
	}
	return nil
}

// Text returns the accumulated text.
func (c *Collector) Text() string {
	return c.acc.String()
}

// FinishReason returns the finish reason of the last decoded choice.
func (c *Collector) FinishReason() FinishReason {
	return c.finish
}

// Choices returns the number of decoded choices.
func (c *Collector) Choices() int {
	return c.choices
}

// Merge streams req through open and returns the complete text. Every
// published frame updates publish with the accumulated text. A response cut
// off by length is published, then continued with a new request carrying the
// partial output as an assistant turn.
func Merge(ctx context.Context, open Opener, req Request, publish func(string), opts ...Option) (string, error) {
	o := options{
		maxContinuations: DefaultMaxContinuations,
		continuePrompt:   DefaultContinuePrompt,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if publish == nil {
		publish = func(string) {}
	}

	var acc string
	for continuation := 0; ; continuation++ {
		collector, err := collect(ctx, open, req, acc, publish)
		if err != nil {
			return "", err
		}
		segment := strings.TrimPrefix(collector.Text(), acc)
		acc = collector.Text()

		if !collector.FinishReason().Truncated() {
			return acc, nil
		}
		if o.maxContinuations > 0 && continuation >= o.maxContinuations {
			log.Warnf("stream: response still truncated after %d continuations, completing with %d bytes",
				continuation, len(acc))
			return acc, nil
		}
		publish(acc)
		req = req.continued(segment, o.continuePrompt)
	}
}

func collect(ctx context.Context, open Opener, req Request, prefix string, publish func(string)) (*Collector, error) {
	body, err := open(ctx, req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	framer := NewFramer()
	collector := NewCollector(prefix, publish)
	buf := make([]byte, readChunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			frames, err := framer.Feed(buf[:n])
			for _, frame := range frames {
				if ferr := collector.Frame(frame, true); ferr != nil {
					return nil, ferr
				}
			}
			if err != nil {
				return nil, err
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("stream: read: %w", readErr)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	rest, err := framer.Rest()
	if err != nil {
		return nil, err
	}
	if err := collector.Frame(rest, false); err != nil {
		return nil, err
	}
	if collector.Choices() == 0 {
		return nil, fmt.Errorf("%w: empty stream", ErrProtocol)
	}
	return collector, nil
}

// ClientOpener opens chat completions through client with a POST to path.
// A non-empty baseURL overrides the client base URL.
func ClientOpener(client *fetch.Client, baseURL, name, path string) Opener {
	return func(ctx context.Context, req Request) (io.ReadCloser, error) {
		return client.Open(ctx, fetch.Request{
			Method:  http.MethodPost,
			Name:    name,
			BaseURL: baseURL,
			Path:    path,
			Body:    req,
		})
	}
}

// Op adapts Merge to a streamed fetch operation.
func Op(open Opener, req Request, opts ...Option) fetch.StreamOp[string] {
	return func(ctx context.Context, update func(string)) (string, error) {
		return Merge(ctx, open, req, update, opts...)
	}
}
