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

package stream

import (
	"bytes"
	"errors"
	"fmt"
)

// Delimiter starts every frame.
const Delimiter = "\n\ndata: "

// Done is the payload of the end-of-stream frame.
const Done = "[DONE]"

// ErrProtocol reports bytes that do not follow the framing.
var ErrProtocol = errors.New("stream protocol error")

var delimiter = []byte(Delimiter)

// Framer splits a byte stream into frame payloads. A frame is only complete
// once the next delimiter has arrived, so chunks may split frames and
// delimiters anywhere.
type Framer struct {
	buf     []byte
	started bool
}

// NewFramer returns a framer primed with a blank line, so a stream whose
// first frame begins with "data: " is framed like every later one.
func NewFramer() *Framer {
	return &Framer{buf: []byte("\n\n")}
}

// Feed appends chunk and returns the payloads of every complete frame.
func (f *Framer) Feed(chunk []byte) ([][]byte, error) {
	f.buf = append(f.buf, chunk...)

	var frames [][]byte
	for {
		start := bytes.Index(f.buf, delimiter)
		if start < 0 {
			return frames, nil
		}
		if err := f.checkLead(f.buf[:start]); err != nil {
			return frames, err
		}
		next := bytes.Index(f.buf[start+len(delimiter):], delimiter)
		if next < 0 {
			f.buf = f.buf[start:]
			return frames, nil
		}
		end := start + len(delimiter) + next
		frames = append(frames, payload(f.buf[start+len(delimiter):end]))
		f.buf = f.buf[end:]
	}
}

// Rest returns the payload of the final buffered frame, or nil when nothing
// but whitespace is left.
func (f *Framer) Rest() ([]byte, error) {
	rest := f.buf
	f.buf = nil
	if len(bytes.TrimSpace(rest)) == 0 {
		return nil, nil
	}
	if !bytes.HasPrefix(rest, delimiter) {
		return nil, fmt.Errorf("%w: unexpected opcode %.32q", ErrProtocol, bytes.TrimSpace(rest))
	}
	return payload(rest[len(delimiter):]), nil
}

// checkLead rejects non-blank bytes ahead of the first delimiter.
func (f *Framer) checkLead(lead []byte) error {
	if f.started {
		return nil
	}
	f.started = true
	if len(bytes.TrimSpace(lead)) != 0 {
		return fmt.Errorf("%w: unexpected opcode %.32q", ErrProtocol, bytes.TrimSpace(lead))
	}
	return nil
}

func payload(b []byte) []byte {
	return append([]byte(nil), bytes.TrimSpace(b)...)
}
