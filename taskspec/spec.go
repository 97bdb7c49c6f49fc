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

// Package taskspec implements the JSON value tree shared by cassette tasks:
// the opaque spec of a task, the persisted output of a task, and the tree of
// all persisted outputs keyed by task name.
//
// A Spec is immutable. Every mutation returns a new Spec, so holders of an
// older value never observe a change.
package taskspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	emptyObject = []byte("{}")
	nullValue   = []byte("null")
)

// ErrInvalidJSON is returned when a Spec is built from malformed JSON.
var ErrInvalidJSON = errors.New("invalid json")

// Spec is an immutable JSON value. The zero value is an empty object.
type Spec struct {
	raw []byte
}

// Parse builds a Spec from raw JSON. Blank input yields the empty object.
func Parse(raw []byte) (Spec, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Spec{}, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return Spec{}, fmt.Errorf("%w: %.64q", ErrInvalidJSON, trimmed)
	}
	return Spec{raw: append([]byte(nil), trimmed...)}, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(raw string) Spec {
	s, err := Parse([]byte(raw))
	if err != nil {
		panic(err)
	}
	return s
}

// From encodes v as a Spec.
func From(v any) (Spec, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Spec{}, err
	}
	return Spec{raw: raw}, nil
}

// Null returns the JSON null value.
func Null() Spec {
	return Spec{raw: nullValue}
}

// Raw returns a copy of the encoded value.
func (s Spec) Raw() json.RawMessage {
	return append(json.RawMessage(nil), s.bytes()...)
}

func (s Spec) bytes() []byte {
	if len(s.raw) == 0 {
		return emptyObject
	}
	return s.raw
}

// String returns the encoded value.
func (s Spec) String() string {
	return string(s.bytes())
}

// IsNull reports whether the value is JSON null.
func (s Spec) IsNull() bool {
	return gjson.ParseBytes(s.bytes()).Type == gjson.Null
}

// MarshalJSON implements json.Marshaler.
func (s Spec) MarshalJSON() ([]byte, error) {
	return s.Raw(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Object key order is kept.
func (s *Spec) UnmarshalJSON(raw []byte) error {
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Decode unmarshals the value into out.
func (s Spec) Decode(out any) error {
	return json.Unmarshal(s.bytes(), out)
}

// Get returns the value addressed by key. "" and "/" address the whole tree.
func (s Spec) Get(key string) (json.RawMessage, error) {
	value, ok := s.TryGet(key)
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return value, nil
}

// TryGet is like Get but reports absence instead of failing. Malformed
// pointers are absent.
func (s Spec) TryGet(key string) (json.RawMessage, bool) {
	if key == "" || key == "/" {
		return s.Raw(), true
	}
	ptr, err := ParsePointer(key)
	if err != nil {
		return nil, false
	}
	value, ok := ptr.lookup(s.bytes())
	if !ok {
		return nil, false
	}
	return json.RawMessage(value.Raw), true
}

// Child returns the top-level entry stored under name.
func (s Spec) Child(name string) (Spec, bool) {
	value, ok := Pointer{tokens: []string{name}}.lookup(s.bytes())
	if !ok {
		return Spec{}, false
	}
	return Spec{raw: []byte(value.Raw)}, true
}

// SetChild stores value under the top-level key name and reports whether the
// tree changed. A null tree becomes a single-entry object. Structurally equal
// values leave the tree untouched, and so does a tree that is neither null nor
// an object.
func (s Spec) SetChild(name string, value Spec) (Spec, bool) {
	root := gjson.ParseBytes(s.bytes())
	var base []byte
	switch {
	case root.Type == gjson.Null:
		base = []byte("{}")
	case root.IsObject():
		if old, ok := s.Child(name); ok && old.Equal(value) {
			return s, false
		}
		base = append([]byte(nil), s.bytes()...)
	default:
		return s, false
	}
	out, err := sjson.SetRawBytes(base, escapePath(name), value.bytes())
	if err != nil {
		return s, false
	}
	return Spec{raw: out}, true
}

// Equal reports structural equality. Object key order is irrelevant and
// numbers compare by their literal text.
func (s Spec) Equal(other Spec) bool {
	a, errA := decodeAny(s.bytes())
	b, errB := decodeAny(other.bytes())
	if errA != nil || errB != nil {
		return bytes.Equal(s.bytes(), other.bytes())
	}
	return cmp.Equal(a, b)
}

func decodeAny(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// escapePath turns a plain object key into an sjson path segment.
func escapePath(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
