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

package taskspec

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Reference prefixes recognized by Resolve inside string leaves.
const (
	// PrefixData addresses the shared tree of persisted task outputs.
	PrefixData = ":/"
	// PrefixSibling addresses the spec currently being resolved.
	PrefixSibling = "~/"
	// Escape turns a reference back into a literal string.
	Escape = `\`
)

// Lookup resolves JSON pointers into a tree.
type Lookup interface {
	TryGet(ptr string) (json.RawMessage, bool)
}

// Resolve rewrites every string leaf of value that starts with ":/" or "~/"
// into the value found at the rest of the string, looked up in data or in
// sibling respectively. Absent paths become null. A leading backslash
// escapes the prefix and is stripped. Object key order is kept.
//
// Either lookup may be nil, in which case every reference into it is null.
func Resolve(value Spec, data, sibling Lookup) (Spec, error) {
	var buf bytes.Buffer
	resolveInto(&buf, gjson.ParseBytes(value.bytes()), data, sibling)
	return Parse(buf.Bytes())
}

func resolveInto(buf *bytes.Buffer, v gjson.Result, data, sibling Lookup) {
	switch {
	case v.IsObject():
		buf.WriteByte('{')
		first := true
		v.ForEach(func(key, item gjson.Result) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			buf.Write(encodeString(key.String()))
			buf.WriteByte(':')
			resolveInto(buf, item, data, sibling)
			return true
		})
		buf.WriteByte('}')
	case v.IsArray():
		buf.WriteByte('[')
		first := true
		v.ForEach(func(_, item gjson.Result) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			resolveInto(buf, item, data, sibling)
			return true
		})
		buf.WriteByte(']')
	case v.Type == gjson.String:
		buf.Write(substitute(v, data, sibling))
	default:
		buf.WriteString(v.Raw)
	}
}

func substitute(v gjson.Result, data, sibling Lookup) []byte {
	s := v.Str
	switch {
	case strings.HasPrefix(s, PrefixData):
		return lookupOrNull(data, s[1:])
	case strings.HasPrefix(s, PrefixSibling):
		return lookupOrNull(sibling, s[1:])
	case strings.HasPrefix(s, Escape+PrefixData), strings.HasPrefix(s, Escape+PrefixSibling):
		return encodeString(s[len(Escape):])
	default:
		return []byte(v.Raw)
	}
}

func lookupOrNull(l Lookup, ptr string) []byte {
	if l == nil {
		return nullValue
	}
	value, ok := l.TryGet(ptr)
	if !ok || len(value) == 0 {
		return nullValue
	}
	return value
}

func encodeString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
