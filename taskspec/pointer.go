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
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"github.com/tidwall/gjson"
)

// Pointer is a parsed JSON pointer. The zero value addresses the whole tree.
type Pointer struct {
	tokens []string
}

// ParsePointer parses a JSON pointer. The empty string addresses the whole
// tree; any other path must start with "/". Each segment is unescaped with
// "~1" -> "/" and "~0" -> "~".
func ParsePointer(path string) (Pointer, error) {
	if path == "" {
		return Pointer{}, nil
	}
	p, err := jsonpointer.New(path)
	if err != nil {
		return Pointer{}, fmt.Errorf("invalid pointer %q: %w", path, err)
	}
	return Pointer{tokens: p.DecodedTokens()}, nil
}

// Tokens returns the decoded segments of the pointer.
func (p Pointer) Tokens() []string {
	return append([]string(nil), p.tokens...)
}

// IsRoot reports whether the pointer addresses the whole tree.
func (p Pointer) IsRoot() bool {
	return len(p.tokens) == 0
}

// String formats the pointer, escaping "~" and "/" inside segments.
func (p Pointer) String() string {
	var b strings.Builder
	for _, token := range p.tokens {
		b.WriteByte('/')
		b.WriteString(jsonpointer.Escape(token))
	}
	return b.String()
}

// Equal reports whether both pointers address the same location.
func (p Pointer) Equal(other Pointer) bool {
	if len(p.tokens) != len(other.tokens) {
		return false
	}
	for i := range p.tokens {
		if p.tokens[i] != other.tokens[i] {
			return false
		}
	}
	return true
}

// lookup walks the pointer through raw. Duplicate object keys resolve to the
// last occurrence.
func (p Pointer) lookup(raw []byte) (gjson.Result, bool) {
	cur := gjson.ParseBytes(raw)
	for _, token := range p.tokens {
		switch {
		case cur.IsObject():
			var (
				next  gjson.Result
				found bool
			)
			cur.ForEach(func(key, value gjson.Result) bool {
				if key.String() == token {
					next, found = value, true
				}
				return true
			})
			if !found {
				return gjson.Result{}, false
			}
			cur = next
		case cur.IsArray():
			idx, ok := arrayIndex(token)
			if !ok {
				return gjson.Result{}, false
			}
			items := cur.Array()
			if idx >= len(items) {
				return gjson.Result{}, false
			}
			cur = items[idx]
		default:
			return gjson.Result{}, false
		}
	}
	return cur, cur.Exists()
}

func arrayIndex(token string) (int, bool) {
	if token == "" || (len(token) > 1 && token[0] == '0') {
		return 0, false
	}
	for _, c := range token {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return idx, true
}
