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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	data := MustParse(`{"query":{"items":[1,2,3],"name":"alice"},"flag":true}`)

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{
			name:  "data reference",
			value: `{"who":":/query/name"}`,
			want:  `{"who":"alice"}`,
		},
		{
			name:  "sibling reference",
			value: `{"base":"x","copy":"~/base"}`,
			want:  `{"base":"x","copy":"x"}`,
		},
		{
			name:  "structured value",
			value: `{"items":":/query/items"}`,
			want:  `{"items":[1,2,3]}`,
		},
		{
			name:  "missing path becomes null",
			value: `{"a":":/nope","b":"~/nope"}`,
			want:  `{"a":null,"b":null}`,
		},
		{
			name:  "escaped prefixes",
			value: `{"a":"\\:/query","b":"\\~/base"}`,
			want:  `{"a":":/query","b":"~/base"}`,
		},
		{
			name:  "nested arrays and objects",
			value: `[{"f":":/flag"},[":/query/items/0"],"plain",3,null,false]`,
			want:  `[{"f":true},[1],"plain",3,null,false]`,
		},
		{
			name:  "prefix must be followed by slash",
			value: `{"a":":query","b":"~","c":":"}`,
			want:  `{"a":":query","b":"~","c":":"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := MustParse(tt.value)
			got, err := Resolve(value, data, value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got.String())
		})
	}
}

func TestResolvePreservesKeyOrder(t *testing.T) {
	value := MustParse(`{"z":":/a","m":1,"a":{"y":"~/m","b":2}}`)
	got, err := Resolve(value, MustParse(`{"a":"A"}`), value)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"A","m":1,"a":{"y":1,"b":2}}`, got.String())
}

func TestResolveIsDeterministicAndIdentityWithoutReferences(t *testing.T) {
	data := MustParse(`{"a":{"b":"c"}}`)
	values := []string{
		`{"plain":"text","n":1.5,"list":[true,null,{"k":"v"}],"html":"<b>&</b>"}`,
		`"just a string"`,
		`12`,
		`[]`,
	}
	for _, raw := range values {
		value := MustParse(raw)
		first, err := Resolve(value, data, value)
		require.NoError(t, err)
		second, err := Resolve(value, data, value)
		require.NoError(t, err)
		assert.Equal(t, first.String(), second.String())
		assert.True(t, first.Equal(value), "identity for %s, got %s", raw, first.String())
	}
}

func TestResolveWithNilLookups(t *testing.T) {
	got, err := Resolve(MustParse(`{"a":":/x","b":"~/y"}`), nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":null}`, got.String())
}
