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

package cassette

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskUnmarshalDefaults(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"name":"greet","kind":"Text"}`), &task))
	assert.Equal(t, ColumnCurrent, task.Metadata.Column)
	assert.Equal(t, "{}", task.Spec.String())

	require.NoError(t, json.Unmarshal([]byte(`{"name":"greet","kind":"Text","metadata":{"column":"New"},"spec":{"b":1,"a":2}}`), &task))
	assert.Equal(t, ColumnNew, task.Metadata.Column)
	assert.Equal(t, `{"b":1,"a":2}`, task.Spec.String())

	err := json.Unmarshal([]byte(`{"name":"greet","kind":"Text","metadata":{"column":"Side"}}`), &task)
	require.Error(t, err)
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr string
	}{
		{name: "ok", task: Task{Name: "load-items2", Kind: "Load"}},
		{name: "single char", task: Task{Name: "a", Kind: "T"}},
		{name: "uppercase name", task: Task{Name: "Load", Kind: "Load"}, wantErr: "must match"},
		{name: "leading digit", task: Task{Name: "1a", Kind: "Load"}, wantErr: "must match"},
		{name: "lowercase kind", task: Task{Name: "a", Kind: "load"}, wantErr: "must match"},
		{name: "empty name", task: Task{Kind: "Load"}, wantErr: "length"},
		{name: "long kind", task: Task{Name: "a", Kind: "K" + strings.Repeat("k", 253)}, wantErr: "length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestComponentValidateRejectsDuplicates(t *testing.T) {
	c := ComponentSpec{Tasks: []Task{
		{Name: "a", Kind: "Text"},
		{Name: "b", Kind: "Text"},
		{Name: "a", Kind: "Load"},
	}}
	err := c.Validate()
	require.ErrorIs(t, err, ErrDuplicateTask)
	assert.Contains(t, err.Error(), "tasks[2]")
}

func TestCassetteIdentity(t *testing.T) {
	id := uuid.New()
	a := &Cassette{ID: id, Name: "one"}
	b := &Cassette{ID: id, Name: "renamed"}
	assert.True(t, a.Equal(b))
	assert.Equal(t, "one", a.Title())

	low := &Cassette{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001")}
	high := &Cassette{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002")}
	assert.True(t, low.Less(high))
	assert.False(t, high.Less(low))

	refs := []Ref{{ID: high.ID}, {ID: low.ID}}
	SortRefs(refs)
	assert.Equal(t, low.ID, refs[0].ID)
}

func TestDocumentRoundTrip(t *testing.T) {
	raw := `[
		{"kind":"Cassette","metadata":{"name":"hello","namespace":"examples"},"spec":{"component":"hello","group":"Demo"}},
		{"kind":"CassetteComponent","metadata":{"name":"hello"},"spec":{"tasks":[{"name":"msg","kind":"Text","spec":{"msg":"hi"}}]}}
	]`
	var docs []Document
	require.NoError(t, json.Unmarshal([]byte(raw), &docs))
	require.Len(t, docs, 2)

	require.NotNil(t, docs[0].Cassette)
	assert.Equal(t, "hello", docs[0].Cassette.Component)
	assert.Equal(t, "Demo", *docs[0].Cassette.Group)
	assert.Equal(t, "examples", docs[0].Metadata.Namespace)

	require.NotNil(t, docs[1].Component)
	require.Len(t, docs[1].Component.Tasks, 1)
	assert.Equal(t, `{"msg":"hi"}`, docs[1].Component.Tasks[0].Spec.String())

	out, err := json.Marshal(docs[1])
	require.NoError(t, err)
	var again Document
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, KindComponent, again.Kind)
	assert.Equal(t, "msg", again.Component.Tasks[0].Name)
}

func TestDocumentUnknownKind(t *testing.T) {
	var doc Document
	err := json.Unmarshal([]byte(`{"kind":"Pod","metadata":{"name":"x"}}`), &doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown document kind "Pod"`)
}
