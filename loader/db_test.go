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

package loader

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/taskspec"
)

func componentDoc(name, ns string) cassette.Document {
	return cassette.Document{
		Kind:     cassette.KindComponent,
		Metadata: cassette.ObjectMeta{Name: name, Namespace: ns},
		Component: &cassette.ComponentSpec{Tasks: []cassette.Task{
			{Name: "hello", Kind: "Text", Spec: taskspec.MustParse(`{"msg":"hi"}`)},
		}},
	}
}

func cassetteDoc(name, ns, component string) cassette.Document {
	group := "demo"
	return cassette.Document{
		Kind:     cassette.KindCassette,
		Metadata: cassette.ObjectMeta{Name: name, Namespace: ns},
		Cassette: &cassette.CassetteResourceSpec{Component: component, Group: &group},
	}
}

func TestNameUID(t *testing.T) {
	a := NameUID("hello-world")
	assert.Equal(t, a, NameUID("hello-world"))
	assert.NotEqual(t, a, NameUID("hello-world-2"))

	assert.Equal(t, uuid.Version(5), a.Version())
	assert.Equal(t, uuid.RFC4122, a.Variant())
}

func TestEnsureUIDKeepsExisting(t *testing.T) {
	id := uuid.New().String()
	meta := cassette.ObjectMeta{Name: "x", UID: id}
	EnsureUID(&meta)
	assert.Equal(t, id, meta.UID)

	meta = cassette.ObjectMeta{Name: "x"}
	EnsureUID(&meta)
	assert.Equal(t, NameUID("x").String(), meta.UID)
}

func TestGetJoinsComponentByName(t *testing.T) {
	db := New()
	require.NoError(t, db.Load([]cassette.Document{
		componentDoc("greeter", ""),
		cassetteDoc("hello", "", "greeter"),
		cassetteDoc("orphan", "", "missing"),
	}))

	got, ok := db.Get(DefaultNamespace, NameUID("hello"))
	require.True(t, ok)
	assert.Equal(t, "hello", got.Name)
	assert.Equal(t, "demo", *got.Group)
	require.Len(t, got.Component.Tasks, 1)
	assert.Equal(t, "hello", got.Component.Tasks[0].Name)

	_, ok = db.Get(DefaultNamespace, NameUID("orphan"))
	assert.False(t, ok)
	_, ok = db.Get("other", NameUID("hello"))
	assert.False(t, ok)

	refs := db.List(DefaultNamespace)
	require.Len(t, refs, 1)
	assert.Equal(t, NameUID("hello"), refs[0].ID)
	assert.Equal(t, NameUID("greeter"), refs[0].Component)
}

func TestNamespacesAreIsolated(t *testing.T) {
	db := New(WithDefaultNamespace(ExamplesNamespace))
	require.NoError(t, db.Load([]cassette.Document{
		componentDoc("greeter", ""),
		cassetteDoc("hello", "", "greeter"),
		cassetteDoc("hello-team", "team", "greeter"),
	}))
	assert.Len(t, db.List(ExamplesNamespace), 1)
	assert.Empty(t, db.List("team"))
	assert.Equal(t, []string{ExamplesNamespace, "team"}, db.Namespaces())
}

func TestListIsSortedByID(t *testing.T) {
	db := New()
	docs := []cassette.Document{componentDoc("c", "")}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		docs = append(docs, cassetteDoc(name, "", "c"))
	}
	require.NoError(t, db.Load(docs))
	refs := db.List(DefaultNamespace)
	require.Len(t, refs, 5)
	for i := 1; i < len(refs); i++ {
		assert.Negative(t, compareIDs(refs[i-1].ID, refs[i].ID))
	}
}

func compareIDs(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return 0
}

func TestRemove(t *testing.T) {
	db := New()
	component := componentDoc("greeter", "")
	hello := cassetteDoc("hello", "", "greeter")
	require.NoError(t, db.Load([]cassette.Document{component, hello}))

	EnsureUID(&component.Metadata)
	require.NoError(t, db.Remove(component))
	_, ok := db.Get(DefaultNamespace, NameUID("hello"))
	assert.False(t, ok)
	assert.Empty(t, db.List(DefaultNamespace))

	EnsureUID(&hello.Metadata)
	require.NoError(t, db.Remove(hello))
	assert.Empty(t, db.Namespaces())
	require.NoError(t, db.Remove(hello))
}

func TestInsertRejectsBadDocuments(t *testing.T) {
	db := New()
	doc := cassetteDoc("x", "", "c")
	doc.Metadata.UID = "not-a-uuid"
	assert.ErrorIs(t, db.Insert(doc), ErrInvalidUID)

	bad := componentDoc("dup", "")
	bad.Component.Tasks = append(bad.Component.Tasks, bad.Component.Tasks[0])
	EnsureUID(&bad.Metadata)
	assert.ErrorIs(t, db.Insert(bad), cassette.ErrDuplicateTask)

	err := db.Load([]cassette.Document{bad, componentDoc("ok", "")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dup")
}
