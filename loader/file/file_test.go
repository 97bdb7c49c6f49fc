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

package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/loader"
)

const helloYAML = `---
apiVersion: cassette.ulagbulag.io/v1alpha1
kind: CassetteComponent
metadata:
  name: hello-world
spec:
  tasks:
    - name: text
      kind: Text
      spec:
        msg: "# Hello"
        progress: false
        zeta: 1
        alpha: [1, two, true, null]
---
# empty documents are skipped
---
apiVersion: cassette.ulagbulag.io/v1alpha1
kind: Cassette
metadata:
  name: hello-world
spec:
  component: hello-world
  group: Examples
  priority: 3
`

func TestParseKeepsOrder(t *testing.T) {
	docs, err := Parse(strings.NewReader(helloYAML))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, cassette.KindComponent, docs[0].Kind)
	require.Len(t, docs[0].Component.Tasks, 1)
	task := docs[0].Component.Tasks[0]
	assert.Equal(t, cassette.ColumnCurrent, task.Metadata.Column)
	assert.Equal(t, `{"msg":"# Hello","progress":false,"zeta":1,"alpha":[1,"two",true,null]}`, task.Spec.String())

	assert.Equal(t, cassette.KindCassette, docs[1].Kind)
	assert.Equal(t, "hello-world", docs[1].Cassette.Component)
	assert.Equal(t, uint32(3), *docs[1].Cassette.Priority)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("kind: Unknown\nmetadata: {name: x}\n"))
	assert.ErrorContains(t, err, `unknown document kind "Unknown"`)

	_, err = Parse(strings.NewReader("kind: [unterminated\n"))
	assert.Error(t, err)
}

func TestToJSONAliases(t *testing.T) {
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("base: &b {x: 1}\ncopy: *b\n"), &node))
	raw, err := ToJSON(&node)
	require.NoError(t, err)
	assert.Equal(t, `{"base":{"x":1},"copy":{"x":1}}`, string(raw))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.yaml"), []byte(helloYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	db := loader.New()
	require.NoError(t, Load(db, dir))
	refs := db.List(loader.DefaultNamespace)
	require.Len(t, refs, 1)
	assert.Equal(t, loader.NameUID("hello-world"), refs[0].ID)
	assert.Equal(t, "Examples", *refs[0].Group)

	assert.Error(t, Load(db, filepath.Join(dir, "missing.yaml")))
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.yaml")
	require.NoError(t, os.WriteFile(path, []byte(helloYAML), 0o644))

	reloaded := make(chan error, 8)
	db := loader.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := Watch(ctx, db, dir, WithDebounce(20*time.Millisecond), WithOnReload(func(err error) {
		reloaded <- err
	}))
	require.NoError(t, err)
	defer w.Close()
	require.Len(t, db.List(loader.DefaultNamespace), 1)

	renamed := strings.ReplaceAll(helloYAML, "name: hello-world\nspec:\n  component", "name: hello-again\nspec:\n  component")
	require.NoError(t, os.WriteFile(path, []byte(renamed), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-reloaded:
		case <-deadline:
			t.Fatal("no reload")
		}
		refs := db.List(loader.DefaultNamespace)
		if len(refs) == 1 && refs[0].Name == "hello-again" {
			return
		}
	}
}
