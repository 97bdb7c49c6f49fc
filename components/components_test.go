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

package components

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/fetch/fetchtest"
	"trpc.group/trpc-go/trpc-cassette-go/registry"
	"trpc.group/trpc-go/trpc-cassette-go/render"
	"trpc.group/trpc-go/trpc-cassette-go/taskspec"
)

type harness struct {
	sched *fetchtest.Scheduler
	root  *render.Root
	seq   *render.Sequencer
	tasks []cassette.Task
}

func newHarness(baseURL string, tasks ...cassette.Task) *harness {
	sched := fetchtest.New()
	return &harness{
		sched: sched,
		root: render.NewRoot(render.Services{
			Scheduler: sched,
			Client:    fetch.NewClient(baseURL),
		}),
		seq:   render.NewSequencer(Kinds()),
		tasks: tasks,
	}
}

func (h *harness) run() render.Pass {
	return h.seq.Run(context.Background(), h.root, h.tasks)
}

func (h *harness) state(t *testing.T, task string) string {
	t.Helper()
	state, ok := h.root.Spec().Child(task)
	require.True(t, ok, "no state for %s", task)
	return state.String()
}

func newTask(name, kind, spec string) cassette.Task {
	return cassette.Task{Name: name, Kind: kind, Spec: taskspec.MustParse(spec)}
}

func TestKindsAreRegistered(t *testing.T) {
	assert.Equal(t, []string{"Load", "OpenAIChat", "Table", "Text", "TextInput", "Variable"}, Kinds().Names())
}

func TestText(t *testing.T) {
	h := newHarness("", newTask("intro", KindText, `{"msg":"**hi** there","progress":true}`))
	pass := h.run()
	require.Len(t, pass.Fragments, 1)
	f := pass.Fragments[0]
	assert.Equal(t, render.KindContent, f.Kind)
	assert.Equal(t, "**hi** there", f.Text)
	assert.Contains(t, f.HTML, "<strong>hi</strong>")
	assert.True(t, f.Progress)
	_, ok := h.root.Spec().Child("intro")
	assert.False(t, ok)
}

func TestTextRequiresMessageType(t *testing.T) {
	h := newHarness("", newTask("intro", KindText, `{"msg":42}`))
	pass := h.run()
	require.Len(t, pass.Fragments, 1)
	assert.Equal(t, render.KindAlert, pass.Fragments[0].Kind)
	assert.Contains(t, pass.Fragments[0].Text, "Failed to parse task spec: ")
}

func TestVariable(t *testing.T) {
	h := newHarness("",
		newTask("input", KindVariable, `{"name":"alice"}`),
		newTask("greeting", KindVariable, `{"who":":/input/name","raw":"\\:/input","self":"~/who"}`),
		newTask("shown", KindText, `{"msg":":/greeting/who"}`),
	)
	pass := h.run()
	require.Len(t, pass.Fragments, 1)
	assert.Equal(t, "alice", pass.Fragments[0].Text)
	assert.Equal(t, `{"name":"alice"}`, h.state(t, "input"))
	assert.JSONEq(t, `{"who":"alice","raw":":/input","self":":/input/name"}`, h.state(t, "greeting"))
}

func TestLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items", r.URL.Path)
		assert.Equal(t, "a=1&b=two", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[1,2]}`)
	}))
	defer srv.Close()

	h := newHarness("", newTask("load", KindLoad, `{"baseUrl":"`+srv.URL+`","uri":"/items","query":{"b":"two","a":"1"}}`))
	pass := h.run()
	require.Len(t, pass.Fragments, 1)
	assert.Equal(t, render.KindLoading, pass.Fragments[0].Kind)
	assert.Equal(t, "null", h.state(t, "load"))

	h.sched.Drain(context.Background())
	pass = h.run()
	assert.Empty(t, pass.Fragments)
	assert.False(t, pass.Halted)
	assert.JSONEq(t, `{"items":[1,2]}`, h.state(t, "load"))
	assert.Equal(t, []string{"fetch"}, h.sched.Spawned())
}

func TestLoadUsesClientBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"result":"err","spec":"no such cassette"}`)
	}))
	defer srv.Close()

	h := newHarness(srv.URL, newTask("load", KindLoad, `{"uri":"/c/default/x"}`))
	h.run()
	h.sched.Drain(context.Background())
	pass := h.run()
	require.Len(t, pass.Fragments, 1)
	assert.Equal(t, render.KindAlert, pass.Fragments[0].Kind)
	assert.Equal(t, "no such cassette", pass.Fragments[0].Text)
	assert.True(t, pass.Halted)
}

func TestTable(t *testing.T) {
	h := newHarness("",
		newTask("rows", KindTable, `{"table":{"name":"people","data":[{"name":"a"}]}}`),
		newTask("bad", KindTable, `{"table":{"name":"x","data":{"not":"rows"}}}`),
	)
	pass := h.run()
	require.Len(t, pass.Fragments, 2)
	assert.Equal(t, render.KindTable, pass.Fragments[0].Kind)
	assert.Equal(t, "people", pass.Fragments[0].Title)
	assert.JSONEq(t, `[{"name":"a"}]`, string(pass.Fragments[0].Data))
	assert.Equal(t, render.KindAlert, pass.Fragments[1].Kind)
}

func TestTextInput(t *testing.T) {
	h := newHarness("",
		newTask("ask", KindTextInput, `{"label":"Name","placeholder":"who?"}`),
		newTask("after", KindText, `{"msg":"hello"}`),
	)
	pass := h.run()
	require.Len(t, pass.Fragments, 1)
	in := pass.Fragments[0].Input
	require.NotNil(t, in)
	assert.Equal(t, TextInputHandler, in.Handler)
	assert.Equal(t, "Submit", in.Submit)
	assert.Equal(t, "Name", in.Label)
	assert.Equal(t, "who?", in.Placeholder)
	assert.True(t, pass.Halted)
	assert.JSONEq(t, `{"text":null}`, h.state(t, "ask"))

	key := registry.Key{Task: "ask", Handler: TextInputHandler}
	require.NoError(t, registry.Replace(h.root.Registry(), key, "bob"))
	pass = h.run()
	require.Len(t, pass.Fragments, 2)
	assert.Equal(t, "bob", pass.Fragments[0].Input.Value)
	assert.Equal(t, "hello", pass.Fragments[1].Text)
	assert.JSONEq(t, `{"text":"bob"}`, h.state(t, "ask"))
}

func TestTextInputDefault(t *testing.T) {
	h := newHarness("", newTask("ask", KindTextInput, `{"default":"x","labelSubmit":"Go"}`))
	pass := h.run()
	assert.False(t, pass.Halted)
	assert.Equal(t, "Go", pass.Fragments[0].Input.Submit)
}

func TestChatStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "user", req.Messages[1].Role)
			assert.Equal(t, "hi bob", req.Messages[1].Content)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"},\"finish_reason\":null}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	h := newHarness("",
		newTask("who", KindVariable, `{"name":"bob"}`),
		newTask("chat", KindOpenAIChat, `{"baseUrl":"`+srv.URL+`","model":"m","stream":true,
			"messages":[{"role":"system","content":"be nice"}],"message":"hi bob"}`),
		newTask("answer", KindText, `{"msg":":/chat/content","progress":"~/none"}`),
	)
	pass := h.run()
	require.Len(t, pass.Fragments, 1)
	assert.Equal(t, render.KindLoading, pass.Fragments[0].Kind)

	completions := h.sched.Next(context.Background())
	require.Len(t, completions, 3)
	h.sched.Apply(completions[0])
	pass = h.run()
	assert.JSONEq(t, `{"content":"Hel","progress":true}`, h.state(t, "chat"))
	require.Len(t, pass.Fragments, 1)
	assert.Equal(t, "Hel", pass.Fragments[0].Text)

	h.sched.Apply(completions[1:]...)
	pass = h.run()
	assert.JSONEq(t, `{"content":"Hello","progress":false}`, h.state(t, "chat"))
	assert.Equal(t, "Hello", pass.Fragments[0].Text)
}

func TestChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":0,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	h := newHarness("", newTask("chat", KindOpenAIChat, `{"baseUrl":"`+srv.URL+`","model":"m","message":"ping"}`))
	h.run()
	h.sched.Drain(context.Background())
	pass := h.run()
	assert.Empty(t, pass.Fragments)
	assert.JSONEq(t, `{"content":"pong","progress":false}`, h.state(t, "chat"))
}

func TestChatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := newHarness("", newTask("chat", KindOpenAIChat, `{"baseUrl":"`+srv.URL+`","model":"m","stream":true}`))
	h.run()
	h.sched.Drain(context.Background())
	pass := h.run()
	require.Len(t, pass.Fragments, 1)
	assert.Equal(t, render.KindAlert, pass.Fragments[0].Kind)
	assert.Equal(t, "No Response", pass.Fragments[0].Text)
	_, ok := h.root.Spec().Child("chat")
	assert.False(t, ok)
}
