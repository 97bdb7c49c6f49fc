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

package session_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/registry"
	"trpc.group/trpc-go/trpc-cassette-go/render"
	"trpc.group/trpc-go/trpc-cassette-go/session"
	"trpc.group/trpc-go/trpc-cassette-go/taskspec"
)

const timeout = 2 * time.Second

type none struct{}

func newCassette(kinds ...string) *cassette.Cassette {
	c := &cassette.Cassette{ID: uuid.New(), Name: "test"}
	for i, kind := range kinds {
		c.Component.Tasks = append(c.Component.Tasks, cassette.Task{
			Name: string(rune('a' + i)),
			Kind: kind,
		})
	}
	return c
}

func next(t *testing.T, ch <-chan session.Update) session.Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return u
	case <-time.After(timeout):
		t.Fatal("timed out waiting for an update")
		return session.Update{}
	}
}

func barrier(t *testing.T, s *session.Session) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, s.Do(func(*render.Root) { close(done) }))
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for the loop")
	}
}

func fetching(release <-chan struct{}) render.Renderer {
	return render.Typed(func(ctx context.Context, c *render.Context, _ none, _ none) (render.TaskState[none], error) {
		st := render.UseFetch(c, "value", func(ctx context.Context) (string, error) {
			select {
			case <-release:
				return "done", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
		if st.Phase == fetch.Completed {
			return render.Continue[none](render.Content(st.Value, ""), nil), nil
		}
		return render.Break[none](render.Loading("loading"), nil), nil
	})
}

func TestSessionAppliesCompletions(t *testing.T) {
	release := make(chan struct{})
	kinds := render.NewKinds()
	kinds.Register("Fetch", fetching(release))

	s, err := session.New(newCassette("Fetch"), kinds, session.WithWorkers(2))
	require.NoError(t, err)
	defer s.Stop()

	updates, cancel := s.Subscribe()
	defer cancel()
	s.Start()

	first := next(t, updates)
	require.Len(t, first.Fragments, 1)
	assert.Equal(t, render.KindLoading, first.Fragments[0].Kind)
	assert.True(t, first.Settled)
	assert.Equal(t, s.ID(), first.Session)

	close(release)
	second := next(t, updates)
	require.Len(t, second.Fragments, 1)
	assert.Equal(t, "done", second.Fragments[0].Text)
	assert.Greater(t, second.Version, first.Version)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, second.Version, last.Version)
}

func TestSessionPublishesOnlyOnChange(t *testing.T) {
	kinds := render.NewKinds()
	kinds.Register("Static", render.RendererFunc(func(context.Context, *render.Context, taskspec.Spec) (render.Outcome, error) {
		return render.Continue[taskspec.Spec](render.Content("static", ""), nil), nil
	}))
	s, err := session.New(newCassette("Static"), kinds)
	require.NoError(t, err)
	defer s.Stop()

	updates, cancel := s.Subscribe()
	defer cancel()
	s.Start()
	next(t, updates)

	require.NoError(t, s.Do(func(*render.Root) {}))
	barrier(t, s)
	select {
	case u := <-updates:
		t.Fatalf("unexpected update %+v", u)
	default:
	}

	require.NoError(t, s.Do(func(root *render.Root) {
		root.SetChild("external", taskspec.MustParse(`1`))
	}))
	u := next(t, updates)
	assert.Equal(t, 1, u.Passes)
}

func TestSessionBoundsUnsettledRenders(t *testing.T) {
	type count struct {
		N int `json:"n"`
	}
	kinds := render.NewKinds()
	kinds.Register("Counter", render.Typed(func(ctx context.Context, c *render.Context, state count, _ none) (render.TaskState[count], error) {
		state.N++
		return render.Continue(render.Content("tick", ""), &state), nil
	}))
	s, err := session.New(newCassette("Counter"), kinds, session.WithMaxPasses(3))
	require.NoError(t, err)
	defer s.Stop()

	updates, cancel := s.Subscribe()
	defer cancel()
	s.Start()

	u := next(t, updates)
	assert.False(t, u.Settled)
	assert.Equal(t, 3, u.Passes)
}

func TestSessionSetValue(t *testing.T) {
	kinds := render.NewKinds()
	kinds.Register("Echo", render.Typed(func(ctx context.Context, c *render.Context, _ none, _ none) (render.TaskState[none], error) {
		text := render.UseState(c, "text", false, func() string { return "" })
		if text.Get() == "" {
			return render.Break[none](render.Content("empty", ""), nil), nil
		}
		return render.Continue[none](render.Content(text.Get(), ""), nil), nil
	}))
	s, err := session.New(newCassette("Echo"), kinds)
	require.NoError(t, err)
	defer s.Stop()

	updates, cancel := s.Subscribe()
	defer cancel()
	s.Start()
	assert.Equal(t, "empty", next(t, updates).Fragments[0].Text)

	ctx := context.Background()
	require.NoError(t, s.SetValue(ctx, "a", "text", json.RawMessage(`"hello"`)))
	assert.Equal(t, "hello", next(t, updates).Fragments[0].Text)

	err = s.SetValue(ctx, "a", "missing", json.RawMessage(`"x"`))
	assert.ErrorIs(t, err, registry.ErrNotFound)
	err = s.SetValue(ctx, "a", "text", json.RawMessage(`42`))
	assert.ErrorIs(t, err, registry.ErrTypeMismatch)
}

func TestSessionStopDropsLateCompletions(t *testing.T) {
	release := make(chan struct{})
	kinds := render.NewKinds()
	kinds.Register("Fetch", fetching(release))

	s, err := session.New(newCassette("Fetch"), kinds)
	require.NoError(t, err)
	updates, _ := s.Subscribe()
	s.Start()
	next(t, updates)

	s.Stop()
	close(release)

	select {
	case <-s.Done():
	case <-time.After(timeout):
		t.Fatal("loop did not exit")
	}
	_, open := <-updates
	assert.False(t, open)

	assert.ErrorIs(t, s.Do(func(*render.Root) {}), session.ErrStopped)
	assert.ErrorIs(t, s.Spawn("late", func(context.Context, func(fetch.Completion)) fetch.Completion { return nil }), session.ErrStopped)
	assert.ErrorIs(t, s.SetValue(context.Background(), "a", "value", json.RawMessage(`{}`)), session.ErrStopped)
}

func TestSessionStopWithoutStart(t *testing.T) {
	s, err := session.New(newCassette(), render.NewKinds())
	require.NoError(t, err)
	s.Stop()
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestNewRejectsNilCassette(t *testing.T) {
	_, err := session.New(nil, render.NewKinds())
	assert.Error(t, err)
}
