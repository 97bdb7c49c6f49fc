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

package render

import (
	"encoding/json"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
)

// FragmentKind selects how a fragment is displayed.
type FragmentKind string

// Fragment kinds.
const (
	KindContent FragmentKind = "content"
	KindLoading FragmentKind = "loading"
	KindAlert   FragmentKind = "alert"
	KindInput   FragmentKind = "input"
	KindTable   FragmentKind = "table"
)

// Fragment is the visible output of one task.
type Fragment struct {
	Kind     FragmentKind    `json:"kind"`
	Task     string          `json:"task,omitempty"`
	Column   cassette.Column `json:"column,omitempty"`
	Title    string          `json:"title,omitempty"`
	Text     string          `json:"text,omitempty"`
	HTML     string          `json:"html,omitempty"`
	Progress bool            `json:"progress,omitempty"`
	Input    *Input          `json:"input,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Input describes a text field bound to a handler of the task.
type Input struct {
	Handler     string `json:"handler"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Submit      string `json:"submit,omitempty"`
	Value       string `json:"value"`
}

// Content returns a content fragment. html may be empty.
func Content(text, html string) Fragment {
	return Fragment{Kind: KindContent, Text: text, HTML: html}
}

// Loading returns a loading indicator.
func Loading(text string) Fragment {
	return Fragment{Kind: KindLoading, Text: text}
}

// Alert returns an error display.
func Alert(title, text string) Fragment {
	return Fragment{Kind: KindAlert, Title: title, Text: text}
}

// InputField returns a text field fragment.
func InputField(in Input) Fragment {
	return Fragment{Kind: KindInput, Input: &in}
}

// Table returns a fragment that displays data.
func Table(title string, data json.RawMessage) Fragment {
	return Fragment{Kind: KindTable, Title: title, Data: data}
}
