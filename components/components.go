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

// Package components implements the built-in cassette task kinds.
package components

import "trpc.group/trpc-go/trpc-cassette-go/render"

// Built-in task kinds.
const (
	KindText       = "Text"
	KindVariable   = "Variable"
	KindLoad       = "Load"
	KindTable      = "Table"
	KindTextInput  = "TextInput"
	KindOpenAIChat = "OpenAIChat"
)

// Register adds every built-in kind to kinds.
func Register(kinds *render.Kinds) {
	kinds.Register(KindText, render.Typed(renderText))
	kinds.Register(KindVariable, render.RendererFunc(renderVariable))
	kinds.Register(KindLoad, render.Typed(renderLoad))
	kinds.Register(KindTable, render.Typed(renderTable))
	kinds.Register(KindTextInput, render.Typed(renderTextInput))
	kinds.Register(KindOpenAIChat, render.Typed(renderChat))
}

// Kinds returns a registry holding the built-in kinds.
func Kinds() *render.Kinds {
	kinds := render.NewKinds()
	Register(kinds)
	return kinds
}
