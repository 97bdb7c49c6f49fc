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

	"trpc.group/trpc-go/trpc-cassette-go/render"
)

// TextInputHandler is the handler a TextInput task keeps its text in.
const TextInputHandler = "text"

type textInputSpec struct {
	Default     string `json:"default"`
	Label       string `json:"label"`
	LabelSubmit string `json:"labelSubmit"`
	Placeholder string `json:"placeholder"`
}

type textInputState struct {
	Text *string `json:"text"`
}

// renderTextInput holds the pipeline until the text is non-empty.
func renderTextInput(_ context.Context, c *render.Context, _ textInputState, spec textInputSpec) (render.TaskState[textInputState], error) {
	submit := spec.LabelSubmit
	if submit == "" {
		submit = "Submit"
	}
	text := render.UseState(c, TextInputHandler, false, func() string { return spec.Default }).Lazy()

	body := render.InputField(render.Input{
		Handler:     TextInputHandler,
		Label:       spec.Label,
		Placeholder: spec.Placeholder,
		Submit:      submit,
		Value:       text.Get(),
	})
	if text.Get() == "" {
		return render.Break(body, &textInputState{}), nil
	}
	value := text.Get()
	return render.Continue(body, &textInputState{Text: &value}), nil
}
