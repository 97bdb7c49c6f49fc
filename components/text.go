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
	"bytes"
	"context"

	"github.com/yuin/goldmark"

	"trpc.group/trpc-go/trpc-cassette-go/log"
	"trpc.group/trpc-go/trpc-cassette-go/render"
)

var markdown = goldmark.New()

type textSpec struct {
	Msg      string `json:"msg"`
	Progress bool   `json:"progress"`
}

func renderText(_ context.Context, _ *render.Context, _ struct{}, spec textSpec) (render.TaskState[struct{}], error) {
	body := render.Content(spec.Msg, markdownHTML(spec.Msg))
	body.Progress = spec.Progress
	return render.Continue[struct{}](body, nil), nil
}

// markdownHTML renders src, falling back to no HTML when it cannot.
func markdownHTML(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		log.Warnf("components: rendering markdown: %v", err)
		return ""
	}
	return buf.String()
}
