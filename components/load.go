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
	"net/http"
	"net/url"

	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/render"
)

const loadHandler = "fetch"

type loadSpec struct {
	BaseURL string            `json:"baseUrl"`
	URI     string            `json:"uri"`
	Query   map[string]string `json:"query"`
}

// renderLoad fetches a JSON document and stores it as the task state.
func renderLoad(_ context.Context, c *render.Context, _ json.RawMessage, spec loadSpec) (render.TaskState[json.RawMessage], error) {
	req := fetch.Request{
		Method:  http.MethodGet,
		Name:    loadHandler,
		BaseURL: spec.BaseURL,
		Path:    spec.URI,
	}
	if len(spec.Query) > 0 {
		req.Query = make(url.Values, len(spec.Query))
		for key, value := range spec.Query {
			req.Query.Set(key, value)
		}
	}

	empty := json.RawMessage("null")
	state := render.UseFetch(c, loadHandler, fetch.Call[json.RawMessage](c.Client(), req))
	switch state.Phase {
	case fetch.Collecting, fetch.Completed:
		data := state.Value
		if len(data) == 0 {
			data = empty
		}
		return render.Skip(&data), nil
	case fetch.Error:
		return render.Break(render.Alert("Error", state.Err), &empty), nil
	default:
		return render.Break(render.Loading("Loading..."), &empty), nil
	}
}
