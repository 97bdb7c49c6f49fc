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

	"github.com/tidwall/gjson"

	"trpc.group/trpc-go/trpc-cassette-go/render"
)

type tableSpec struct {
	Table struct {
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	} `json:"table"`
}

func renderTable(_ context.Context, _ *render.Context, _ struct{}, spec tableSpec) (render.TaskState[struct{}], error) {
	if !gjson.ParseBytes(spec.Table.Data).IsArray() {
		return render.Break[struct{}](render.Alert("Error", "table data must be a JSON array"), nil), nil
	}
	return render.Continue[struct{}](render.Table(spec.Table.Name, spec.Table.Data), nil), nil
}
