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
	"fmt"

	"trpc.group/trpc-go/trpc-cassette-go/render"
	"trpc.group/trpc-go/trpc-cassette-go/taskspec"
)

// renderVariable publishes its resolved spec as the task state.
func renderVariable(_ context.Context, c *render.Context, spec taskspec.Spec) (render.Outcome, error) {
	resolved, err := c.Resolve(spec)
	if err != nil {
		return render.Outcome{}, fmt.Errorf("Failed to parse task spec: %v", err)
	}
	return render.Skip(&resolved), nil
}
