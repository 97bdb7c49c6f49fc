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

package cassette

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"trpc.group/trpc-go/trpc-cassette-go/taskspec"
)

var (
	taskNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]*$`)
	taskKindPattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9-]*$`)
)

// maxIdentifierLen bounds task names and kinds.
const maxIdentifierLen = 253

// Column is the layout hint of a task.
type Column string

// Layout columns.
const (
	ColumnAll     Column = "All"
	ColumnCurrent Column = "Current"
	ColumnNew     Column = "New"
)

// UnmarshalJSON implements json.Unmarshaler and rejects unknown columns.
func (c *Column) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	switch Column(s) {
	case ColumnAll, ColumnCurrent, ColumnNew:
		*c = Column(s)
		return nil
	case "":
		*c = ColumnCurrent
		return nil
	default:
		return fmt.Errorf("unknown column %q", s)
	}
}

// TaskMetadata carries rendering hints.
type TaskMetadata struct {
	Column Column `json:"column"`
}

// Task is one step of a cassette pipeline. Spec is interpreted only by the
// renderer registered for Kind.
type Task struct {
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Metadata TaskMetadata  `json:"metadata"`
	Spec     taskspec.Spec `json:"spec"`
}

// UnmarshalJSON implements json.Unmarshaler. An absent column defaults to
// ColumnCurrent.
func (t *Task) UnmarshalJSON(raw []byte) error {
	type plain Task
	out := plain{Metadata: TaskMetadata{Column: ColumnCurrent}}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	if out.Metadata.Column == "" {
		out.Metadata.Column = ColumnCurrent
	}
	*t = Task(out)
	return nil
}

// Validate checks the name and kind patterns.
func (t Task) Validate() error {
	if err := validateIdentifier("name", t.Name, taskNamePattern); err != nil {
		return err
	}
	return validateIdentifier("kind", t.Kind, taskKindPattern)
}

func validateIdentifier(field, value string, pattern *regexp.Regexp) error {
	if len(value) == 0 || len(value) > maxIdentifierLen {
		return fmt.Errorf("task %s %q: length must be between 1 and %d", field, value, maxIdentifierLen)
	}
	if !pattern.MatchString(value) {
		return fmt.Errorf("task %s %q: must match %s", field, value, pattern)
	}
	return nil
}

// ComponentSpec is the ordered task list of a cassette.
type ComponentSpec struct {
	Tasks []Task `json:"tasks"`
}

// ErrDuplicateTask is returned by ComponentSpec.Validate.
var ErrDuplicateTask = errors.New("duplicate task name")

// Validate checks every task and rejects duplicate names.
func (c ComponentSpec) Validate() error {
	seen := make(map[string]struct{}, len(c.Tasks))
	var errs []error
	for i, task := range c.Tasks {
		if err := task.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tasks[%d]: %w", i, err))
			continue
		}
		if _, ok := seen[task.Name]; ok {
			errs = append(errs, fmt.Errorf("tasks[%d]: %w: %s", i, ErrDuplicateTask, task.Name))
			continue
		}
		seen[task.Name] = struct{}{}
	}
	return errors.Join(errs...)
}
