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

// Package cassette defines the data model consumed by the render core: a
// cassette, its ordered task list, and the documents cassette sources store.
package cassette

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// Cassette is a named bundle of a component plus display metadata. It is
// immutable once fetched. Identity is the ID.
type Cassette struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Group       *string       `json:"group,omitempty"`
	Description *string       `json:"description,omitempty"`
	Priority    *uint32       `json:"priority,omitempty"`
	Component   ComponentSpec `json:"component"`
}

// Title returns the display name.
func (c *Cassette) Title() string {
	return c.Name
}

// Equal compares by ID.
func (c *Cassette) Equal(other *Cassette) bool {
	return c.ID == other.ID
}

// Less orders by ID.
func (c *Cassette) Less(other *Cassette) bool {
	return bytes.Compare(c.ID[:], other.ID[:]) < 0
}

// Ref is a listing entry: a cassette whose component is referenced by id.
type Ref struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Group       *string   `json:"group,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *uint32   `json:"priority,omitempty"`
	Component   uuid.UUID `json:"component"`
}

// SortRefs orders refs by ID.
func SortRefs(refs []Ref) {
	sort.Slice(refs, func(i, j int) bool {
		return bytes.Compare(refs[i].ID[:], refs[j].ID[:]) < 0
	})
}
