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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
)

// ListCmd lists the cassettes of a namespace.
type ListCmd struct{}

var (
	listHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	listCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Run prints the listing.
func (c *ListCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	src, release, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	refs, err := src.List(ctx, cfg.Gateway.Namespace)
	if err != nil {
		return err
	}
	return printRefs(os.Stdout, refs)
}

func printRefs(w io.Writer, refs []cassette.Ref) error {
	if len(refs) == 0 {
		_, err := fmt.Fprintln(w, "no cassettes")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "GROUP", "PRIORITY", "DESCRIPTION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeaderStyle
			}
			return listCellStyle
		})
	for _, ref := range refs {
		t.Row(ref.ID.String(), ref.Name, deref(ref.Group), priority(ref.Priority), deref(ref.Description))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func priority(p *uint32) string {
	if p == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*p), 10)
}
