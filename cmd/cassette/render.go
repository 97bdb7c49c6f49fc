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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"trpc.group/trpc-go/trpc-cassette-go/components"
	"trpc.group/trpc-go/trpc-cassette-go/log"
	"trpc.group/trpc-go/trpc-cassette-go/session"
)

// RenderCmd renders one cassette in the terminal.
type RenderCmd struct {
	Cassette string `arg:"" help:"Cassette id or name"`
	Plain    bool   `help:"Print each render pass instead of running the interactive UI"`
}

// Run renders until the user quits.
func (c *RenderCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanTelemetry, err := startTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanTelemetry()

	src, release, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	cas, err := resolveCassette(ctx, src, cfg.Gateway.Namespace, c.Cassette)
	if err != nil {
		return err
	}
	sess, err := session.New(cas, components.Kinds(), sessionOptions(cfg)...)
	if err != nil {
		return err
	}
	defer sess.Stop()

	updates, cancel := sess.Subscribe()
	defer cancel()
	sess.Start()

	if c.Plain {
		return printPasses(ctx, updates)
	}
	if g.LogFile == "" {
		// Log lines would tear the alternate screen.
		log.Discard()
	}
	prog := tea.NewProgram(newModel(sess, updates), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// printPasses writes every update until the pipeline runs to its end or ctx
// is done.
func printPasses(ctx context.Context, updates <-chan session.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			fmt.Printf("--- version %d (%d passes)\n%s\n", u.Version, u.Passes,
				renderFragments(u.Fragments, 80, -1))
			if u.Err != "" {
				return fmt.Errorf("render failed: %s", u.Err)
			}
			if !u.Halted && !inProgress(u) {
				return nil
			}
		}
	}
}
