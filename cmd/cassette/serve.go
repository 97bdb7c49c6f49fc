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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trpc.group/trpc-go/trpc-cassette-go/log"
	"trpc.group/trpc-go/trpc-cassette-go/server"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// ServeCmd serves render sessions over HTTP.
type ServeCmd struct {
	Addr string `short:"a" help:"Listen address (overrides config)"`
}

// Run starts the server and blocks until interrupted.
func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
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

	s := server.New(src,
		server.WithNamespace(cfg.Gateway.Namespace),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		server.WithSessionOptions(sessionOptions(cfg)...),
	)
	defer s.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Infof("serving cassettes on %s", cfg.Server.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Event streams only end when their sessions stop.
	s.Close()
	return srv.Shutdown(shutdownCtx)
}
