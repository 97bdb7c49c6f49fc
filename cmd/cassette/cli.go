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

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/config"
	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/gateway"
	"trpc.group/trpc-go/trpc-cassette-go/loader"
	"trpc.group/trpc-go/trpc-cassette-go/loader/file"
	"trpc.group/trpc-go/trpc-cassette-go/log"
	"trpc.group/trpc-go/trpc-cassette-go/server"
	"trpc.group/trpc-go/trpc-cassette-go/session"
	"trpc.group/trpc-go/trpc-cassette-go/stream"
	"trpc.group/trpc-go/trpc-cassette-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-cassette-go/telemetry/trace"
)

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Render   RenderCmd        `cmd:"" help:"Render a cassette in the terminal"`
	Serve    ServeCmd         `cmd:"" help:"Serve render sessions over HTTP"`
	List     ListCmd          `cmd:"" help:"List the cassettes of a namespace"`
	Validate ValidateCmd      `cmd:"" help:"Validate cassette YAML documents"`
	Version  kong.VersionFlag `help:"Show version information"`
}

// Globals are flags shared by every command. Set flags override the config
// file.
type Globals struct {
	Config    string   `short:"c" help:"Config file path (default: ./cassette.toml when present)"`
	LogLevel  string   `help:"Log level: debug, info, warn, error or fatal"`
	LogFile   string   `help:"Append logs to this file instead of stderr"`
	Gateway   string   `help:"Gateway base URL" env:"CASSETTE_GATEWAY_URL"`
	Namespace string   `short:"n" help:"Cassette namespace" env:"CASSETTE_NAMESPACE"`
	Dir       []string `short:"d" help:"Read cassettes from YAML files or directories instead of the gateway"`
	Watch     bool     `help:"Reload --dir directories when they change"`

	closeLog func() error `kong:"-"`
}

// close releases what load opened.
func (g *Globals) close() {
	if g.closeLog != nil {
		_ = g.closeLog()
		g.closeLog = nil
	}
}

// load reads the config file and applies the flag overrides.
func (g *Globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.Gateway != "" {
		cfg.Gateway.URL = g.Gateway
	}
	if g.Namespace != "" {
		cfg.Gateway.Namespace = g.Namespace
	}
	if len(g.Dir) > 0 {
		cfg.Loader.Paths = g.Dir
	}
	if g.Watch {
		cfg.Loader.Watch = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.SetLevel(cfg.Log.Level)
	if g.LogFile != "" {
		closeLog, err := log.ToFile(g.LogFile)
		if err != nil {
			return nil, err
		}
		g.closeLog = closeLog
	}
	return cfg, nil
}

// openSource returns the cassette source selected by cfg and a function
// releasing it.
func openSource(ctx context.Context, cfg *config.Config) (server.Source, func(), error) {
	if len(cfg.Loader.Paths) == 0 {
		return gateway.New(cfg.Gateway.URL, gateway.WithNamespace(cfg.Gateway.Namespace)), func() {}, nil
	}

	db := loader.New(loader.WithDefaultNamespace(cfg.Gateway.Namespace))
	if !cfg.Loader.Watch {
		if err := file.Load(db, cfg.Loader.Paths...); err != nil {
			return nil, nil, err
		}
		return server.DBSource(db), func() {}, nil
	}

	debounce, err := cfg.DebounceDuration()
	if err != nil {
		return nil, nil, err
	}
	var watchers []*file.Watcher
	closeAll := func() {
		for _, w := range watchers {
			_ = w.Close()
		}
	}
	for _, path := range cfg.Loader.Paths {
		info, err := os.Stat(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		if !info.IsDir() {
			if err := file.Load(db, path); err != nil {
				closeAll()
				return nil, nil, err
			}
			continue
		}
		w, err := file.Watch(ctx, db, path,
			file.WithDebounce(debounce),
			file.WithOnReload(func(err error) {
				if err != nil {
					log.Warnf("reload of %s: %v", path, err)
					return
				}
				log.Infof("reloaded %s", path)
			}))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		watchers = append(watchers, w)
	}
	return server.DBSource(db), closeAll, nil
}

// sessionOptions are the session options every rendered cassette gets.
func sessionOptions(cfg *config.Config) []session.Option {
	streamOpts := []stream.Option{stream.WithContinuePrompt(cfg.Chat.ContinuePrompt)}
	if cfg.Chat.MaxContinuations != nil {
		streamOpts = append(streamOpts, stream.WithMaxContinuations(*cfg.Chat.MaxContinuations))
	}
	return []session.Option{
		session.WithWorkers(cfg.Render.Workers),
		session.WithMaxPasses(cfg.Render.MaxPasses),
		session.WithNamespace(cfg.Gateway.Namespace),
		session.WithClient(fetch.NewClient(cfg.Gateway.URL)),
		session.WithStreamOptions(streamOpts...),
	}
}

// startTelemetry starts the exporters when enabled and returns their cleanup.
func startTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}
	traceOpts := []trace.Option{
		trace.WithProtocol(cfg.Telemetry.Protocol),
		trace.WithSampleRatio(cfg.Telemetry.SampleRatio),
	}
	var metricOpts []metric.Option
	if cfg.Telemetry.Endpoint != "" {
		traceOpts = append(traceOpts, trace.WithEndpoint(cfg.Telemetry.Endpoint))
		metricOpts = append(metricOpts, metric.WithEndpoint(cfg.Telemetry.Endpoint))
	}
	cleanTrace, err := trace.Start(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}
	cleanMetric, err := metric.Start(ctx, metricOpts...)
	if err != nil {
		_ = cleanTrace()
		return nil, fmt.Errorf("failed to start metrics: %w", err)
	}
	return func() {
		if err := errors.Join(cleanMetric(), cleanTrace()); err != nil {
			log.Warnf("telemetry shutdown: %v", err)
		}
	}, nil
}

// resolveCassette finds a cassette by id or, failing that, by name.
func resolveCassette(ctx context.Context, src server.Source, ns, arg string) (*cassette.Cassette, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return src.Get(ctx, ns, id)
	}
	refs, err := src.List(ctx, ns)
	if err != nil {
		return nil, err
	}
	var found []cassette.Ref
	for _, ref := range refs {
		if ref.Name == arg {
			found = append(found, ref)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", gateway.ErrNotFound, arg)
	case 1:
		return src.Get(ctx, ns, found[0].ID)
	default:
		return nil, fmt.Errorf("cassette name %q is ambiguous in namespace %s, use its id", arg, ns)
	}
}
