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

// Package metric exports cassette render metrics over OTLP.
package metric

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	noopm "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	itelemetry "trpc.group/trpc-go/trpc-cassette-go/internal/telemetry"
)

// Meter creates every cassette instrument. It is replaced by Start, so
// instruments must be created after Start to be exported.
var Meter metric.Meter = noopm.Meter{}

// Instrument names.
const (
	NameRenderPasses        = "cassette.render.passes"
	NameUnsettledRenders    = "cassette.render.unsettled"
	NameCompletionsApplied  = "cassette.fetch.completions.applied"
	NameCompletionsDropped  = "cassette.fetch.completions.dropped"
	NameSessionEventLatency = "cassette.session.event.duration"
)

// DefaultInterval is the export period of the OTLP reader.
const DefaultInterval = 30 * time.Second

// Option configures Start.
type Option func(*options)

type options struct {
	endpoint    string
	serviceName string
	interval    time.Duration
	reader      sdkmetric.Reader
}

// WithEndpoint sets the gRPC collector address. Without it the OTLP
// environment variables are used.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithServiceName overrides the reported service name.
func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// WithInterval sets the export period.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithReader collects through r instead of an OTLP exporter.
func WithReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.reader = r }
}

// Start installs a meter provider and returns a function flushing and
// shutting it down.
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	o := &options{interval: DefaultInterval}
	for _, opt := range opts {
		opt(o)
	}
	res, err := itelemetry.NewResource(ctx, o.serviceName)
	if err != nil {
		return nil, err
	}
	reader := o.reader
	if reader == nil {
		endpoint := o.endpoint
		if endpoint == "" {
			endpoint = itelemetry.Endpoint("METRICS", itelemetry.ProtocolGRPC)
		}
		conn, err := itelemetry.NewGRPCConn(endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics connection: %w", err)
		}
		exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(o.interval))
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	Meter = provider.Meter(itelemetry.InstrumentName)

	return func() error {
		Meter = noopm.Meter{}
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown MeterProvider: %w", err)
		}
		return nil
	}, nil
}
