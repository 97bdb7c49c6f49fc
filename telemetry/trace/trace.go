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

// Package trace provides tracing of render passes, task renders and fetches.
// Spans are no-ops until Start installs an exporting provider.
package trace

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	itelemetry "trpc.group/trpc-go/trpc-cassette-go/internal/telemetry"
)

// Tracer starts every cassette span. It is replaced by Start.
var Tracer trace.Tracer = noop.NewTracerProvider().Tracer("")

// Option configures Start.
type Option func(*options)

type options struct {
	endpoint    string
	protocol    string
	headers     map[string]string
	serviceName string
	sampleRatio float64
	exporter    sdktrace.SpanExporter
}

// WithEndpoint sets the collector address. For the HTTP protocol it may be a
// URL whose path replaces the default "/v1/traces". Without it the OTLP
// environment variables are used.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithProtocol selects "grpc" (default) or "http" export.
func WithProtocol(protocol string) Option {
	return func(o *options) { o.protocol = protocol }
}

// WithHeaders adds headers to every export request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) { o.headers = headers }
}

// WithServiceName overrides the reported service name.
func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// WithSampleRatio samples the given fraction of root spans. Values outside
// (0, 1] sample everything.
func WithSampleRatio(ratio float64) Option {
	return func(o *options) { o.sampleRatio = ratio }
}

// WithExporter exports to exp, synchronously, instead of an OTLP collector.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}

// Start installs a tracer provider and returns a function flushing and
// shutting it down.
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	o := &options{protocol: itelemetry.ProtocolGRPC}
	for _, opt := range opts {
		opt(o)
	}
	res, err := itelemetry.NewResource(ctx, o.serviceName)
	if err != nil {
		return nil, err
	}
	// Supplied exporters receive spans as they end.
	processor := sdktrace.WithSyncer(o.exporter)
	if o.exporter == nil {
		exp, err := newExporter(ctx, o)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
		}
		processor = sdktrace.WithBatcher(exp)
	}

	sampler := sdktrace.AlwaysSample()
	if o.sampleRatio > 0 && o.sampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.sampleRatio))
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(res),
		processor,
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	Tracer = provider.Tracer(itelemetry.InstrumentName)

	return func() error {
		Tracer = noop.NewTracerProvider().Tracer("")
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown TracerProvider: %w", err)
		}
		return nil
	}, nil
}

func newExporter(ctx context.Context, o *options) (sdktrace.SpanExporter, error) {
	endpoint := o.endpoint
	if endpoint == "" {
		endpoint = itelemetry.Endpoint("TRACES", o.protocol)
	}
	if o.protocol == itelemetry.ProtocolHTTP {
		host, path, err := splitEndpoint(endpoint)
		if err != nil {
			return nil, err
		}
		httpOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(host),
			otlptracehttp.WithInsecure(),
			otlptracehttp.WithHeaders(o.headers),
		}
		if path != "" {
			httpOpts = append(httpOpts, otlptracehttp.WithURLPath(path))
		}
		return otlptracehttp.New(ctx, httpOpts...)
	}
	conn, err := itelemetry.NewGRPCConn(endpoint)
	if err != nil {
		return nil, err
	}
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithGRPCConn(conn),
		otlptracegrpc.WithHeaders(o.headers),
	)
}

// splitEndpoint turns "http://collector:4318/otel" into "collector:4318" and
// "/otel". A bare host:port has no path.
func splitEndpoint(endpoint string) (host, path string, err error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, "", nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("no host in endpoint %q", endpoint)
	}
	if u.Path == "/" {
		return u.Host, "", nil
	}
	return u.Host, u.Path, nil
}
