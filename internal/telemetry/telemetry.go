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

// Package telemetry holds the span names, attribute keys and collector
// connection shared by the cassette tracing and metric packages.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// telemetry service constants.
const (
	ServiceName      = "cassette"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-cassette-go"
	InstrumentName   = "trpc.cassette.go"

	SpanNameRenderPass      = "render_pass"
	SpanNamePrefixTask      = "render_task"
	SpanNamePrefixFetch     = "fetch"
	SpanNamePrefixStreaming = "stream"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// telemetry attribute keys.
var (
	KeySessionID   = "trpc.cassette.session_id"
	KeyCassetteID  = "trpc.cassette.cassette_id"
	KeyTaskName    = "trpc.cassette.task_name"
	KeyTaskKind    = "trpc.cassette.task_kind"
	KeyVerdict     = "trpc.cassette.verdict"
	KeyPassNumber  = "trpc.cassette.pass"
	KeyFetchName   = "trpc.cassette.fetch_name"
	KeyFetchResult = "trpc.cassette.fetch_result"
	KeyAttempt     = "trpc.cassette.attempt"
)

// NewTaskSpanName returns the span name for rendering one task.
func NewTaskSpanName(task string) string {
	return joinSpanName(SpanNamePrefixTask, task)
}

// NewFetchSpanName returns the span name for one fetch dispatch.
func NewFetchSpanName(name string) string {
	return joinSpanName(SpanNamePrefixFetch, name)
}

// NewStreamSpanName returns the span name for one streamed request.
func NewStreamSpanName(name string) string {
	return joinSpanName(SpanNamePrefixStreaming, name)
}

func joinSpanName(prefix, name string) string {
	if name == "" {
		return prefix
	}
	return prefix + " " + name
}

// TraceTask records the outcome of one task render.
func TraceTask(span trace.Span, kind, verdict string, err error) {
	span.SetAttributes(
		attribute.String(KeyTaskKind, kind),
		attribute.String(KeyVerdict, verdict),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
}

// TraceFetch records the outcome of one fetch attempt.
func TraceFetch(span trace.Span, name string, attempt uint64, result string) {
	span.SetAttributes(
		attribute.String(KeyFetchName, name),
		attribute.Int64(KeyAttempt, int64(attempt)),
		attribute.String(KeyFetchResult, result),
	)
}

// Default collector addresses per protocol.
const (
	DefaultGRPCEndpoint = "localhost:4317"
	DefaultHTTPEndpoint = "localhost:4318"
)

// Endpoint returns the collector address for signal ("TRACES", "METRICS")
// from the OTLP environment, falling back to the protocol default.
func Endpoint(signal, protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_" + signal + "_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if protocol == ProtocolHTTP {
		return DefaultHTTPEndpoint
	}
	return DefaultGRPCEndpoint
}

// NewResource describes the cassette process to the collector.
func NewResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = ServiceName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNamespace(ServiceNamespace),
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
