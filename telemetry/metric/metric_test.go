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

package metric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestStartCollectsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	clean, err := Start(context.Background(), WithReader(reader))
	require.NoError(t, err)
	defer clean()

	passes, err := Meter.Int64Counter(NameRenderPasses)
	require.NoError(t, err)
	passes.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, NameRenderPasses, m.Name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestStartOTLP(t *testing.T) {
	clean, err := Start(context.Background(), WithEndpoint("localhost:4317"))
	require.NoError(t, err)
	require.NotNil(t, Meter)
	_ = clean() // no collector is running in tests
}
