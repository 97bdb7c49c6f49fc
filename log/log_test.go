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

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)
	cases := []struct {
		in       string
		expected zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LevelFatal, zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
	}
	for _, c := range cases {
		SetLevel(c.in)
		assert.Equal(t, c.expected, zapLevel.Level(), "SetLevel(%q)", c.in)
	}
}

func TestNewFollowsSharedLevel(t *testing.T) {
	defer SetLevel(LevelInfo)
	var buf bytes.Buffer
	logger := New(zapcore.AddSync(&buf))

	SetLevel(LevelWarn)
	logger.Infof("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetLevel(LevelDebug)
	logger.Debugf("shown %d", 2)
	assert.True(t, strings.Contains(buf.String(), "shown 2"))
}

func TestTracef(t *testing.T) {
	var recorded string
	old := Default
	Default = &stubLogger{debugf: func(format string, _ ...any) { recorded = format }}
	defer func() { Default = old }()

	Tracef("hello %s", "world")
	assert.True(t, strings.HasPrefix(recorded, "[TRACE] "))
}

func TestToFile(t *testing.T) {
	old := Default
	defer func() { Default = old }()

	path := filepath.Join(t.TempDir(), "cassette.log")
	closeFile, err := ToFile(path)
	require.NoError(t, err)
	Infof("rendered %s", "greeter")
	require.NoError(t, closeFile())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "rendered greeter")

	_, err = ToFile(filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)

	Discard()
	Infof("dropped")
}

type stubLogger struct {
	debugf func(format string, args ...any)
}

func (s *stubLogger) Debug(args ...any)                 {}
func (s *stubLogger) Debugf(format string, args ...any) { s.debugf(format, args...) }
func (s *stubLogger) Info(args ...any)                  {}
func (s *stubLogger) Infof(format string, args ...any)  {}
func (s *stubLogger) Warn(args ...any)                  {}
func (s *stubLogger) Warnf(format string, args ...any)  {}
func (s *stubLogger) Error(args ...any)                 {}
func (s *stubLogger) Errorf(format string, args ...any) {}
func (s *stubLogger) Fatal(args ...any)                 {}
func (s *stubLogger) Fatalf(format string, args ...any) {}
