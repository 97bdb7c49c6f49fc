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

// Package config loads the cassette configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "cassette.toml"

// Config is the whole configuration.
type Config struct {
	Gateway   GatewayConfig   `toml:"gateway"`
	Loader    LoaderConfig    `toml:"loader"`
	Log       LogConfig       `toml:"log"`
	Render    RenderConfig    `toml:"render"`
	Chat      ChatConfig      `toml:"chat"`
	Server    ServerConfig    `toml:"server"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// GatewayConfig locates the cassette source.
type GatewayConfig struct {
	URL       string `toml:"url"`
	Namespace string `toml:"namespace"`
}

// LoaderConfig lists local cassette documents used instead of a gateway.
type LoaderConfig struct {
	Paths []string `toml:"paths"`
	Watch bool     `toml:"watch"`
	// Debounce is a duration such as "200ms".
	Debounce string `toml:"debounce"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level"` // debug|info|warn|error|fatal
}

// RenderConfig tunes sessions.
type RenderConfig struct {
	MaxPasses int `toml:"max_passes"`
	Workers   int `toml:"workers"`
}

// ChatConfig tunes streamed chat completions.
type ChatConfig struct {
	MaxContinuations *int   `toml:"max_continuations"` // 0 = unbounded
	ContinuePrompt   string `toml:"continue_prompt"`
}

// ServerConfig configures the live UI server.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	Protocol string `toml:"protocol"` // grpc (default) or http
	// SampleRatio is the fraction of render passes traced; 0 or 1 traces all.
	SampleRatio float64 `toml:"sample_ratio"`
}

// New returns the defaults.
func New() *Config {
	continuations := 16
	return &Config{
		Gateway: GatewayConfig{
			URL:       "http://localhost:8080",
			Namespace: "default",
		},
		Loader: LoaderConfig{
			Debounce: "200ms",
		},
		Log: LogConfig{
			Level: "info",
		},
		Render: RenderConfig{
			MaxPasses: 16,
			Workers:   64,
		},
		Chat: ChatConfig{
			MaxContinuations: &continuations,
			ContinuePrompt:   "continue",
		},
		Server: ServerConfig{
			Addr:           ":8081",
			AllowedOrigins: []string{"*"},
		},
		Telemetry: TelemetryConfig{
			Protocol: "grpc",
		},
	}
}

// LoadFile reads path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path, or DefaultFile when path is empty. A missing DefaultFile
// yields the defaults; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if _, err := os.Stat(DefaultFile); errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	return LoadFile(DefaultFile)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Render.MaxPasses < 1 {
		errs = append(errs, fmt.Errorf("render.max_passes must be positive, got %d", c.Render.MaxPasses))
	}
	if c.Render.Workers < 1 {
		errs = append(errs, fmt.Errorf("render.workers must be positive, got %d", c.Render.Workers))
	}
	if c.Chat.MaxContinuations != nil && *c.Chat.MaxContinuations < 0 {
		errs = append(errs, fmt.Errorf("chat.max_continuations must not be negative, got %d", *c.Chat.MaxContinuations))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be within [0, 1], got %v", c.Telemetry.SampleRatio))
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		errs = append(errs, fmt.Errorf("telemetry.protocol must be grpc or http, got %q", c.Telemetry.Protocol))
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is unknown", c.Log.Level))
	}
	if _, err := c.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DebounceDuration parses Loader.Debounce. Empty means zero.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Loader.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Loader.Debounce)
	if err != nil {
		return 0, fmt.Errorf("loader.debounce: %w", err)
	}
	return d, nil
}
