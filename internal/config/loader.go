// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/dispatch"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/event"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/worker"
)

const envPrefix = "A2A_"

// Load reads configuration with the following precedence, highest first:
//
//  1. A2A_-prefixed environment variables (A2A_SERVER_LISTEN_ADDR,
//     A2A_DISPATCH_LEASE_TTL, A2A_NATS_URL, ...)
//  2. The YAML file at configPath, if configPath is non-empty
//  3. Built-in defaults
//
// Environment variables map to config keys by stripping the prefix,
// lowercasing, and splitting on the first underscore:
// A2A_DISPATCH_MAX_ATTEMPTS becomes dispatch.max_attempts.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// A2A_SERVER_LISTEN_ADDR -> server.listen_addr
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9090"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Agent.Name == "" {
		cfg.Agent.Name = "a2a-server"
	}
	if cfg.Agent.URL == "" {
		cfg.Agent.URL = "http://localhost:8080/"
	}
	if cfg.Agent.Version == "" {
		cfg.Agent.Version = "0.1.0"
	}

	if cfg.Dispatch.MaxAttempts == 0 {
		cfg.Dispatch.MaxAttempts = dispatch.DefaultMaxAttempts
	}
	if cfg.Dispatch.LeaseTTL == 0 {
		cfg.Dispatch.LeaseTTL = dispatch.DefaultLeaseTTL
	}
	if cfg.Dispatch.CancelHardTimeout == 0 {
		cfg.Dispatch.CancelHardTimeout = server.DefaultCancelHardTimeout
	}
	if cfg.Dispatch.QueueSize == 0 {
		cfg.Dispatch.QueueSize = dispatch.DefaultMemoryQueueSize
	}

	if cfg.Stream.BufferSize == 0 {
		cfg.Stream.BufferSize = event.DefaultBufferSize
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}

	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = dispatch.DefaultSubject
	}
	if cfg.NATS.QueueGroup == "" {
		cfg.NATS.QueueGroup = dispatch.DefaultQueueGroup
	}

	if cfg.Worker.ID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "worker"
		}
		cfg.Worker.ID = host
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = 1
	}
	if cfg.Worker.HeartbeatInterval == 0 {
		cfg.Worker.HeartbeatInterval = worker.DefaultHeartbeatInterval
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
