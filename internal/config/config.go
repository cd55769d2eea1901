// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads server and worker configuration from a YAML file
// and A2A_-prefixed environment variables, with environment taking
// precedence.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete coordinator and worker configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Agent    AgentConfig    `koanf:"agent"`
	Dispatch DispatchConfig `koanf:"dispatch"`
	Stream   StreamConfig   `koanf:"stream"`
	Store    StoreConfig    `koanf:"store"`
	NATS     NATSConfig     `koanf:"nats"`
	Worker   WorkerConfig   `koanf:"worker"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr"`
	MetricsAddr     string        `koanf:"metrics_addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// AgentConfig describes the agent card served at the well-known path.
type AgentConfig struct {
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	URL         string `koanf:"url"`
	Version     string `koanf:"version"`
	Streaming   bool   `koanf:"streaming"`
}

// DispatchConfig holds queue and lease configuration.
type DispatchConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	LeaseTTL          time.Duration `koanf:"lease_ttl"`
	CancelHardTimeout time.Duration `koanf:"cancel_hard_timeout"`
	QueueSize         int           `koanf:"queue_size"`
}

// StreamConfig holds event stream configuration.
type StreamConfig struct {
	BufferSize int `koanf:"buffer_size"`
}

// StoreConfig selects the task store backend. Backend is "memory" or
// "database"; DSN is the gorm-compatible connection string for the
// database backend.
type StoreConfig struct {
	Backend string `koanf:"backend"`
	DSN     string `koanf:"dsn"`
}

// NATSConfig holds dispatch queue transport configuration. When URL is
// empty the in-process queue is used.
type NATSConfig struct {
	URL        string `koanf:"url"`
	Subject    string `koanf:"subject"`
	QueueGroup string `koanf:"queue_group"`
}

// LogConfig holds logging configuration. Level is one of debug, info,
// warn, error; Format is "text" or "json".
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// WorkerConfig holds worker runner configuration. The worker binary also
// reads the Dispatch, NATS, and Log sections.
type WorkerConfig struct {
	ID                string        `koanf:"id"`
	Concurrency       int           `koanf:"concurrency"`
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr cannot be empty")
	}
	if c.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("dispatch.max_attempts must be at least 1, got %d", c.Dispatch.MaxAttempts)
	}
	if c.Dispatch.LeaseTTL <= 0 {
		return fmt.Errorf("dispatch.lease_ttl must be positive, got %s", c.Dispatch.LeaseTTL)
	}
	if c.Stream.BufferSize < 1 {
		return fmt.Errorf("stream.buffer_size must be at least 1, got %d", c.Stream.BufferSize)
	}
	switch c.Store.Backend {
	case "memory":
	case "database":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the database backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (expected memory or database)", c.Store.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
