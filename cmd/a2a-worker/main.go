// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command a2a-worker claims tasks from the dispatch queue and runs a
// simple echo executor against them. It shares the task store and queue
// with a2a-server; point both at the same database and NATS deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rileyseaburg/A2A-Server-MCP-sub002/internal/config"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/dispatch"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/event"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/task"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "a2a-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks, sessions, err := newStores(cfg.Store)
	if err != nil {
		return err
	}
	if err := tasks.Initialize(ctx); err != nil {
		return err
	}
	if err := sessions.Initialize(ctx); err != nil {
		return err
	}

	leases := dispatch.NewLeaseTable(
		dispatch.WithLeaseTTL(cfg.Dispatch.LeaseTTL),
		dispatch.WithLeaseLogger(logger),
	)

	coordOpts := []server.CoordinatorOption{
		server.WithLogger(logger),
		server.WithMaxAttempts(cfg.Dispatch.MaxAttempts),
	}

	// The in-process queue never leaves its process, so a standalone worker
	// is only meaningful against a shared NATS deployment. Without one, run
	// a2a-server alone; it embeds a worker.
	if cfg.NATS.URL == "" {
		return fmt.Errorf("nats.url is required: a2a-worker shares its queue with a2a-server over NATS")
	}

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	queue, err := dispatch.NewNATSQueue(dispatch.NATSQueueConfig{
		Conn:    nc,
		Subject: cfg.NATS.Subject,
		Group:   cfg.NATS.QueueGroup,
	})
	if err != nil {
		return err
	}
	// Cancels issued by the server process arrive over the relay and
	// reach whichever lease this process holds.
	relay, err := dispatch.NewNATSCancelRelay(nc, "", func(taskID string) {
		leases.SignalCancel(taskID)
	})
	if err != nil {
		return err
	}
	// This process has no streams of its own; every event its executors
	// report travels back to the stream-owning server over the relay.
	eventRelay, err := dispatch.NewNATSEventRelay(nc, "")
	if err != nil {
		return err
	}
	coordOpts = append(coordOpts,
		server.WithCancelRelay(relay),
		server.WithEventRelay(eventRelay),
	)

	coord := server.NewCoordinator(tasks, sessions, queue, leases, event.NewMultiplexer(), coordOpts...)
	coord.Start(ctx)
	defer func() {
		if err := coord.Close(context.Background()); err != nil {
			logger.Error("coordinator shutdown", slog.Any("error", err))
		}
	}()

	runner, err := worker.NewRunner(server.NewGateway(coord), &worker.EchoExecutor{}, cfg.Worker.ID,
		worker.WithConcurrency(cfg.Worker.Concurrency),
		worker.WithHeartbeatInterval(cfg.Worker.HeartbeatInterval),
		worker.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "worker running",
		slog.String("worker_id", cfg.Worker.ID),
		slog.Int("concurrency", cfg.Worker.Concurrency))
	return runner.Run(ctx)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newStores(cfg config.StoreConfig) (task.TaskStore, task.SessionStore, error) {
	if cfg.Backend == "memory" {
		return task.NewInMemoryTaskStore(), task.NewInMemorySessionStore(), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	tasks, err := task.NewDatabaseTaskStore(task.DatabaseTaskStoreConfig{DB: db, CreateTable: true})
	if err != nil {
		return nil, nil, err
	}
	sessions, err := task.NewDatabaseSessionStore(db, true)
	if err != nil {
		return nil, nil, err
	}
	return tasks, sessions, nil
}
