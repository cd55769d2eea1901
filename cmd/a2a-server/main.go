// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command a2a-server runs the task coordination server: the JSON-RPC and
// SSE endpoint, the agent card, and the dispatch queue workers claim from.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/auth"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/internal/config"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/dispatch"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/event"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/handler"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/task"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "a2a-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := newStores(cfg.Store)
	if err != nil {
		return err
	}
	if err := stores.tasks.Initialize(ctx); err != nil {
		return err
	}
	if err := stores.sessions.Initialize(ctx); err != nil {
		return err
	}

	leases := dispatch.NewLeaseTable(
		dispatch.WithLeaseTTL(cfg.Dispatch.LeaseTTL),
		dispatch.WithLeaseLogger(logger),
	)
	mux := event.NewMultiplexer(
		event.WithBufferSize(cfg.Stream.BufferSize),
		event.WithLogger(logger),
	)

	registry := prometheus.NewRegistry()
	metrics := server.NewMetrics(registry)

	coordOpts := []server.CoordinatorOption{
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithMaxAttempts(cfg.Dispatch.MaxAttempts),
		server.WithCancelHardTimeout(cfg.Dispatch.CancelHardTimeout),
	}

	var queue dispatch.Queue
	var eventRelay *dispatch.NATSEventRelay
	if cfg.NATS.URL == "" {
		logger.Info("using in-process dispatch queue")
		queue = dispatch.NewMemoryQueue(cfg.Dispatch.QueueSize)
	} else {
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		queue, err = dispatch.NewNATSQueue(dispatch.NATSQueueConfig{
			Conn:    nc,
			Subject: cfg.NATS.Subject,
			Group:   cfg.NATS.QueueGroup,
		})
		if err != nil {
			return err
		}
		relay, err := dispatch.NewNATSCancelRelay(nc, "", func(taskID string) {
			leases.SignalCancel(taskID)
		})
		if err != nil {
			return err
		}
		eventRelay, err = dispatch.NewNATSEventRelay(nc, "")
		if err != nil {
			return err
		}
		coordOpts = append(coordOpts,
			server.WithCancelRelay(relay),
			server.WithEventRelay(eventRelay),
		)
	}

	coord := server.NewCoordinator(stores.tasks, stores.sessions, queue, leases, mux, coordOpts...)
	coord.Start(ctx)
	defer func() {
		if err := coord.Close(context.Background()); err != nil {
			logger.Error("coordinator shutdown", slog.Any("error", err))
		}
	}()

	if eventRelay != nil {
		// Workers in other processes report progress over the relay; feed
		// those events into this process's stream multiplexer.
		if err := eventRelay.Listen(func(ev *a2a.StreamEvent) {
			coord.InjectEvent(context.Background(), ev)
		}); err != nil {
			return err
		}
	} else {
		// The in-process queue is invisible to other processes, so this
		// process runs its own worker against the shared coordinator.
		runner, err := worker.NewRunner(server.NewGateway(coord), &worker.EchoExecutor{}, cfg.Worker.ID,
			worker.WithConcurrency(cfg.Worker.Concurrency),
			worker.WithHeartbeatInterval(cfg.Worker.HeartbeatInterval),
			worker.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		go func() {
			if err := runner.Run(ctx); err != nil {
				logger.Error("embedded worker stopped", slog.Any("error", err))
			}
		}()
	}

	card := a2a.AgentCard{
		Name:        cfg.Agent.Name,
		Description: cfg.Agent.Description,
		URL:         cfg.Agent.URL,
		Version:     cfg.Agent.Version,
		Capabilities: a2a.AgentCapabilities{
			Streaming: cfg.Agent.Streaming,
		},
	}

	h := handler.New(coord, card, handler.WithLogger(logger))

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: auth.Middleware(h),
	}
	metricsServer := &http.Server{
		Addr:    cfg.Server.MetricsAddr,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	errc := make(chan error, 2)
	go func() {
		logger.InfoContext(ctx, "server listening",
			slog.String("addr", cfg.Server.ListenAddr),
			slog.String("store", cfg.Store.Backend))
		errc <- httpServer.ListenAndServe()
	}()
	go func() {
		logger.InfoContext(ctx, "metrics listening", slog.String("addr", cfg.Server.MetricsAddr))
		errc <- metricsServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown", slog.Any("error", err))
	}
	return nil
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

type stores struct {
	tasks    task.TaskStore
	sessions task.SessionStore
}

func newStores(cfg config.StoreConfig) (*stores, error) {
	if cfg.Backend == "memory" {
		return &stores{
			tasks:    task.NewInMemoryTaskStore(),
			sessions: task.NewInMemorySessionStore(),
		}, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	tasks, err := task.NewDatabaseTaskStore(task.DatabaseTaskStoreConfig{
		DB:          db,
		CreateTable: true,
	})
	if err != nil {
		return nil, err
	}
	sessions, err := task.NewDatabaseSessionStore(db, true)
	if err != nil {
		return nil, err
	}
	return &stores{tasks: tasks, sessions: sessions}, nil
}
