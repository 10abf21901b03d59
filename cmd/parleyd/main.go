// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// parleyd is the Parley chat server: an HTTP service that manages agent
// sessions, streams turn output over SSE, and records conversation
// history in a local SQLite database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/parley-labs/parley/lib/agent"
	"github.com/parley-labs/parley/lib/chatstore"
	"github.com/parley-labs/parley/lib/clock"
	"github.com/parley-labs/parley/lib/config"
	"github.com/parley-labs/parley/lib/httpapi"
	"github.com/parley-labs/parley/lib/service"
	"github.com/parley-labs/parley/lib/stream"
	"github.com/parley-labs/parley/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		listenAddr  string
		dbPath      string
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("parleyd", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to parley.yaml (default: $PARLEY_CONFIG)")
	flagSet.StringVar(&listenAddr, "listen", "", "listen address override")
	flagSet.StringVar(&dbPath, "db", "", "database path override")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("parleyd %s\n", version.Info())
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles, err := agent.LoadProfiles(cfg.Agents.ProfilesFile)
	if err != nil {
		return fmt.Errorf("loading agent profiles: %w", err)
	}
	runner := agent.NewCLIRunner(profiles, clock.Real(), logger)

	store, err := chatstore.Open(chatstore.Config{
		Path:     cfg.Store.Path,
		PoolSize: cfg.Store.PoolSize,
		Clock:    clock.Real(),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("opening chat store %s: %w", cfg.Store.Path, err)
	}
	defer store.Close()

	orchestrator, err := stream.New(stream.Config{
		Sessions:        store,
		Messages:        store,
		Runner:          runner,
		Traces:          store,
		Clock:           clock.Real(),
		Logger:          logger,
		DefaultAgentID:  cfg.Agents.DefaultAgent,
		DefaultPrompt:   cfg.Turn.DefaultPrompt,
		HeartbeatPeriod: cfg.Turn.HeartbeatPeriod.Std(),
		MaxAttachments:  cfg.Turn.MaxAttachments,
	})
	if err != nil {
		return err
	}

	api, err := httpapi.New(httpapi.Config{
		Orchestrator: orchestrator,
		Sessions:     store,
		Messages:     store,
		Attachments:  store,
		Traces:       store,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address:         cfg.Server.Listen,
		Handler:         api.Handler(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
		Logger:          logger,
	})

	logger.Info("parleyd starting",
		"version", version.Info(),
		"listen", cfg.Server.Listen,
		"db", cfg.Store.Path)
	return server.Serve(ctx)
}
