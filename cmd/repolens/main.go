// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package main runs the repolens service: repository structure resolution,
// content extraction and parse orchestration behind an HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kraklabs/repolens/internal/bootstrap"
	"github.com/kraklabs/repolens/internal/config"
	rlerrors "github.com/kraklabs/repolens/internal/errors"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "repolens.yaml", "Path to the YAML configuration file")
		logJSON     = pflag.Bool("log-json", false, "Emit logs as JSON instead of text")
		logLevel    = pflag.String("log-level", "info", "Log level: debug, info, warn, error")
		showVersion = pflag.Bool("version", false, "Show version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("repolens %s (%s)\n", version, commit)
		return
	}

	logger, err := buildLogger(*logJSON, *logLevel)
	if err != nil {
		rlerrors.FatalError(err)
	}
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		rlerrors.FatalError(err)
	}
}

func run(configPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("server.shutdown.start")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("draining requests: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server.shutdown.complete")
	return nil
}

func buildLogger(json bool, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}
