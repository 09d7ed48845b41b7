// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package bootstrap wires configuration into a runnable service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kraklabs/repolens/internal/analytics"
	"github.com/kraklabs/repolens/internal/config"
	"github.com/kraklabs/repolens/internal/dispatch"
	"github.com/kraklabs/repolens/internal/graphstore"
	"github.com/kraklabs/repolens/internal/notify"
	"github.com/kraklabs/repolens/internal/server"
	"github.com/kraklabs/repolens/internal/store"
	"github.com/kraklabs/repolens/pkg/content"
	"github.com/kraklabs/repolens/pkg/orchestrator"
	"github.com/kraklabs/repolens/pkg/remote"
	"github.com/kraklabs/repolens/pkg/structure"
)

// App is the fully wired service.
type App struct {
	Config *config.Config
	Server *server.Server
	Logger *slog.Logger

	projects *store.SQLiteStore
}

// New builds every component from config. The returned App owns the
// project store; call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Info("bootstrap.start", "addr", cfg.Server.Addr, "graph_store", cfg.GraphStore.Type)

	var creds *remote.AppCredentials
	if cfg.GitHub.AppID != 0 {
		pem, err := os.ReadFile(cfg.GitHub.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading github app key: %w", err)
		}
		creds, err = remote.ParseAppCredentials(cfg.GitHub.AppID, pem)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("bootstrap.github.no_app", "msg", "no app configured, installation tier disabled")
	}

	hosts, err := remote.NewResolver(cfg.GitHub.APIBaseURL, creds, cfg.GitHub.TokenPool, logger)
	if err != nil {
		return nil, err
	}

	projects, err := store.Open(cfg.Store.Path, hosts, logger)
	if err != nil {
		return nil, err
	}

	graphs, err := graphstore.New(ctx, cfg.GraphStore, logger)
	if err != nil {
		projects.Close()
		return nil, err
	}
	dispatcher, err := dispatch.New(cfg.Dispatcher, logger)
	if err != nil {
		projects.Close()
		return nil, err
	}
	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		projects.Close()
		return nil, err
	}
	events, err := analytics.New(cfg.Analytics, logger)
	if err != nil {
		projects.Close()
		return nil, err
	}

	structures := structure.NewResolver(hosts, structure.NewCache(), structure.Config{
		MaxDepth: cfg.Structure.MaxDepth,
		Workers:  cfg.Structure.Workers,
		CacheTTL: time.Duration(cfg.Structure.CacheTTL),
	}, logger)
	extractor := content.NewExtractor(hosts, logger)

	orch := orchestrator.New(orchestrator.Deps{
		Store:      projects,
		Dispatcher: dispatcher,
		Graphs:     graphs,
		Notifier:   notifier,
		Analytics:  events,
		Structure:  structures,
		Content:    extractor,
		IsDemoRepo: cfg.IsDemoRepo,
		Logger:     logger,
	})

	srv := server.New(cfg.Server.Addr, orch, hosts, logger)

	logger.Info("bootstrap.complete", "duration", time.Since(start))
	return &App{
		Config:   cfg,
		Server:   srv,
		Logger:   logger,
		projects: projects,
	}, nil
}

// Close releases resources owned by the app.
func (a *App) Close() error {
	return a.projects.Close()
}
