// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package dispatch hands parse jobs to the background worker queue.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kraklabs/repolens/internal/config"
	"github.com/kraklabs/repolens/pkg/orchestrator"
)

// HTTP enqueues jobs by POSTing them to a worker endpoint. Delivery is
// at-least-once; the worker must tolerate duplicate jobs for the same
// project.
type HTTP struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTP creates an HTTP dispatcher.
func NewHTTP(endpoint string, logger *slog.Logger) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTP{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Enqueue submits one job. The response body is discarded; only the status
// code matters.
func (d *HTTP) Enqueue(ctx context.Context, job orchestrator.ParseJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding parse job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building enqueue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enqueueing parse job for project %s: %w", job.ProjectID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("enqueue rejected with status %d", resp.StatusCode)
	}
	d.logger.Info("dispatch.enqueue.accepted", "project_id", job.ProjectID, "repo", job.RepoName, "force_cleanup", job.ForceCleanup)
	return nil
}

// Noop accepts and drops every job. Used when no worker is deployed.
type Noop struct {
	logger *slog.Logger
}

// NewNoop creates a dispatcher that logs jobs instead of delivering them.
func NewNoop(logger *slog.Logger) *Noop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Noop{logger: logger}
}

func (d *Noop) Enqueue(ctx context.Context, job orchestrator.ParseJob) error {
	d.logger.Info("dispatch.enqueue.dropped", "project_id", job.ProjectID, "repo", job.RepoName)
	return nil
}

// New creates a dispatcher from config.
func New(cfg config.DispatcherConfig, logger *slog.Logger) (orchestrator.JobDispatcher, error) {
	switch cfg.Type {
	case "", "noop":
		return NewNoop(logger), nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("endpoint required for http dispatcher")
		}
		return NewHTTP(cfg.Endpoint, logger), nil
	default:
		return nil, fmt.Errorf("unknown dispatcher type: %s", cfg.Type)
	}
}
