// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package notify sends best-effort parse completion mail.
package notify

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

// mailPayload is the body posted to the mail relay.
type mailPayload struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to"`
	RepoName string `json:"repo_name"`
	Branch   string `json:"branch"`
	Template string `json:"template"`
}

// HTTP delivers completion mail through an internal relay endpoint.
type HTTP struct {
	endpoint   string
	from       string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTP creates an HTTP notifier.
func NewHTTP(endpoint, from string, logger *slog.Logger) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTP{
		endpoint:   endpoint,
		from:       from,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (n *HTTP) SendCompletionEmail(ctx context.Context, address, repoName, branch string) error {
	body, err := json.Marshal(mailPayload{
		From:     n.from,
		To:       address,
		RepoName: repoName,
		Branch:   branch,
		Template: "parse_complete",
	})
	if err != nil {
		return fmt.Errorf("encoding mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending completion mail to %s: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail relay rejected with status %d", resp.StatusCode)
	}
	n.logger.Info("notify.mail.sent", "repo", repoName, "branch", branch)
	return nil
}

// Noop drops every notification.
type Noop struct{}

func (Noop) SendCompletionEmail(ctx context.Context, address, repoName, branch string) error {
	return nil
}

// New creates a notifier from config.
func New(cfg config.NotifyConfig, logger *slog.Logger) (orchestrator.Notifier, error) {
	switch cfg.Type {
	case "", "noop":
		return Noop{}, nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("endpoint required for http notifier")
		}
		return NewHTTP(cfg.Endpoint, cfg.From, logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Type)
	}
}
