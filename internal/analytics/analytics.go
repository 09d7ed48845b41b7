// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package analytics records best-effort product events.
package analytics

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

// event is the body posted to the capture endpoint.
type event struct {
	UserID     string         `json:"user_id"`
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// HTTP posts events to a capture endpoint authenticated by API key.
type HTTP struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewHTTP creates an HTTP analytics client.
func NewHTTP(endpoint, apiKey string, logger *slog.Logger) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTP{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

func (a *HTTP) RecordEvent(ctx context.Context, userID, name string, properties map[string]any) error {
	body, err := json.Marshal(event{
		UserID:     userID,
		Event:      name,
		Properties: properties,
		Timestamp:  a.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("recording event %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("capture rejected with status %d", resp.StatusCode)
	}
	return nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) RecordEvent(ctx context.Context, userID, name string, properties map[string]any) error {
	return nil
}

// New creates an analytics client from config.
func New(cfg config.AnalyticsConfig, logger *slog.Logger) (orchestrator.Analytics, error) {
	switch cfg.Type {
	case "", "noop":
		return Noop{}, nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("endpoint required for http analytics")
		}
		return NewHTTP(cfg.Endpoint, cfg.APIKey, logger), nil
	default:
		return nil, fmt.Errorf("unknown analytics type: %s", cfg.Type)
	}
}
