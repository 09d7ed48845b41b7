// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package testing provides shared helpers for repolens tests.
package testing

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/kraklabs/repolens/internal/store"
	"github.com/kraklabs/repolens/pkg/orchestrator"
)

// Logger returns a debug-level slog.Logger that writes through t.Log, so
// service log lines show up attached to the failing test.
func Logger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// SetupProjectStore creates an in-memory project store, migrated and
// cleaned up with the test.
func SetupProjectStore(t *testing.T, heads store.BranchHeadSource) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(":memory:", heads, Logger(t))
	if err != nil {
		t.Fatalf("failed to open test project store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// SeedProject inserts a project, failing the test on error.
func SeedProject(t *testing.T, s *store.SQLiteStore, p orchestrator.Project) {
	t.Helper()
	if err := s.Register(context.Background(), &p); err != nil {
		t.Fatalf("failed to seed project %s: %v", p.ID, err)
	}
}
