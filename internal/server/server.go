// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package server exposes orchestration, structure and content extraction
// over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/repolens/pkg/orchestrator"
)

// BranchLister enumerates a repository's branches, default branch first.
// *remote.Resolver satisfies it.
type BranchLister interface {
	Branches(ctx context.Context, repoName string) ([]string, error)
}

// Server is the HTTP front of the service.
type Server struct {
	orch     *orchestrator.Orchestrator
	branches BranchLister
	logger   *slog.Logger
	httpSrv  *http.Server
}

// New wires the HTTP routes.
func New(addr string, orch *orchestrator.Orchestrator, branches BranchLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{orch: orch, branches: branches, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/parse", s.handleSubmitParse)
	mux.HandleFunc("GET /v1/parse/{projectID}/status", s.handleParseStatus)
	mux.HandleFunc("GET /v1/projects/{projectID}/structure", s.handleStructure)
	mux.HandleFunc("GET /v1/projects/{projectID}/content", s.handleContent)
	mux.HandleFunc("GET /v1/repos/{owner}/{repo}/branches", s.handleBranches)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // structure resolution of wide repos can be slow
	}
	return s
}

// Handler returns the route tree. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server.listen", "addr", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
