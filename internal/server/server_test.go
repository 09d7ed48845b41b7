// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/repolens/internal/analytics"
	"github.com/kraklabs/repolens/internal/dispatch"
	"github.com/kraklabs/repolens/internal/graphstore"
	"github.com/kraklabs/repolens/internal/notify"
	"github.com/kraklabs/repolens/internal/store"
	rltest "github.com/kraklabs/repolens/internal/testing"
	"github.com/kraklabs/repolens/pkg/orchestrator"
)

type stubHeads struct{}

func (stubHeads) BranchHead(ctx context.Context, repoName, branch string) (string, error) {
	return "abc123", nil
}

type stubWarmer struct{}

func (stubWarmer) Resolve(ctx context.Context, projectID, repoName, rootPath string) (string, error) {
	return "widgets\n└── main.go", nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, repoName, filePath string, startLine, endLine int, ref string) (string, error) {
	return "package main", nil
}

type stubBranches struct{}

func (stubBranches) Branches(ctx context.Context, repoName string) ([]string, error) {
	return []string{"main", "dev"}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()

	logger := rltest.Logger(t)
	projects := rltest.SetupProjectStore(t, stubHeads{})

	orch := orchestrator.New(orchestrator.Deps{
		Store:      projects,
		Dispatcher: dispatch.NewNoop(nil),
		Graphs:     graphstore.NewMemory(),
		Notifier:   notify.Noop{},
		Analytics:  analytics.Noop{},
		Structure:  stubWarmer{},
		Content:    stubExtractor{},
		Logger:     logger,
	})

	srv := httptest.NewServer(New(":0", orch, stubBranches{}, logger).Handler())
	t.Cleanup(srv.Close)
	return srv, projects
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestSubmitParseAndStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"repo_name": "acme/widgets", "branch": "main", "user_id": "u1"}`
	resp, err := http.Post(srv.URL+"/v1/parse", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	res := decode[orchestrator.ParseResult](t, resp)
	assert.NotEmpty(t, res.ProjectID)
	assert.Equal(t, orchestrator.StatusSubmitted, res.Status)

	resp, err = http.Get(srv.URL + "/v1/parse/" + res.ProjectID + "/status?user_id=u1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decode[orchestrator.StatusResult](t, resp)
	assert.Equal(t, orchestrator.StatusSubmitted, status.Status)
}

func TestSubmitParse_MissingUser(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/parse", "application/json",
		strings.NewReader(`{"repo_name": "acme/widgets"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseStatus_SeededReadyProject(t *testing.T) {
	srv, projects := newTestServer(t)
	rltest.SeedProject(t, projects, orchestrator.Project{
		ID:       "p-ready",
		RepoName: "acme/widgets",
		Branch:   "main",
		UserID:   "u1",
		Status:   orchestrator.StatusReady,
	})

	resp, err := http.Get(srv.URL + "/v1/parse/p-ready/status?user_id=u1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decode[orchestrator.StatusResult](t, resp)
	assert.Equal(t, orchestrator.StatusReady, status.Status)
	assert.True(t, status.IsLatest)
}

func TestParseStatus_UnknownProject(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/parse/nope/status?user_id=u1")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	errBody := decode[map[string]string](t, resp)
	assert.Equal(t, "project_not_found", errBody["error"])
}

func TestStructureEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/parse", "application/json",
		strings.NewReader(`{"repo_name": "acme/widgets", "branch": "main", "user_id": "u1"}`))
	require.NoError(t, err)
	res := decode[orchestrator.ParseResult](t, resp)

	resp, err = http.Get(srv.URL + "/v1/projects/" + res.ProjectID + "/structure?user_id=u1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["structure"], "main.go")
}

func TestContentEndpoint_InvalidRange(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/parse", "application/json",
		strings.NewReader(`{"repo_name": "acme/widgets", "branch": "main", "user_id": "u1"}`))
	require.NoError(t, err)
	res := decode[orchestrator.ParseResult](t, resp)

	resp, err = http.Get(srv.URL + "/v1/projects/" + res.ProjectID + "/content?user_id=u1&path=main.go&start=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBranchesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/repos/acme/widgets/branches")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string][]string](t, resp)
	assert.Equal(t, []string{"main", "dev"}, body["branches"])
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
