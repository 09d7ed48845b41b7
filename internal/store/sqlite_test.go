// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/repolens/pkg/orchestrator"
)

type fakeHeads struct {
	heads map[string]string
}

func (f *fakeHeads) BranchHead(ctx context.Context, repoName, branch string) (string, error) {
	return f.heads[repoName+"@"+branch], nil
}

func openTestStore(t *testing.T) (*SQLiteStore, *fakeHeads) {
	t.Helper()
	heads := &fakeHeads{heads: map[string]string{}}
	s, err := Open(":memory:", heads, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, heads
}

func seedProject(t *testing.T, s *SQLiteStore, p orchestrator.Project) {
	t.Helper()
	require.NoError(t, s.Register(context.Background(), &p))
}

func TestRegisterAndLookup(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	seedProject(t, s, orchestrator.Project{
		ID: "p1", RepoName: "acme/widgets", Branch: "main", UserID: "u1",
		Status: orchestrator.StatusPending, CommitID: "abc",
		Properties: map[string]string{"language": "go"},
	})

	byID, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "acme/widgets", byID.RepoName)
	assert.Equal(t, orchestrator.StatusPending, byID.Status)
	assert.Equal(t, "go", byID.Properties["language"])
	assert.False(t, byID.CreatedAt.IsZero())

	byTuple, err := s.GetByRepoBranchUser(ctx, "acme/widgets", "main", "u1")
	require.NoError(t, err)
	require.NotNil(t, byTuple)
	assert.Equal(t, "p1", byTuple.ID)

	absent, err := s.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestUpdateStatus(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seedProject(t, s, orchestrator.Project{
		ID: "p1", RepoName: "acme/widgets", Branch: "main", UserID: "u1",
		Status: orchestrator.StatusPending,
	})

	require.NoError(t, s.UpdateStatus(ctx, "p1", orchestrator.StatusReady))
	p, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusReady, p.Status)

	assert.Error(t, s.UpdateStatus(ctx, "nope", orchestrator.StatusReady))
}

func TestGetGlobalTemplate(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seedProject(t, s, orchestrator.Project{
		ID: "user-copy", RepoName: "acme/widgets", Branch: "main", UserID: "u1",
		Status: orchestrator.StatusReady,
	})
	seedProject(t, s, orchestrator.Project{
		ID: "tmpl", RepoName: "acme/widgets", Branch: "main", UserID: "admin",
		Status: orchestrator.StatusReady, IsDemo: true,
	})

	tmpl, err := s.GetGlobalTemplate(ctx, "acme/widgets", "main")
	require.NoError(t, err)
	require.NotNil(t, tmpl)
	assert.Equal(t, "tmpl", tmpl.ID)

	none, err := s.GetGlobalTemplate(ctx, "acme/widgets", "dev")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDuplicateCopiesPropertiesAndCommit(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seedProject(t, s, orchestrator.Project{
		ID: "target", RepoName: "acme/widgets", Branch: "main", UserID: "u1",
		Status: orchestrator.StatusPending,
	})

	props := map[string]string{"language": "go", "size": "large"}
	require.NoError(t, s.Duplicate(ctx, "src", "target", props, "deadbeef"))

	p, err := s.GetByID(ctx, "target")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", p.CommitID)
	assert.Equal(t, props, p.Properties)
}

func TestIsLatestCommit(t *testing.T) {
	s, heads := openTestStore(t)
	ctx := context.Background()
	seedProject(t, s, orchestrator.Project{
		ID: "p1", RepoName: "acme/widgets", Branch: "main", UserID: "u1",
		Status: orchestrator.StatusReady, CommitID: "abc",
	})

	heads.heads["acme/widgets@main"] = "abc"
	latest, err := s.IsLatestCommit(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, latest)

	heads.heads["acme/widgets@main"] = "def"
	latest, err = s.IsLatestCommit(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, latest)
}

func TestIsLatestCommit_DemoIsPinned(t *testing.T) {
	s, heads := openTestStore(t)
	ctx := context.Background()
	seedProject(t, s, orchestrator.Project{
		ID: "tmpl", RepoName: "acme/widgets", Branch: "main", UserID: "admin",
		Status: orchestrator.StatusReady, CommitID: "old", IsDemo: true,
	})
	heads.heads["acme/widgets@main"] = "new"

	latest, err := s.IsLatestCommit(ctx, "tmpl")
	require.NoError(t, err)
	assert.True(t, latest, "demo projects never report stale")
}

func TestRegisterPinsBranchHead(t *testing.T) {
	s, heads := openTestStore(t)
	ctx := context.Background()
	heads.heads["acme/widgets@main"] = "abc123"

	seedProject(t, s, orchestrator.Project{
		ID: "p1", RepoName: "acme/widgets", Branch: "main", UserID: "u1",
		Status: orchestrator.StatusPending,
	})

	p, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", p.CommitID)

	latest, err := s.IsLatestCommit(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, latest)
}

func TestIsLatestCommit_MissingBranch(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seedProject(t, s, orchestrator.Project{
		ID: "p1", RepoName: "acme/widgets", Branch: "gone", UserID: "u1",
		Status: orchestrator.StatusReady, CommitID: "abc",
	})

	latest, err := s.IsLatestCommit(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, latest)
}
