// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package orchestrator decides, per parse request, whether to reuse an
// existing project, clone a demo project's already-computed graph, or
// submit a fresh parsing job.
package orchestrator

import "time"

// Status is a project's parse lifecycle state.
type Status string

const (
	// StatusPending marks a project registered but not yet handed to a
	// parse job.
	StatusPending Status = "pending"

	// StatusSubmitted marks a project whose parse job is enqueued or
	// running.
	StatusSubmitted Status = "submitted"

	// StatusReady marks a project whose graph is complete and queryable.
	StatusReady Status = "ready"
)

// Project is the persistent record of one parsed (repository, branch,
// user) combination. The orchestrator reads and transitions Status but
// storage belongs to the ProjectStore.
type Project struct {
	ID         string
	RepoName   string
	Branch     string
	UserID     string
	Status     Status
	CommitID   string
	Properties map[string]string
	IsDemo     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ParseRequest carries one inbound parse submission. It is not retained
// after the orchestration decision is made.
type ParseRequest struct {
	RepoName  string
	Branch    string
	Path      string
	UserID    string
	UserEmail string
}

// ParseResult is the outcome of a parse submission.
type ParseResult struct {
	ProjectID string `json:"project_id"`
	Status    Status `json:"status"`
}

// StatusResult reports a project's current state and whether its indexed
// commit is still the branch head.
type StatusResult struct {
	Status   Status `json:"status"`
	IsLatest bool   `json:"is_latest"`
}
