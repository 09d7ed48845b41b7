// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package orchestrator

import "context"

// ProjectStore owns project persistence. Lookup methods return (nil, nil)
// when no matching project exists; errors are reserved for storage
// failures.
type ProjectStore interface {
	GetByID(ctx context.Context, id string) (*Project, error)
	GetByRepoBranchUser(ctx context.Context, repoName, branch, userID string) (*Project, error)

	// GetGlobalTemplate finds a demo template project for (repo, branch)
	// regardless of owning user.
	GetGlobalTemplate(ctx context.Context, repoName, branch string) (*Project, error)

	Register(ctx context.Context, p *Project) error
	UpdateStatus(ctx context.Context, id string, status Status) error

	// Duplicate copies properties and the indexed commit from an existing
	// project onto targetID.
	Duplicate(ctx context.Context, sourceID, targetID string, properties map[string]string, commitID string) error

	// IsLatestCommit reports whether the project's indexed commit is
	// still the head of its branch.
	IsLatestCommit(ctx context.Context, id string) (bool, error)
}

// ParseJob is the payload handed to the background parse worker.
type ParseJob struct {
	RepoName  string `json:"repo_name"`
	Branch    string `json:"branch"`
	Path      string `json:"path,omitempty"`
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	ProjectID string `json:"project_id"`

	// ForceCleanup makes the worker drop any previously stored graph for
	// the project before rebuilding it.
	ForceCleanup bool `json:"force_cleanup"`
}

// JobDispatcher hands parse jobs to the background worker. Enqueue is
// fire-and-forget with at-least-once delivery; the orchestrator never
// awaits job completion.
type JobDispatcher interface {
	Enqueue(ctx context.Context, job ParseJob) error
}

// GraphStore duplicates a project's stored graph under a new project
// identity. Used only on the demo fast path.
type GraphStore interface {
	DuplicateGraph(ctx context.Context, sourceProjectID, targetProjectID string) error
}

// Notifier sends best-effort completion mail.
type Notifier interface {
	SendCompletionEmail(ctx context.Context, address, repoName, branch string) error
}

// Analytics records best-effort product events.
type Analytics interface {
	RecordEvent(ctx context.Context, userID, event string, properties map[string]any) error
}

// StructureWarmer resolves and caches a project's rendered structure.
// *structure.Resolver satisfies it.
type StructureWarmer interface {
	Resolve(ctx context.Context, projectID, repoName, rootPath string) (string, error)
}

// FileExtractor extracts decoded file content. *content.Extractor
// satisfies it.
type FileExtractor interface {
	Extract(ctx context.Context, repoName, filePath string, startLine, endLine int, ref string) (string, error)
}
