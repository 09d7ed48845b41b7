// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package remote obtains authenticated handles to GitHub repositories.
//
// Access is two-tiered: an installation-scoped credential exchange is tried
// first, and on any failure a token drawn at random from a configured pool
// of public tokens is used instead. The fallback is applied independently at
// every call site, because which tier succeeds may differ per call due to
// token rotation or rate limits.
package remote

import "context"

// Tier records which authentication tier produced a handle.
type Tier string

const (
	// TierInstallation is the installation-token tier of a GitHub App.
	TierInstallation Tier = "installation"

	// TierPublic is the public personal-access-token pool tier.
	TierPublic Tier = "public"
)

// RepoInfo describes a repository as reported by the remote service.
type RepoInfo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Entry is one item of a contents listing. For single-file lookups Content
// carries the base64-encoded file body; directory listings leave it empty.
type Entry struct {
	Type     string `json:"type"` // "file" or "dir"
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Branch is one branch of a repository with its head commit.
type Branch struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// GitHost is the capability surface the rest of the service depends on.
// Both the installation-tier and public-tier clients satisfy it.
type GitHost interface {
	// GetRepo fetches repository metadata for "owner/name".
	GetRepo(ctx context.Context, repoName string) (*RepoInfo, error)

	// GetContents lists a directory or fetches a single file. path "" is
	// the repository root; ref "" is the default branch.
	GetContents(ctx context.Context, repoName, path, ref string) ([]Entry, error)

	// GetBranches lists all branches of the repository.
	GetBranches(ctx context.Context, repoName string) ([]Branch, error)
}

// Handle is an authenticated session bound to one repository. It is created
// per request and never persisted.
type Handle struct {
	host     GitHost
	tier     Tier
	repoName string
	info     *RepoInfo
}

// Tier reports which authentication tier produced the handle.
func (h *Handle) Tier() Tier { return h.tier }

// Repo returns the repository metadata resolved with the handle.
func (h *Handle) Repo() *RepoInfo { return h.info }

// Contents lists a directory or fetches a file through the handle's tier.
func (h *Handle) Contents(ctx context.Context, path, ref string) ([]Entry, error) {
	return h.host.GetContents(ctx, h.repoName, path, ref)
}

// Branches lists branches through the handle's tier.
func (h *Handle) Branches(ctx context.Context) ([]Branch, error) {
	return h.host.GetBranches(ctx, h.repoName)
}
