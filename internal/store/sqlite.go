// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package store persists projects in SQLite and answers commit freshness
// queries against the remote branch head.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/kraklabs/repolens/internal/store/migrations"
	"github.com/kraklabs/repolens/pkg/orchestrator"
)

// BranchHeadSource answers which commit currently heads a branch.
// *remote.Resolver satisfies it.
type BranchHeadSource interface {
	BranchHead(ctx context.Context, repoName, branch string) (string, error)
}

// SQLiteStore implements orchestrator.ProjectStore on a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	heads  BranchHeadSource
	logger *slog.Logger
}

// Open creates a SQLiteStore at path (":memory:" for an in-memory
// database) and applies pending migrations.
func Open(path string, heads BranchHeadSource, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening project database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, heads: heads, logger: logger}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const projectColumns = "id, repo_name, branch, user_id, status, commit_id, properties, is_demo, created_at, updated_at"

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*orchestrator.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	return scanProject(row)
}

func (s *SQLiteStore) GetByRepoBranchUser(ctx context.Context, repoName, branch, userID string) (*orchestrator.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE repo_name = ? AND branch = ? AND user_id = ?",
		repoName, branch, userID)
	return scanProject(row)
}

// GetGlobalTemplate finds a demo template for (repo, branch) regardless of
// owner. With several candidates the oldest wins, keeping the choice
// stable.
func (s *SQLiteStore) GetGlobalTemplate(ctx context.Context, repoName, branch string) (*orchestrator.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE repo_name = ? AND branch = ? AND is_demo = 1 ORDER BY created_at LIMIT 1",
		repoName, branch)
	return scanProject(row)
}

// Register inserts a project. A project without an indexed commit gets
// pinned to the current branch head so staleness can be derived later;
// failure to resolve the head is logged, not fatal.
func (s *SQLiteStore) Register(ctx context.Context, p *orchestrator.Project) error {
	if p.CommitID == "" && s.heads != nil {
		head, err := s.heads.BranchHead(ctx, p.RepoName, p.Branch)
		if err != nil {
			s.logger.Warn("store.register.pin_failed", "repo", p.RepoName, "branch", p.Branch, "err", err)
		} else {
			p.CommitID = head
		}
	}

	props, err := json.Marshal(p.Properties)
	if err != nil {
		return fmt.Errorf("encoding project properties: %w", err)
	}
	if p.Properties == nil {
		props = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, repo_name, branch, user_id, status, commit_id, properties, is_demo)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RepoName, p.Branch, p.UserID, string(p.Status), p.CommitID, string(props), boolToInt(p.IsDemo))
	if err != nil {
		return fmt.Errorf("registering project %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status orchestrator.Status) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET status = ?, updated_at = datetime('now') WHERE id = ?",
		string(status), id)
	if err != nil {
		return fmt.Errorf("updating status of project %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("project %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) Duplicate(ctx context.Context, sourceID, targetID string, properties map[string]string, commitID string) error {
	props, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("encoding project properties: %w", err)
	}
	if properties == nil {
		props = []byte("{}")
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET properties = ?, commit_id = ?, updated_at = datetime('now') WHERE id = ?",
		string(props), commitID, targetID)
	if err != nil {
		return fmt.Errorf("duplicating project %s onto %s: %w", sourceID, targetID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("project %s not found", targetID)
	}
	return nil
}

// IsLatestCommit compares the project's indexed commit against the current
// branch head. Demo projects are pinned and always report true.
func (s *SQLiteStore) IsLatestCommit(ctx context.Context, id string) (bool, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, fmt.Errorf("project %s not found", id)
	}
	if p.IsDemo {
		return true, nil
	}
	if p.CommitID == "" {
		return false, nil
	}

	head, err := s.heads.BranchHead(ctx, p.RepoName, p.Branch)
	if err != nil {
		return false, fmt.Errorf("resolving head of %s@%s: %w", p.RepoName, p.Branch, err)
	}
	if head == "" {
		// Branch gone upstream; the indexed commit cannot be current.
		s.logger.Warn("store.branch_head.missing", "repo", p.RepoName, "branch", p.Branch)
		return false, nil
	}
	return head == p.CommitID, nil
}

func scanProject(row *sql.Row) (*orchestrator.Project, error) {
	var (
		p         orchestrator.Project
		status    string
		props     string
		isDemo    int
		createdAt string
		updatedAt string
	)
	err := row.Scan(&p.ID, &p.RepoName, &p.Branch, &p.UserID, &status, &p.CommitID, &props, &isDemo, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	p.Status = orchestrator.Status(status)
	p.IsDemo = isDemo != 0
	if err := json.Unmarshal([]byte(props), &p.Properties); err != nil {
		return nil, fmt.Errorf("decoding project properties: %w", err)
	}
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return &p, nil
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
