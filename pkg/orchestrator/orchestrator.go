// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/repolens/internal/errors"
)

// backgroundTimeout bounds fire-and-forget side effects spawned by a
// submission (cache warm, mail, analytics).
const backgroundTimeout = 2 * time.Minute

// Deps are the collaborators an Orchestrator is wired with.
type Deps struct {
	Store      ProjectStore
	Dispatcher JobDispatcher
	Graphs     GraphStore
	Notifier   Notifier
	Analytics  Analytics
	Structure  StructureWarmer
	Content    FileExtractor

	// IsDemoRepo reports whether a repository is a template-eligible
	// demo whose content is pinned.
	IsDemoRepo func(repoName string) bool

	Logger *slog.Logger
}

// Orchestrator is the request-scoped decision layer between inbound parse
// submissions and the background parse worker.
type Orchestrator struct {
	deps Deps

	// newID is replaceable in tests.
	newID func() string
}

// New creates an orchestrator. Logger and IsDemoRepo may be nil.
func New(d Deps) *Orchestrator {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.IsDemoRepo == nil {
		d.IsDemoRepo = func(string) bool { return false }
	}
	orchMetrics.init()
	return &Orchestrator{deps: d, newID: newProjectID}
}

func newProjectID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SubmitParse runs the orchestration state machine for one request: reuse
// an up-to-date ready project, clone a ready demo template's graph, or
// dispatch a parse job. A ready project with a fresh commit never triggers
// a new job.
func (o *Orchestrator) SubmitParse(ctx context.Context, req ParseRequest) (*ParseResult, error) {
	if req.RepoName == "" {
		return nil, errors.NewInvalidInput("repository name is required", "")
	}
	if req.UserID == "" {
		return nil, errors.NewInvalidInput("user id is required", "")
	}

	proj, err := o.deps.Store.GetByRepoBranchUser(ctx, req.RepoName, req.Branch, req.UserID)
	if err != nil {
		return nil, o.fail("orchestrate.lookup.failed", err, "repo", req.RepoName, "user_id", req.UserID)
	}
	if proj != nil {
		return o.submitExisting(ctx, req, proj)
	}

	tmpl, err := o.deps.Store.GetGlobalTemplate(ctx, req.RepoName, req.Branch)
	if err != nil {
		return nil, o.fail("orchestrate.template_lookup.failed", err, "repo", req.RepoName)
	}
	if tmpl != nil && tmpl.IsDemo && tmpl.Status == StatusReady {
		return o.cloneDemo(ctx, req, tmpl)
	}

	return o.submitNew(ctx, req)
}

// submitExisting decides for a project the user already has.
func (o *Orchestrator) submitExisting(ctx context.Context, req ParseRequest, proj *Project) (*ParseResult, error) {
	// Demo content is pinned, so a ready demo project skips the
	// staleness check entirely.
	if proj.Status == StatusReady && o.deps.IsDemoRepo(proj.RepoName) {
		orchMetrics.reuses.Inc()
		o.deps.Logger.Info("orchestrate.submit.reused", "project_id", proj.ID, "repo", proj.RepoName, "demo", true)
		return &ParseResult{ProjectID: proj.ID, Status: StatusReady}, nil
	}

	latest, err := o.deps.Store.IsLatestCommit(ctx, proj.ID)
	if err != nil {
		return nil, o.fail("orchestrate.staleness_check.failed", err, "project_id", proj.ID)
	}
	if latest && proj.Status == StatusReady {
		orchMetrics.reuses.Inc()
		o.deps.Logger.Info("orchestrate.submit.reused", "project_id", proj.ID, "repo", proj.RepoName)
		return &ParseResult{ProjectID: proj.ID, Status: proj.Status}, nil
	}

	// Stale or unfinished: resubmit, clearing the previously stored
	// graph before the rebuild.
	if err := o.deps.Store.UpdateStatus(ctx, proj.ID, StatusSubmitted); err != nil {
		return nil, o.fail("orchestrate.status_update.failed", err, "project_id", proj.ID)
	}
	if err := o.deps.Dispatcher.Enqueue(ctx, o.job(req, proj.ID, true)); err != nil {
		return nil, o.fail("orchestrate.enqueue.failed", err, "project_id", proj.ID)
	}
	orchMetrics.jobsEnqueued.Inc()
	orchMetrics.resubmissions.Inc()
	o.deps.Logger.Info("orchestrate.submit.resubmitted",
		"project_id", proj.ID,
		"repo", proj.RepoName,
		"stale", !latest,
		"prev_status", proj.Status,
	)

	o.recordEvent(req.UserID, "project_reparsed", map[string]any{
		"project_id": proj.ID,
		"repo":       req.RepoName,
		"branch":     req.Branch,
	})

	return &ParseResult{ProjectID: proj.ID, Status: StatusSubmitted}, nil
}

// cloneDemo runs the zero-cost fast path: copy a ready demo template's
// stored graph under a freshly allocated project identity. The background
// parse worker is never involved.
func (o *Orchestrator) cloneDemo(ctx context.Context, req ParseRequest, tmpl *Project) (*ParseResult, error) {
	id := o.newID()
	p := &Project{
		ID:       id,
		RepoName: req.RepoName,
		Branch:   req.Branch,
		UserID:   req.UserID,
		Status:   StatusPending,
		CommitID: tmpl.CommitID,
	}
	if err := o.deps.Store.Register(ctx, p); err != nil {
		return nil, o.fail("orchestrate.register.failed", err, "repo", req.RepoName)
	}
	if err := o.deps.Store.Duplicate(ctx, tmpl.ID, id, tmpl.Properties, tmpl.CommitID); err != nil {
		return nil, o.fail("orchestrate.duplicate.failed", err, "project_id", id, "template_id", tmpl.ID)
	}
	if err := o.deps.Store.UpdateStatus(ctx, id, StatusSubmitted); err != nil {
		return nil, o.fail("orchestrate.status_update.failed", err, "project_id", id)
	}

	// Graph duplication gates ready: on failure the project stays
	// submitted and is never publicly visible as complete.
	if err := o.deps.Graphs.DuplicateGraph(ctx, tmpl.ID, id); err != nil {
		return nil, o.fail("orchestrate.graph_duplicate.failed", err, "project_id", id, "template_id", tmpl.ID)
	}
	if err := o.deps.Store.UpdateStatus(ctx, id, StatusReady); err != nil {
		return nil, o.fail("orchestrate.status_update.failed", err, "project_id", id)
	}

	orchMetrics.demoClones.Inc()
	o.deps.Logger.Info("orchestrate.submit.demo_cloned",
		"project_id", id,
		"template_id", tmpl.ID,
		"repo", req.RepoName,
	)

	o.warmStructure(id, req.RepoName)
	if req.UserEmail != "" {
		o.spawn("notify", func(ctx context.Context) error {
			return o.deps.Notifier.SendCompletionEmail(ctx, req.UserEmail, req.RepoName, req.Branch)
		})
	}
	o.recordEvent(req.UserID, "demo_project_cloned", map[string]any{
		"project_id": id,
		"repo":       req.RepoName,
		"branch":     req.Branch,
	})

	return &ParseResult{ProjectID: id, Status: StatusReady}, nil
}

// submitNew registers a fresh project and dispatches its first parse job.
func (o *Orchestrator) submitNew(ctx context.Context, req ParseRequest) (*ParseResult, error) {
	id := o.newID()
	p := &Project{
		ID:       id,
		RepoName: req.RepoName,
		Branch:   req.Branch,
		UserID:   req.UserID,
		Status:   StatusPending,
	}
	if err := o.deps.Store.Register(ctx, p); err != nil {
		return nil, o.fail("orchestrate.register.failed", err, "repo", req.RepoName)
	}
	if err := o.deps.Dispatcher.Enqueue(ctx, o.job(req, id, false)); err != nil {
		return nil, o.fail("orchestrate.enqueue.failed", err, "project_id", id)
	}
	if err := o.deps.Store.UpdateStatus(ctx, id, StatusSubmitted); err != nil {
		return nil, o.fail("orchestrate.status_update.failed", err, "project_id", id)
	}

	orchMetrics.jobsEnqueued.Inc()
	o.deps.Logger.Info("orchestrate.submit.dispatched", "project_id", id, "repo", req.RepoName, "branch", req.Branch)

	o.warmStructure(id, req.RepoName)
	o.recordEvent(req.UserID, "project_created", map[string]any{
		"project_id": id,
		"repo":       req.RepoName,
		"branch":     req.Branch,
	})

	return &ParseResult{ProjectID: id, Status: StatusSubmitted}, nil
}

// ParseStatus reports a project's lifecycle state. Demo projects are
// always considered up to date.
func (o *Orchestrator) ParseStatus(ctx context.Context, projectID, userID string) (*StatusResult, error) {
	proj, err := o.lookup(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	latest := true
	if !proj.IsDemo && !o.deps.IsDemoRepo(proj.RepoName) {
		latest, err = o.deps.Store.IsLatestCommit(ctx, proj.ID)
		if err != nil {
			return nil, o.fail("orchestrate.staleness_check.failed", err, "project_id", proj.ID)
		}
	}
	return &StatusResult{Status: proj.Status, IsLatest: latest}, nil
}

// ResolveStructure renders (and caches) the project repository's tree.
func (o *Orchestrator) ResolveStructure(ctx context.Context, projectID, userID, path string) (string, error) {
	proj, err := o.lookup(ctx, projectID, userID)
	if err != nil {
		return "", err
	}
	return o.deps.Structure.Resolve(ctx, proj.ID, proj.RepoName, path)
}

// ExtractContent returns decoded file text for a project's repository.
// An empty ref falls back to the project's branch.
func (o *Orchestrator) ExtractContent(ctx context.Context, projectID, userID, path string, startLine, endLine int, ref string) (string, error) {
	proj, err := o.lookup(ctx, projectID, userID)
	if err != nil {
		return "", err
	}
	if ref == "" {
		ref = proj.Branch
	}
	return o.deps.Content.Extract(ctx, proj.RepoName, path, startLine, endLine, ref)
}

// lookup fetches a project and checks the caller may see it. Ownership by
// another user reads the same as absence; demo projects are visible to
// everyone.
func (o *Orchestrator) lookup(ctx context.Context, projectID, userID string) (*Project, error) {
	if projectID == "" {
		return nil, errors.NewInvalidInput("project id is required", "")
	}
	proj, err := o.deps.Store.GetByID(ctx, projectID)
	if err != nil {
		return nil, o.fail("orchestrate.lookup.failed", err, "project_id", projectID)
	}
	if proj == nil {
		return nil, errors.NewProjectNotFound(projectID)
	}
	if userID != "" && proj.UserID != userID && !proj.IsDemo {
		return nil, errors.NewProjectNotFound(projectID)
	}
	return proj, nil
}

func (o *Orchestrator) job(req ParseRequest, projectID string, forceCleanup bool) ParseJob {
	return ParseJob{
		RepoName:     req.RepoName,
		Branch:       req.Branch,
		Path:         req.Path,
		UserID:       req.UserID,
		UserEmail:    req.UserEmail,
		ProjectID:    projectID,
		ForceCleanup: forceCleanup,
	}
}

// warmStructure pre-populates the structure cache for a project without
// blocking the submission response.
func (o *Orchestrator) warmStructure(projectID, repoName string) {
	o.spawn("cache_warm", func(ctx context.Context) error {
		_, err := o.deps.Structure.Resolve(ctx, projectID, repoName, "")
		return err
	})
}

func (o *Orchestrator) recordEvent(userID, event string, props map[string]any) {
	o.spawn("analytics", func(ctx context.Context) error {
		return o.deps.Analytics.RecordEvent(ctx, userID, event, props)
	})
}

// spawn runs a best-effort side effect in the background. Failures are
// logged and never propagate to the caller.
func (o *Orchestrator) spawn(name string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			o.deps.Logger.Warn("orchestrate.background.failed", "task", name, "err", err)
		}
	}()
}

// fail logs an orchestration failure with context and converts it for the
// caller. Errors without a service kind surface as generic internal.
func (o *Orchestrator) fail(event string, err error, args ...any) error {
	o.deps.Logger.Error(event, append(args, "err", err)...)
	return errors.AsService(err)
}
