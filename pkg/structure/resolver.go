// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package structure

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kraklabs/repolens/internal/errors"
	"github.com/kraklabs/repolens/pkg/remote"
)

// excludedExtensions lists file extensions dropped from the structure:
// binary, image, video and notebook formats that downstream parsing never
// consumes. Directories are never filtered.
var excludedExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {}, "tiff": {},
	"webp": {}, "ico": {}, "svg": {},
	"mp4": {}, "avi": {}, "mov": {}, "wmv": {}, "flv": {},
	"ipynb": {}, "zlib": {},
}

// RepoSource is the slice of the remote layer the resolver needs.
// *remote.Resolver satisfies it.
type RepoSource interface {
	Repo(ctx context.Context, repoName string) (*remote.RepoInfo, error)
	Contents(ctx context.Context, repoName, path, ref string) ([]remote.Entry, error)
}

// Config bounds a Resolver.
type Config struct {
	// MaxDepth is the traversal depth limit relative to the traversal
	// root. Subtrees at the limit are replaced by a truncation marker.
	MaxDepth int

	// Workers caps concurrent remote contents fetches per resolution.
	Workers int

	// CacheTTL is how long rendered structures stay cached.
	CacheTTL time.Duration
}

// Resolver discovers a repository's directory tree and renders it.
type Resolver struct {
	source RepoSource
	cache  *Cache
	cfg    Config
	logger *slog.Logger
}

// NewResolver creates a structure resolver.
func NewResolver(source RepoSource, cache *Cache, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 4
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	structMetrics.init()
	return &Resolver{source: source, cache: cache, cfg: cfg, logger: logger}
}

// cacheKey disambiguates project, exact root path and depth so a shallow
// query never serves a deeper cached value or vice versa.
func (r *Resolver) cacheKey(projectID, rootPath string) string {
	return fmt.Sprintf("structure:%s:path:%s:depth:%d", projectID, rootPath, r.cfg.MaxDepth)
}

// Resolve returns the rendered structure of the project's repository,
// starting at rootPath ("" means repository root). Results are cached per
// (project, path, depth) with the configured TTL.
func (r *Resolver) Resolve(ctx context.Context, projectID, repoName, rootPath string) (string, error) {
	key := r.cacheKey(projectID, rootPath)
	if text, ok := r.cache.Get(key); ok {
		structMetrics.cacheHits.Inc()
		r.logger.Debug("structure.resolve.cache_hit", "project_id", projectID, "path", rootPath)
		return text, nil
	}
	structMetrics.cacheMisses.Inc()

	start := time.Now()
	r.logger.Info("structure.resolve.start", "project_id", projectID, "repo", repoName, "path", rootPath)

	info, err := r.source.Repo(ctx, repoName)
	if err != nil {
		return "", err
	}

	if rootPath != "" {
		if _, err := r.source.Contents(ctx, repoName, rootPath, ""); err != nil {
			return "", errors.NewPathNotFound(rootPath)
		}
	}

	// One bounded fetch pool per resolution: sibling fan-out may spawn a
	// goroutine per subdirectory, but at most Workers remote calls are in
	// flight at once.
	sem := semaphore.NewWeighted(int64(r.cfg.Workers))
	root := r.fetchDir(ctx, repoName, rootPath, rootPath, info.Name, sem)

	sortChildren(root)
	text := Render(root)

	r.cache.Set(key, text, r.cfg.CacheTTL)
	structMetrics.resolutions.Inc()
	structMetrics.resolveDuration.Observe(time.Since(start).Seconds())
	r.logger.Info("structure.resolve.complete",
		"project_id", projectID,
		"repo", repoName,
		"duration", time.Since(start),
	)
	return text, nil
}

// relDepth computes depth relative to the traversal root actually used,
// not the absolute path depth.
func relDepth(p, basePath string) int {
	if basePath != "" {
		rel := strings.Trim(strings.TrimPrefix(p, basePath), "/")
		if rel == "" {
			return 0
		}
		return len(strings.Split(rel, "/"))
	}
	if p == "" {
		return 0
	}
	return len(strings.Split(p, "/"))
}

// fetchDir enumerates one directory and recurses into subdirectories,
// fanning sibling subtrees out concurrently. Remote fetches are bounded by
// sem. A failed listing degrades to an empty directory instead of aborting
// the traversal.
func (r *Resolver) fetchDir(ctx context.Context, repoName, dirPath, basePath, rootName string, sem *semaphore.Weighted) *Node {
	name := path.Base(dirPath)
	if dirPath == "" || name == "." || name == "/" {
		name = rootName
	}
	node := &Node{Kind: KindDirectory, Name: name}

	if relDepth(dirPath, basePath) >= r.cfg.MaxDepth {
		structMetrics.truncations.Inc()
		node.Children = []*Node{truncatedNode()}
		return node
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		structMetrics.subtreeErrors.Inc()
		r.logger.Warn("structure.fetch.subtree_error", "repo", repoName, "path", dirPath, "err", err)
		return node
	}
	entries, err := r.source.Contents(ctx, repoName, dirPath, "")
	sem.Release(1)
	if err != nil {
		structMetrics.subtreeErrors.Inc()
		r.logger.Warn("structure.fetch.subtree_error", "repo", repoName, "path", dirPath, "err", err)
		return node
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, e := range entries {
		switch e.Type {
		case "dir":
			wg.Add(1)
			go func(e remote.Entry) {
				defer wg.Done()
				child := r.fetchDir(ctx, repoName, e.Path, basePath, rootName, sem)
				mu.Lock()
				node.Children = append(node.Children, child)
				mu.Unlock()
			}(e)
		case "file":
			if isExcluded(e.Name) {
				continue
			}
			mu.Lock()
			node.Children = append(node.Children, &Node{Kind: KindFile, Name: e.Name, Path: e.Path})
			mu.Unlock()
		}
	}
	wg.Wait()

	return node
}

func isExcluded(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	_, excluded := excludedExtensions[ext]
	return excluded
}
