// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package remote

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/kraklabs/repolens/internal/errors"
)

// installationTokenTTL is how long a cached installation token is reused.
// GitHub issues them for one hour; the margin avoids using a token that is
// about to expire mid-traversal.
const installationTokenTTL = 50 * time.Minute

// Resolver obtains GitHost access to repositories with two-tier fallback:
// installation credentials first, then a random token from the public pool.
// The fallback runs independently on every call, since rate limits and
// token rotation can make tiers succeed or fail per call.
type Resolver struct {
	baseURL   string
	creds     *AppCredentials // nil disables the installation tier
	tokenPool []string
	logger    *slog.Logger

	mu         sync.Mutex
	instHosts  map[string]cachedHost // repoName -> installation-tier client
	randSource func(n int) int
}

type cachedHost struct {
	host    GitHost
	expires time.Time
}

// NewResolver creates a resolver. creds may be nil, in which case only the
// public tier is used. The token pool must not be empty.
func NewResolver(baseURL string, creds *AppCredentials, tokenPool []string, logger *slog.Logger) (*Resolver, error) {
	if len(tokenPool) == 0 {
		return nil, fmt.Errorf("public token pool is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		creds:      creds,
		tokenPool:  tokenPool,
		logger:     logger,
		instHosts:  make(map[string]cachedHost),
		randSource: rand.Intn,
	}, nil
}

// publicHost draws a token at random from the pool.
func (r *Resolver) publicHost() GitHost {
	token := r.tokenPool[r.randSource(len(r.tokenPool))]
	return NewClient(r.baseURL, token)
}

// installationHost returns a cached installation-tier client for the repo,
// performing the credential exchange when the cache is cold or expired.
func (r *Resolver) installationHost(ctx context.Context, repoName string) (GitHost, error) {
	if r.creds == nil {
		return nil, fmt.Errorf("installation tier not configured")
	}

	r.mu.Lock()
	if cached, ok := r.instHosts[repoName]; ok && time.Now().Before(cached.expires) {
		r.mu.Unlock()
		return cached.host, nil
	}
	r.mu.Unlock()

	token, err := ExchangeInstallationToken(ctx, r.baseURL, r.creds, repoName)
	if err != nil {
		return nil, err
	}
	host := NewClient(r.baseURL, token)

	r.mu.Lock()
	r.instHosts[repoName] = cachedHost{host: host, expires: time.Now().Add(installationTokenTTL)}
	r.mu.Unlock()

	return host, nil
}

// withFallback runs op against the installation tier and retries it against
// the public tier on any failure. The returned tier says which attempt
// succeeded.
func (r *Resolver) withFallback(ctx context.Context, repoName string, op func(GitHost) error) (Tier, error) {
	host, err := r.installationHost(ctx, repoName)
	if err == nil {
		err = op(host)
		if err == nil {
			return TierInstallation, nil
		}
		// A failed op may mean a stale token; drop the cache entry so the
		// next call re-exchanges.
		r.mu.Lock()
		delete(r.instHosts, repoName)
		r.mu.Unlock()
	}

	r.logger.Info("remote.fallback.public", "repo", repoName, "err", err)

	if pubErr := op(r.publicHost()); pubErr != nil {
		r.logger.Error("remote.fallback.failed", "repo", repoName, "installation_err", err, "public_err", pubErr)
		return TierPublic, errors.NewRepositoryUnavailable(repoName, pubErr)
	}
	return TierPublic, nil
}

// Resolve obtains an authenticated handle to the repository and returns it
// together with the owner login.
func (r *Resolver) Resolve(ctx context.Context, repoName string) (*Handle, string, error) {
	var (
		info *RepoInfo
		host GitHost
	)

	tier, err := r.withFallback(ctx, repoName, func(h GitHost) error {
		ri, err := h.GetRepo(ctx, repoName)
		if err != nil {
			return err
		}
		info = ri
		host = h
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	r.logger.Debug("remote.resolve.success", "repo", repoName, "tier", string(tier))
	return &Handle{host: host, tier: tier, repoName: repoName, info: info}, info.Owner.Login, nil
}

// Repo fetches repository metadata with per-call fallback.
func (r *Resolver) Repo(ctx context.Context, repoName string) (*RepoInfo, error) {
	var info *RepoInfo
	_, err := r.withFallback(ctx, repoName, func(h GitHost) error {
		ri, err := h.GetRepo(ctx, repoName)
		if err != nil {
			return err
		}
		info = ri
		return nil
	})
	return info, err
}

// Contents lists a directory or fetches a file with per-call fallback.
func (r *Resolver) Contents(ctx context.Context, repoName, path, ref string) ([]Entry, error) {
	var entries []Entry
	_, err := r.withFallback(ctx, repoName, func(h GitHost) error {
		es, err := h.GetContents(ctx, repoName, path, ref)
		if err != nil {
			return err
		}
		entries = es
		return nil
	})
	return entries, err
}

// Branches lists branches with per-call fallback, default branch first.
func (r *Resolver) Branches(ctx context.Context, repoName string) ([]string, error) {
	handle, _, err := r.Resolve(ctx, repoName)
	if err != nil {
		return nil, err
	}

	branches, err := handle.Branches(ctx)
	if err != nil {
		// The handle's tier worked moments ago but this call may still hit
		// a rate limit; run the listing through the fallback path.
		_, fbErr := r.withFallback(ctx, repoName, func(h GitHost) error {
			bs, err := h.GetBranches(ctx, repoName)
			if err != nil {
				return err
			}
			branches = bs
			return nil
		})
		if fbErr != nil {
			return nil, fbErr
		}
	}

	defaultBranch := handle.Repo().DefaultBranch
	names := []string{defaultBranch}
	for _, b := range branches {
		if b.Name != defaultBranch {
			names = append(names, b.Name)
		}
	}
	return names, nil
}

// BranchHead returns the head commit SHA of a branch, with per-call
// fallback. Returns the empty string when the branch does not exist.
func (r *Resolver) BranchHead(ctx context.Context, repoName, branch string) (string, error) {
	var sha string
	_, err := r.withFallback(ctx, repoName, func(h GitHost) error {
		branches, err := h.GetBranches(ctx, repoName)
		if err != nil {
			return err
		}
		for _, b := range branches {
			if b.Name == branch {
				sha = b.Commit.SHA
				return nil
			}
		}
		return nil
	})
	return sha, err
}
