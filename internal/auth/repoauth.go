package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kofron/lattice/internal/constants"
)

// CheckFunc establishes RepoAuthorized for token; it is supplied from
// outside so this package stays forge-agnostic. The engine's check counts
// the repository as authorized when a one-item open-PR listing against it
// succeeds; it does not enumerate the user's forge installations or their
// repositories.
type CheckFunc func(ctx context.Context, token string) (bool, error)

// repoAuthCache is the on-disk shape of the RepoAuthorized cache.
type repoAuthCache struct {
	Authorized bool      `json:"authorized"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// RepoAuthorizer establishes and caches whether the current user is
// authorized against the current repository's forge installation, with a
// 10-minute TTL. Cache misses and verification failures are
// warnings in non-remote scans but hard blockers for remote commands —
// that distinction is the caller's responsibility, not this package's.
type RepoAuthorizer struct {
	provider  *TokenProvider
	cachePath string
	ttl       time.Duration
	check     CheckFunc
}

// NewRepoAuthorizer builds a RepoAuthorizer caching at cachePath.
func NewRepoAuthorizer(provider *TokenProvider, cachePath string, check CheckFunc) *RepoAuthorizer {
	return &RepoAuthorizer{
		provider:  provider,
		cachePath: cachePath,
		ttl:       constants.RepoAuthorizedCacheTTL,
		check:     check,
	}
}

// IsAuthorized returns whether the repo is authorized, and whether that
// answer came from cache.
func (r *RepoAuthorizer) IsAuthorized(ctx context.Context) (authorized bool, fromCache bool, err error) {
	if cached, ok := r.loadFresh(); ok {
		return cached.Authorized, true, nil
	}

	token, err := r.provider.BearerToken(ctx)
	if err != nil {
		return false, false, fmt.Errorf("fetching token for authorization check: %w", err)
	}

	ok, err := r.check(ctx, token)
	if err != nil {
		return false, false, fmt.Errorf("checking repo authorization: %w", err)
	}

	if cacheErr := r.store(ok); cacheErr != nil {
		// A cache-write failure must not block an otherwise-successful check.
		return ok, false, nil
	}
	return ok, false, nil
}

func (r *RepoAuthorizer) loadFresh() (*repoAuthCache, bool) {
	data, err := os.ReadFile(r.cachePath)
	if err != nil {
		return nil, false
	}
	var cached repoAuthCache
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	if time.Since(cached.FetchedAt) > r.ttl {
		return nil, false
	}
	return &cached, true
}

func (r *RepoAuthorizer) store(authorized bool) error {
	if err := os.MkdirAll(filepath.Dir(r.cachePath), 0o755); err != nil {
		return fmt.Errorf("creating auth cache dir: %w", err)
	}
	cached := repoAuthCache{Authorized: authorized, FetchedAt: time.Now()}
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshaling auth cache: %w", err)
	}
	return os.WriteFile(r.cachePath, data, 0o644)
}
