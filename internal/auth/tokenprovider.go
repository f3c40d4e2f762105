// Package auth is the credential boundary above internal/secretstore: a
// TokenProvider that refreshes bearer tokens transparently under a
// double-checked per-host lock, and a RepoAuthorized check with a
// short-TTL cache.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kofron/lattice/internal/latticepaths"
	"github.com/kofron/lattice/internal/secretstore"
)

// TokenProvider hands out a valid bearer token for one forge host,
// refreshing through the secret store only when the cached token is
// missing or expired. Concurrent callers serialize on a per-host advisory
// file lock so only one process performs the refresh RPC at a time; every
// other caller blocks, then re-checks before refreshing — the classic
// double-checked pattern. The re-check reads this process's cached value,
// so a waiter in the same process reuses the token another goroutine just
// fetched, while a waiter in another process reads the secret store again.
type TokenProvider struct {
	secrets *secretstore.Client
	homeDir string
	host    string

	mu     sync.Mutex
	cached *secretstore.ForgeToken
}

// NewTokenProvider builds a TokenProvider for host, backed by secrets and
// the per-user auth lock rooted at homeDir.
func NewTokenProvider(secrets *secretstore.Client, homeDir, host string) *TokenProvider {
	return &TokenProvider{secrets: secrets, homeDir: homeDir, host: host}
}

// BearerToken returns a currently-valid access token, refreshing if needed.
func (p *TokenProvider) BearerToken(ctx context.Context) (string, error) {
	if tok, ok := p.freshCached(); ok {
		return tok, nil
	}
	return p.refresh(ctx)
}

func (p *TokenProvider) freshCached() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		return "", false
	}
	if !p.cached.ExpiresAt.IsZero() && !time.Now().Before(p.cached.ExpiresAt) {
		return "", false
	}
	return p.cached.Token.Reveal(), true
}

func (p *TokenProvider) refresh(ctx context.Context) (string, error) {
	lock, err := latticepaths.NewAuthLock(p.homeDir, p.host)
	if err != nil {
		return "", fmt.Errorf("acquiring auth lock for %s: %w", p.host, err)
	}
	if err := lock.Lock(ctx); err != nil {
		return "", fmt.Errorf("acquiring auth lock for %s: %w", p.host, err)
	}
	defer lock.Unlock()

	// Re-check: another goroutine of this process may have refreshed while
	// we waited.
	if tok, ok := p.freshCached(); ok {
		return tok, nil
	}

	tok, err := p.secrets.GetForgeToken(p.host)
	if err != nil {
		return "", fmt.Errorf("refreshing token for %s: %w", p.host, err)
	}

	p.mu.Lock()
	p.cached = tok
	p.mu.Unlock()

	return tok.Token.Reveal(), nil
}

// Invalidate drops the cached token, forcing the next BearerToken call to
// refresh. No forge adapter in this module calls it: the GitHub adapter
// does not retry a request that failed with 401/403.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}
