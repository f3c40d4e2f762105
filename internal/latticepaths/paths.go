// Package latticepaths is the single place that knows where Lattice's
// repo-scoped state lives on disk. Every other component asks this package
// for a path rather than joining strings itself, so a layout change is a
// one-file edit.
package latticepaths

import "path/filepath"

// Paths holds every on-disk location Lattice reads or writes for one
// repository, rooted at common_dir so linked worktrees share state.
type Paths struct {
	CommonDir string
}

// New builds a Paths rooted at the repository's common_dir (the directory
// shared by all worktrees — see gitx.RepoInfo.CommonDir).
func New(commonDir string) *Paths {
	return &Paths{CommonDir: commonDir}
}

func (p *Paths) root() string {
	return filepath.Join(p.CommonDir, "lattice")
}

// Config is the repo-level config.toml (trunk, remote name, forge identity
// overrides).
func (p *Paths) Config() string {
	return filepath.Join(p.root(), "config.toml")
}

// Lock is the advisory repo-scoped exclusive lock file.
func (p *Paths) Lock() string {
	return filepath.Join(p.root(), "lock")
}

// OpState is the in-progress/awaiting-user marker file.
func (p *Paths) OpState() string {
	return filepath.Join(p.root(), "op-state.json")
}

// OpsDir is the directory holding per-operation journals.
func (p *Paths) OpsDir() string {
	return filepath.Join(p.root(), "ops")
}

// Journal returns the journal path for a specific operation id.
func (p *Paths) Journal(opID string) string {
	return filepath.Join(p.OpsDir(), opID+".json")
}

// CacheDir is the directory holding cached, TTL-bound evidence (e.g. the
// RepoAuthorized cache).
func (p *Paths) CacheDir() string {
	return filepath.Join(p.root(), "cache")
}

// GitHubAuthCache is the RepoAuthorized cache file (10-minute TTL).
func (p *Paths) GitHubAuthCache() string {
	return filepath.Join(p.CacheDir(), "github_auth.json")
}

// UserAuthDir is the user-home auth root (~/.lattice/auth), distinct from
// repo-scoped state: tokens are per-user, not per-repository.
func UserAuthDir(homeDir string) string {
	return filepath.Join(homeDir, ".lattice", "auth")
}

// HostAuthLock returns the per-host token-refresh lock path.
func HostAuthLock(homeDir, host string) string {
	return filepath.Join(UserAuthDir(homeDir), "lock."+host)
}
