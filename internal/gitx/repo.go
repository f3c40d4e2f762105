package gitx

import (
	"context"
	"os"
	"path/filepath"
)

// Context classifies the repository a Client was opened against.
type Context string

const (
	ContextNormal   Context = "normal"
	ContextWorktree Context = "worktree"
	ContextBare     Context = "bare"
)

// RepoInfo is the classified location of a repository.
type RepoInfo struct {
	GitDir    string
	CommonDir string
	WorkDir   string // empty for bare repos
	Context   Context
}

// Open classifies the repository rooted at cwd: work_dir.is_none() → Bare;
// git_dir != common_dir → Worktree; else Normal.
func Open(ctx context.Context, cwd string) (*RepoInfo, error) {
	c := NewClient(cwd)

	gitDir, err := c.run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return nil, &NotARepoError{Path: cwd}
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(cwd, gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	commonDir, err := c.run(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return nil, &InternalError{Message: "git-common-dir failed after git-dir succeeded", Err: err}
	}
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(cwd, commonDir)
	}
	commonDir = filepath.Clean(commonDir)

	isBareOut, err := c.run(ctx, "rev-parse", "--is-bare-repository")
	if err != nil {
		return nil, &InternalError{Message: "is-bare-repository failed", Err: err}
	}

	info := &RepoInfo{GitDir: gitDir, CommonDir: commonDir}

	if isBareOut == "true" {
		info.Context = ContextBare
		return info, nil
	}

	workDir, err := c.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		// A non-bare repo with no resolvable worktree (e.g. corrupt
		// checkout) — treat conservatively as bare so callers never
		// assume a working directory exists.
		info.Context = ContextBare
		return info, nil
	}
	info.WorkDir = filepath.Clean(workDir)

	if gitDir != commonDir {
		info.Context = ContextWorktree
	} else {
		info.Context = ContextNormal
	}
	return info, nil
}

// LocalExists reports whether a plausible Git repository exists at path.
func LocalExists(path string) bool {
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(path, "HEAD")); err == nil {
		if _, err := os.Stat(filepath.Join(path, "refs")); err == nil {
			return true
		}
	}
	return false
}
