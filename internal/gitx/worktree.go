package gitx

import (
	"context"
	"strings"

	"github.com/kofron/lattice/internal/constants"
)

// Worktree describes one entry from `git worktree list --porcelain`.
type Worktree struct {
	Path   string
	Head   Oid
	Branch string // empty if detached
	Bare   bool
}

// Worktrees enumerates all worktrees linked to this repository, porcelain-
// parsed into typed structs.
func (c *Client) Worktrees(ctx context.Context) ([]Worktree, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultOperationTimeout)
	defer cancel()

	out, err := c.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, &IoError{Op: "worktree list", Err: err}
	}

	var result []Worktree
	var cur *Worktree
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			if cur != nil {
				result = append(result, *cur)
			}
			cur = &Worktree{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD "):
			if cur != nil {
				cur.Head = Oid(strings.TrimPrefix(line, "HEAD "))
			}
		case strings.HasPrefix(line, "branch "):
			if cur != nil {
				cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
			}
		case line == "bare":
			if cur != nil {
				cur.Bare = true
			}
		}
	}
	if cur != nil {
		result = append(result, *cur)
	}
	return result, nil
}

// BranchCheckout describes a branch checked out in some worktree.
type BranchCheckout struct {
	Branch       string
	WorktreePath string
}

// BranchesCheckedOutElsewhere returns, among candidates, the ones checked
// out in a worktree whose path is not currentWorkDir — this is the occupancy check
// the Executor re-runs under the repo lock before mutating any touched
// branch.
func (c *Client) BranchesCheckedOutElsewhere(ctx context.Context, candidates []string, currentWorkDir string) ([]BranchCheckout, error) {
	worktrees, err := c.Worktrees(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(candidates))
	for _, b := range candidates {
		wanted[b] = true
	}

	var out []BranchCheckout
	for _, wt := range worktrees {
		if wt.Branch == "" || !wanted[wt.Branch] {
			continue
		}
		if wt.Path == currentWorkDir {
			continue
		}
		out = append(out, BranchCheckout{Branch: wt.Branch, WorktreePath: wt.Path})
	}
	return out, nil
}

// LocalBranches returns every local branch and its tip OID.
func (c *Client) LocalBranches(ctx context.Context) (map[string]Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultOperationTimeout)
	defer cancel()

	out, err := c.run(ctx, "for-each-ref", "--format=%(refname:short) %(objectname)", "refs/heads")
	if err != nil {
		return nil, &IoError{Op: "for-each-ref refs/heads", Err: err}
	}

	result := map[string]Oid{}
	if out == "" {
		return result, nil
	}
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		result[parts[0]] = Oid(parts[1])
	}
	return result, nil
}

// RefsWithPrefix returns every ref under prefix and its target OID, keyed
// by the ref's full name. Used by the scanner to enumerate
// refs/branch-metadata/* without assuming anything about branch naming.
func (c *Client) RefsWithPrefix(ctx context.Context, prefix string) (map[string]Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultOperationTimeout)
	defer cancel()

	out, err := c.run(ctx, "for-each-ref", "--format=%(refname) %(objectname)", prefix)
	if err != nil {
		return nil, &IoError{Op: "for-each-ref " + prefix, Err: err}
	}

	result := map[string]Oid{}
	if out == "" {
		return result, nil
	}
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		result[parts[0]] = Oid(parts[1])
	}
	return result, nil
}

// CurrentBranch returns the checked-out branch name, or "" if detached.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.BranchOperationTimeout)
	defer cancel()

	out, exitCode, err := c.runExitCode(ctx, "symbolic-ref", "-q", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	if exitCode != 0 {
		return "", nil // detached HEAD
	}
	return out, nil
}

// WorktreeStatusKind classifies the current working tree.
type WorktreeStatusKind string

const (
	WorktreeClean       WorktreeStatusKind = "clean"
	WorktreeDirty       WorktreeStatusKind = "dirty"
	WorktreeUnavailable WorktreeStatusKind = "unavailable"
)

// WorktreeStatus describes whether, and how, the working tree is dirty.
type WorktreeStatus struct {
	Kind      WorktreeStatusKind
	Staged    []string
	Unstaged  []string
	Conflicts []string
	Reason    string // set when Kind == WorktreeUnavailable
}

// Status classifies the working tree. Bare repositories MUST report
// Unavailable{BareRepository}; never Clean.
func (c *Client) Status(ctx context.Context, info *RepoInfo) (*WorktreeStatus, error) {
	if info.Context == ContextBare {
		return &WorktreeStatus{Kind: WorktreeUnavailable, Reason: "BareRepository"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	staged, err := c.run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, &IoError{Op: "diff --cached", Err: err}
	}
	unstaged, err := c.run(ctx, "diff", "--name-only")
	if err != nil {
		return nil, &IoError{Op: "diff", Err: err}
	}
	conflicts, err := c.ConflictFiles(ctx)
	if err != nil {
		return nil, err
	}

	s := &WorktreeStatus{
		Staged:    splitNonEmpty(staged),
		Unstaged:  splitNonEmpty(unstaged),
		Conflicts: conflicts,
	}
	if len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Conflicts) == 0 {
		s.Kind = WorktreeClean
	} else {
		s.Kind = WorktreeDirty
	}
	return s, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// isDetachedHead reports whether HEAD is detached, using the symbolic-ref
// exit code convention (1 == detached, not an error).
func (c *Client) isDetachedHead(ctx context.Context) (bool, error) {
	_, exitCode, err := c.runExitCode(ctx, "symbolic-ref", "-q", "HEAD")
	if err != nil {
		return false, err
	}
	return exitCode == 1, nil
}
