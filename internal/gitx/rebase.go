package gitx

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kofron/lattice/internal/constants"
)

// RebaseResult is returned by RebaseOnto on successful completion.
type RebaseResult struct {
	NewTip Oid
}

// RebaseOnto drives `git rebase --onto onto upstream branch`. On success it
// returns the branch's new tip. On a Git-reported conflict it returns a
// *ConflictError carrying a structured descriptor instead of a bare error —
// the Executor treats that as a pause signal, not a failure.
func (c *Client) RebaseOnto(ctx context.Context, branch, upstream, onto string, verifyHooks bool) (*RebaseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RebaseOperationTimeout)
	defer cancel()

	args := []string{"rebase", "--onto", onto, upstream, branch}
	if !verifyHooks {
		args = append(args, "--no-verify")
	}

	_, err := c.run(ctx, args...)
	if err == nil {
		tip, tipErr := c.ResolveBranchTip(ctx, branch)
		if tipErr != nil {
			return nil, tipErr
		}
		return &RebaseResult{NewTip: tip}, nil
	}

	state, stateErr := c.State(ctx)
	if stateErr == nil && state.Kind == GitStateRebase {
		desc, descErr := c.conflictDescriptor(ctx, "rebase", state)
		if descErr == nil {
			return nil, &ConflictError{Descriptor: desc}
		}
	}
	return nil, &IoError{Op: "rebase --onto", Err: err}
}

// RebaseContinue drives `git rebase --continue` against an already
// in-progress rebase (the conflicted files must already be staged). On a
// fresh conflict it returns a *ConflictError exactly like RebaseOnto, so
// the caller re-pauses rather than treating re-conflict as failure.
func (c *Client) RebaseContinue(ctx context.Context, verifyHooks bool) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RebaseOperationTimeout)
	defer cancel()

	args := []string{"rebase", "--continue"}
	if !verifyHooks {
		args = append(args, "--no-verify")
	}

	_, err := c.run(ctx, args...)
	if err == nil {
		head, headErr := c.run(ctx, "rev-parse", "HEAD")
		if headErr != nil {
			return "", &InternalError{Message: "rebase --continue succeeded but HEAD did not resolve", Err: headErr}
		}
		return Oid(head), nil
	}

	state, stateErr := c.State(ctx)
	if stateErr == nil && state.Kind == GitStateRebase {
		desc, descErr := c.conflictDescriptor(ctx, "rebase", state)
		if descErr == nil {
			return "", &ConflictError{Descriptor: desc}
		}
	}
	return "", &IoError{Op: "rebase --continue", Err: err}
}

// RebaseAbort drives `git rebase --abort`, restoring the branch to its
// pre-rebase tip. Used when `lattice abort` rolls back a paused rebase
// step rather than replaying a CAS-based ref restore.
func (c *Client) RebaseAbort(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultOperationTimeout)
	defer cancel()

	if _, err := c.run(ctx, "rebase", "--abort"); err != nil {
		return &IoError{Op: "rebase --abort", Err: err}
	}
	return nil
}

// GitStateKind enumerates the in-progress Git operations the Scanner/
// Executor must recognize.
type GitStateKind string

const (
	GitStateNone         GitStateKind = "none"
	GitStateRebase       GitStateKind = "rebase"
	GitStateMerge        GitStateKind = "merge"
	GitStateCherryPick   GitStateKind = "cherry_pick"
	GitStateRevert       GitStateKind = "revert"
)

// GitState describes any Git-level in-progress operation, detected via
// `git rev-parse --git-dir` plus rebase-state directory presence and
// confirmed live against `git status --porcelain=v2 --branch` — the
// closest CLI-only equivalent to a library rebase-inspection API
// available without a libgit2 binding. Git's porcelain interface carries
// no rebase step-count fields, so GitState reports only which operation
// is in progress, not how far into it the repository is.
type GitState struct {
	Kind GitStateKind
}

// State detects rebase (interactive/merge/apply), cherry-pick, revert, or
// merge in progress.
func (c *Client) State(ctx context.Context) (*GitState, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	gitDir, err := c.run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return nil, &NotARepoError{Path: c.workdir}
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(c.workdir, gitDir)
	}

	if exists(filepath.Join(gitDir, "rebase-merge")) || exists(filepath.Join(gitDir, "rebase-apply")) {
		if _, err := c.run(ctx, "status", "--porcelain=v2", "--branch"); err != nil {
			return nil, &IoError{Op: "status --porcelain=v2 --branch", Err: err}
		}
		return &GitState{Kind: GitStateRebase}, nil
	}
	if exists(filepath.Join(gitDir, "CHERRY_PICK_HEAD")) {
		return &GitState{Kind: GitStateCherryPick}, nil
	}
	if exists(filepath.Join(gitDir, "REVERT_HEAD")) {
		return &GitState{Kind: GitStateRevert}, nil
	}
	if exists(filepath.Join(gitDir, "MERGE_HEAD")) {
		return &GitState{Kind: GitStateMerge}, nil
	}
	return &GitState{Kind: GitStateNone}, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (c *Client) conflictDescriptor(ctx context.Context, op string, state *GitState) (ConflictDescriptor, error) {
	paths, err := c.ConflictFiles(ctx)
	if err != nil {
		return ConflictDescriptor{}, err
	}
	head, _ := c.run(ctx, "rev-parse", "HEAD")
	return ConflictDescriptor{
		Operation:     op,
		Paths:         paths,
		CurrentCommit: head,
		State:         *state,
	}, nil
}

// ConflictFiles returns the paths with unresolved merge conflicts.
func (c *Client) ConflictFiles(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	out, err := c.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, &IoError{Op: "diff --diff-filter=U", Err: err}
	}
	if out == "" {
		return []string{}, nil
	}
	return strings.Split(out, "\n"), nil
}
