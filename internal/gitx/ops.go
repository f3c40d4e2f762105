package gitx

import (
	"context"
	"fmt"
	"strings"

	"github.com/kofron/lattice/internal/constants"
)

// FetchBranch fetches a single branch from remote and returns its new tip,
// read back via a typed ref lookup — never by parsing FETCH_HEAD as a file.
func (c *Client) FetchBranch(ctx context.Context, remote, branch string) (Oid, error) {
	return c.FetchRef(ctx, remote, "refs/heads/"+branch+":refs/remotes/"+remote+"/"+branch)
}

// FetchRef runs `git fetch remote refspec` and resolves the updated
// destination ref directly afterward.
func (c *Client) FetchRef(ctx context.Context, remote, refspec string) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultFetchTimeout)
	defer cancel()

	if _, err := c.run(ctx, "fetch", remote, refspec); err != nil {
		return "", &IoError{Op: "fetch " + remote + " " + refspec, Err: err}
	}

	dest := refspec
	if idx := strings.Index(refspec, ":"); idx >= 0 {
		dest = refspec[idx+1:]
	}
	out, err := c.run(ctx, "rev-parse", dest)
	if err != nil {
		return "", &RefNotFoundError{Refname: dest}
	}
	return Oid(out), nil
}

// CommitOptions controls commit creation.
type CommitOptions struct {
	Message     string
	VerifyHooks bool
}

// Commit creates a new commit on the currently checked-out branch from the
// index, returning its OID.
func (c *Client) Commit(ctx context.Context, opts CommitOptions) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultOperationTimeout)
	defer cancel()

	args := []string{"commit", "-m", opts.Message}
	if !opts.VerifyHooks {
		args = append(args, "--no-verify")
	}
	if _, err := c.run(ctx, args...); err != nil {
		return "", &IoError{Op: "commit", Err: err}
	}

	out, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", &InternalError{Message: "commit succeeded but HEAD did not resolve", Err: err}
	}
	return Oid(out), nil
}

// CommitAmend amends the current HEAD commit, optionally replacing its
// message; an empty message keeps the existing one.
func (c *Client) CommitAmend(ctx context.Context, opts CommitOptions) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultOperationTimeout)
	defer cancel()

	args := []string{"commit", "--amend"}
	if opts.Message != "" {
		args = append(args, "-m", opts.Message)
	} else {
		args = append(args, "--no-edit")
	}
	if !opts.VerifyHooks {
		args = append(args, "--no-verify")
	}
	if _, err := c.run(ctx, args...); err != nil {
		return "", &IoError{Op: "commit --amend", Err: err}
	}

	out, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", &InternalError{Message: "commit --amend succeeded but HEAD did not resolve", Err: err}
	}
	return Oid(out), nil
}

// PushOptions controls push behavior. At most one of ForceWithLease or Force
// should be set; ForceWithLease is strictly preferred and is what every
// Lattice-driven mutation uses.
type PushOptions struct {
	ForceWithLease bool
	Force          bool
	VerifyHooks    bool
}

// Push pushes refspec to remote.
func (c *Client) Push(ctx context.Context, remote, refspec string, opts PushOptions) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultFetchTimeout)
	defer cancel()

	args := []string{"push"}
	switch {
	case opts.ForceWithLease:
		args = append(args, "--force-with-lease")
	case opts.Force:
		args = append(args, "--force")
	}
	if !opts.VerifyHooks {
		args = append(args, "--no-verify")
	}
	args = append(args, remote, refspec)

	if _, err := c.run(ctx, args...); err != nil {
		return &IoError{Op: fmt.Sprintf("push %s %s", remote, refspec), Err: err}
	}
	return nil
}

// MergeFFOnly fast-forwards the current branch to ref, failing rather than
// creating a merge commit if a fast-forward is not possible.
func (c *Client) MergeFFOnly(ctx context.Context, ref string) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultOperationTimeout)
	defer cancel()

	if _, err := c.run(ctx, "merge", "--ff-only", ref); err != nil {
		return "", &IoError{Op: "merge --ff-only " + ref, Err: err}
	}
	out, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", &InternalError{Message: "merge --ff-only succeeded but HEAD did not resolve", Err: err}
	}
	return Oid(out), nil
}

// Revert creates a new commit that reverts sha. On conflict it returns a
// *ConflictError the same way RebaseOnto does.
func (c *Client) Revert(ctx context.Context, sha string, verifyHooks bool) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultOperationTimeout)
	defer cancel()

	args := []string{"revert", "--no-edit", sha}
	if !verifyHooks {
		args = append(args, "--no-verify")
	}

	_, err := c.run(ctx, args...)
	if err == nil {
		out, rerr := c.run(ctx, "rev-parse", "HEAD")
		if rerr != nil {
			return "", &InternalError{Message: "revert succeeded but HEAD did not resolve", Err: rerr}
		}
		return Oid(out), nil
	}

	state, stateErr := c.State(ctx)
	if stateErr == nil && state.Kind == GitStateRevert {
		desc, descErr := c.conflictDescriptor(ctx, "revert", state)
		if descErr == nil {
			return "", &ConflictError{Descriptor: desc}
		}
	}
	return "", &IoError{Op: "revert " + sha, Err: err}
}

// CheckoutBranch switches the working tree to branch.
func (c *Client) CheckoutBranch(ctx context.Context, branch string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.BranchOperationTimeout)
	defer cancel()

	if _, err := c.run(ctx, "checkout", branch); err != nil {
		return &IoError{Op: "checkout " + branch, Err: err}
	}
	return nil
}

// CreateBranch creates a new branch named name pointing at startPoint,
// without checking it out.
func (c *Client) CreateBranch(ctx context.Context, name, startPoint string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.BranchOperationTimeout)
	defer cancel()

	if _, err := c.run(ctx, "branch", name, startPoint); err != nil {
		return &IoError{Op: "branch " + name, Err: err}
	}
	return nil
}

// RemoteURL returns the fetch URL configured for remote.
func (c *Client) RemoteURL(ctx context.Context, remote string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	out, err := c.run(ctx, "remote", "get-url", remote)
	if err != nil {
		return "", &IoError{Op: "remote get-url " + remote, Err: err}
	}
	return strings.TrimSpace(out), nil
}
