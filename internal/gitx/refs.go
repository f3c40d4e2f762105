package gitx

import (
	"context"
	"fmt"
	"strings"

	"github.com/kofron/lattice/internal/constants"
)

// ReadRef returns the OID a ref currently points to, or "" if it does not
// exist.
func (c *Client) ReadRef(ctx context.Context, name string) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	out, _, err := c.runExitCode(ctx, "show-ref", "--verify", "--hash", name)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", nil
	}
	return Oid(out), nil
}

// UpdateRefReason documents why a ref is being moved; it is recorded in the
// git reflog and, for structural refs, echoed into the event ledger.
type UpdateRefReason string

// UpdateRefCas performs a CAS-guarded ref update: it succeeds iff the ref's
// current value equals expectedOld. Creation requires expectedOld == "".
// Deletion is DeleteRefCas, with the same discipline.
func (c *Client) UpdateRefCas(ctx context.Context, name string, newOid Oid, expectedOld Oid, reason UpdateRefReason) error {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	args := []string{"update-ref", "-m", string(reason), name, string(newOid)}
	if expectedOld != "" {
		args = append(args, string(expectedOld))
	} else {
		// git update-ref treats a 40-zero oid as "must not already exist".
		args = append(args, strings.Repeat("0", 40))
	}

	_, err := c.run(ctx, args...)
	if err == nil {
		return nil
	}

	actual, readErr := c.ReadRef(ctx, name)
	if readErr != nil {
		return &IoError{Op: "update-ref", Err: err}
	}
	return &CasFailedError{Refname: name, Expected: string(expectedOld), Actual: string(actual)}
}

// DeleteRefCas deletes a ref, guarded by its expected current value.
func (c *Client) DeleteRefCas(ctx context.Context, name string, expectedOld Oid, reason UpdateRefReason) error {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	_, err := c.run(ctx, "update-ref", "-m", string(reason), "-d", name, string(expectedOld))
	if err == nil {
		return nil
	}

	actual, readErr := c.ReadRef(ctx, name)
	if readErr != nil {
		return &IoError{Op: "update-ref -d", Err: err}
	}
	return &CasFailedError{Refname: name, Expected: string(expectedOld), Actual: string(actual)}
}

// ResolveBranchTip resolves a local branch name to its tip OID.
func (c *Client) ResolveBranchTip(ctx context.Context, branch string) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.BranchOperationTimeout)
	defer cancel()

	out, err := c.run(ctx, "rev-parse", "refs/heads/"+branch)
	if err != nil {
		return "", &RefNotFoundError{Refname: "refs/heads/" + branch}
	}
	return Oid(out), nil
}

// MergeBase returns the merge base of a and b, or "" if none exists.
func (c *Client) MergeBase(ctx context.Context, a, b string) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	out, exitCode, err := c.runExitCode(ctx, "merge-base", a, b)
	if err != nil {
		return "", err
	}
	if exitCode != 0 {
		return "", nil
	}
	return Oid(out), nil
}

// IsAncestor reports whether commit1 is an ancestor of (or equal to) commit2.
func (c *Client) IsAncestor(ctx context.Context, commit1, commit2 string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	_, exitCode, err := c.runExitCode(ctx, "merge-base", "--is-ancestor", commit1, commit2)
	if err != nil {
		return false, err
	}
	switch exitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, &InternalError{Message: fmt.Sprintf("merge-base --is-ancestor exited %d", exitCode)}
	}
}

// HashObject writes data as a blob and returns its OID, without touching the
// working tree or index. Used by the metadata store to compute a branch
// metadata blob's content-addressed OID before the CAS ref update.
func (c *Client) HashObject(ctx context.Context, data []byte) (Oid, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := c.hashObjectLocked(ctx, data)
	if err != nil {
		return "", &IoError{Op: "hash-object", Err: err}
	}
	return Oid(out), nil
}

// ReadBlob returns the content of a blob by OID.
func (c *Client) ReadBlob(ctx context.Context, oid Oid) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	out, err := c.run(ctx, "cat-file", "-p", string(oid))
	if err != nil {
		return nil, &RefNotFoundError{Refname: string(oid)}
	}
	return []byte(out), nil
}
