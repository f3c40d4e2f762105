package gitx

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"context"

	"github.com/kofron/lattice/internal/constants"
)

// TreeEntry is one line of a `git mktree` input: a single blob or subtree
// entry.
type TreeEntry struct {
	Mode string // "100644" for a regular file blob
	Type string // "blob" or "tree"
	Oid  Oid
	Name string
}

// MakeTree writes a tree object from entries and returns its OID. Used by
// the event ledger to build single-file trees.
func (c *Client) MakeTree(ctx context.Context, entries []TreeEntry) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	var input bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&input, "%s %s %s\t%s\n", e.Mode, e.Type, e.Oid, e.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := exec.CommandContext(ctx, "git", "mktree")
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Stdin = &input
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &IoError{Op: "mktree", Err: fmt.Errorf("%w: %s", err, stderr.String())}
	}
	return Oid(strings.TrimSpace(stdout.String())), nil
}

// Identity overrides the author/committer identity for CommitTree, so
// machine-authored commits (the event ledger) never depend on the user's
// git config being set.
type Identity struct {
	Name  string
	Email string
}

// CommitTree creates a commit object pointing at tree with the given
// explicit parents (no ref-walk) and returns its OID.
func (c *Client) CommitTree(ctx context.Context, tree Oid, parents []Oid, message string, identity Identity) (Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	args := []string{"commit-tree", string(tree)}
	for _, p := range parents {
		args = append(args, "-p", string(p))
	}
	args = append(args, "-m", message)

	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := exec.CommandContext(ctx, "git", args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Env = append(cmd.Environ(),
		"GIT_AUTHOR_NAME="+identity.Name, "GIT_AUTHOR_EMAIL="+identity.Email,
		"GIT_COMMITTER_NAME="+identity.Name, "GIT_COMMITTER_EMAIL="+identity.Email,
		"GIT_TERMINAL_PROMPT=0", "LC_ALL=C",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &IoError{Op: "commit-tree", Err: fmt.Errorf("%w: %s", err, stderr.String())}
	}
	return Oid(strings.TrimSpace(stdout.String())), nil
}

// ListTree parses `git ls-tree` for a single-level tree into a name->oid
// map. Used by the event ledger to find its event.json entry by name.
func (c *Client) ListTree(ctx context.Context, tree Oid) (map[string]Oid, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	out, err := c.run(ctx, "ls-tree", string(tree))
	if err != nil {
		return nil, &RefNotFoundError{Refname: string(tree)}
	}

	entries := map[string]Oid{}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		// "<mode> <type> <oid>\t<name>"
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		name := line[tab+1:]
		fields := strings.Fields(line[:tab])
		if len(fields) != 3 {
			continue
		}
		entries[name] = Oid(fields[2])
	}
	return entries, nil
}

// ReadCommitTree returns the tree OID and parent OIDs of a commit object,
// parsed from `git cat-file -p`.
func (c *Client) ReadCommitTree(ctx context.Context, commit Oid) (tree Oid, parents []Oid, err error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QuickOperationTimeout)
	defer cancel()

	out, err := c.run(ctx, "cat-file", "-p", string(commit))
	if err != nil {
		return "", nil, &RefNotFoundError{Refname: string(commit)}
	}

	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "tree "):
			tree = Oid(strings.TrimPrefix(line, "tree "))
		case strings.HasPrefix(line, "parent "):
			parents = append(parents, Oid(strings.TrimPrefix(line, "parent ")))
		case line == "":
			// blank line ends the header section
		}
	}
	return tree, parents, nil
}
