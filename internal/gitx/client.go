// Package gitx is the sole boundary between Lattice and Git. No other
// package may read Git's internal files or invoke the git executable; every
// other component reaches Git only through the typed operations exposed
// here: a workdir-scoped wrapper around exec.Command, mutex-serialized,
// GIT_TERMINAL_PROMPT=0, LC_ALL=C, returning a closed failure taxonomy
// instead of string-wrapped errors.
package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Oid is a Git object id, always the full 40/64-char hex string. The empty
// Oid ("") represents "ref does not exist" where that distinction matters
// (ref creation requires expected_old_oid == "").
type Oid string

// Client wraps git CLI operations for one working directory. All
// invocations from a single Client are serialized through mu to prevent
// races — this is the in-process half of the concurrency model; the repo
// lock (internal/latticepaths) is the cross-process half.
type Client struct {
	workdir string
	mu      sync.Mutex
}

// NewClient creates a git CLI client rooted at workdir.
func NewClient(workdir string) *Client {
	return &Client{workdir: workdir}
}

// Workdir returns the directory this client was constructed with.
func (c *Client) Workdir() string { return c.workdir }

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := exec.CommandContext(ctx, "git", args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0", // never hang on a credential prompt
		"LC_ALL=C",              // stable, locale-independent output
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", &IoError{Op: strings.Join(args, " "), Err: ctx.Err()}
		}
		return "", &IoError{Op: strings.Join(args, " "), Err: fmt.Errorf("%w: %s", err, stderr.String())}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// hashObjectLocked runs `git hash-object -w --stdin`, writing data to the
// object store and returning its OID. Caller must hold mu.
func (c *Client) hashObjectLocked(ctx context.Context, data []byte) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "hash-object", "-w", "--stdin")
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// runExitCode runs a command and returns its exit code directly, without
// treating a non-zero exit as an error — callers that need to distinguish
// "false" (exit 1) from a real failure use this (e.g. IsAncestor).
func (c *Client) runExitCode(ctx context.Context, args ...string) (stdout string, exitCode int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := exec.CommandContext(ctx, "git", args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")

	var out bytes.Buffer
	cmd.Stdout = &out

	runErr := cmd.Run()
	if runErr == nil {
		return strings.TrimSpace(out.String()), 0, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return strings.TrimSpace(out.String()), exitErr.ExitCode(), nil
	}
	return "", -1, &IoError{Op: strings.Join(args, " "), Err: runErr}
}
