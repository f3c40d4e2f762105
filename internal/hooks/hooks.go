// Package hooks installs the Git hooks Lattice relies on to nudge a user
// back toward a clean stack: a post-commit check and a post-rewrite
// check, both shelling back into the CLI rather than duplicating stack
// logic in bash.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
)

const backupSuffix = ".lattice-backup"

// PostCommitHook nudges the user to restack when a commit lands on a
// branch that other tracked branches are based on. It shells back into
// lattice rather than duplicating any stack logic in bash.
const PostCommitHook = `#!/bin/sh
# Installed by lattice. Do not edit; re-run "lattice hooks install" instead.
lattice status --quiet --check-divergence || {
    echo "lattice: this branch's descendants may now be out of date"
    echo "lattice: run 'lattice restack' to bring the stack back in sync"
}
`

// PostRewriteHook fires after a rebase or amend rewrites history, the
// moment downstack metadata is most likely to be stale.
const PostRewriteHook = `#!/bin/sh
# Installed by lattice. Do not edit; re-run "lattice hooks install" instead.
if [ "$1" = "rebase" ]; then
    echo "lattice: history was rewritten; run 'lattice restack' to propagate it"
fi
`

// Manager installs and removes lattice's hooks in one repository's
// .git/hooks directory.
type Manager struct {
	hooksDir string
}

// NewManager creates a hooks Manager rooted at commonDir (a repo's
// git-common-dir, so it behaves correctly from any linked worktree).
func NewManager(commonDir string) *Manager {
	return &Manager{hooksDir: filepath.Join(commonDir, "hooks")}
}

// Install installs lattice's hooks, backing up any hook already present
// under the same name.
func (m *Manager) Install() error {
	if err := os.MkdirAll(m.hooksDir, 0o755); err != nil {
		return fmt.Errorf("creating hooks directory: %w", err)
	}

	if err := m.installHook("post-commit", PostCommitHook); err != nil {
		return fmt.Errorf("installing post-commit hook: %w", err)
	}
	if err := m.installHook("post-rewrite", PostRewriteHook); err != nil {
		return fmt.Errorf("installing post-rewrite hook: %w", err)
	}

	return nil
}

func (m *Manager) installHook(name, content string) error {
	hookPath := filepath.Join(m.hooksDir, name)
	backupPath := hookPath + backupSuffix

	if _, err := os.Stat(hookPath); err == nil {
		if err := os.Rename(hookPath, backupPath); err != nil {
			return fmt.Errorf("backing up existing %s hook: %w", name, err)
		}
	}

	if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
		if _, statErr := os.Stat(backupPath); statErr == nil {
			_ = os.Rename(backupPath, hookPath)
		}
		return fmt.Errorf("writing %s hook: %w", name, err)
	}

	return nil
}

// Uninstall removes lattice's hooks, restoring a backup if one exists.
func (m *Manager) Uninstall() error {
	for _, name := range []string{"post-commit", "post-rewrite"} {
		hookPath := filepath.Join(m.hooksDir, name)
		backupPath := hookPath + backupSuffix

		if _, err := os.Stat(hookPath); err == nil {
			if err := os.Remove(hookPath); err != nil {
				return fmt.Errorf("removing %s hook: %w", name, err)
			}
		}
		if _, err := os.Stat(backupPath); err == nil {
			if err := os.Rename(backupPath, hookPath); err != nil {
				return fmt.Errorf("restoring backed-up %s hook: %w", name, err)
			}
		}
	}
	return nil
}

// IsInstalled reports whether both of lattice's hooks are present.
func (m *Manager) IsInstalled() bool {
	for _, name := range []string{"post-commit", "post-rewrite"} {
		if _, err := os.Stat(filepath.Join(m.hooksDir, name)); err != nil {
			return false
		}
	}
	return true
}
