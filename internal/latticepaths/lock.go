package latticepaths

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const defaultRetryInterval = 50 * time.Millisecond

// RepoLock is the advisory, cross-process, cross-worktree exclusive lock
// held by the Executor from its start until op-state is cleared or the
// command pauses. Read-only commands must never acquire it.
type RepoLock struct {
	fl *flock.Flock
}

// NewRepoLock constructs (without acquiring) the repo lock for paths.
func NewRepoLock(p *Paths) (*RepoLock, error) {
	if err := os.MkdirAll(filepath.Dir(p.Lock()), 0o755); err != nil {
		return nil, fmt.Errorf("creating lattice state dir: %w", err)
	}
	return &RepoLock{fl: flock.New(p.Lock())}, nil
}

// TryLock attempts to acquire the lock without blocking, returning false if
// another process already holds it.
func (l *RepoLock) TryLock(ctx context.Context) (bool, error) {
	return l.fl.TryLockContext(ctx, defaultRetryInterval)
}

// Lock blocks until the lock is acquired or ctx is done.
func (l *RepoLock) Lock(ctx context.Context) error {
	return l.fl.LockContext(ctx, defaultRetryInterval)
}

// Unlock releases the lock. Safe to call even if not held.
func (l *RepoLock) Unlock() error {
	return l.fl.Unlock()
}
