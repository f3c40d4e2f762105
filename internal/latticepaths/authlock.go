package latticepaths

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// AuthLock serializes token-refresh RPCs to a single host across processes,
// distinct from the repo lock: it is held only for the refresh call, never
// for a whole command.
type AuthLock struct {
	fl *flock.Flock
}

// NewAuthLock constructs (without acquiring) the per-host refresh lock.
func NewAuthLock(homeDir, host string) (*AuthLock, error) {
	path := HostAuthLock(homeDir, host)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating lattice auth dir: %w", err)
	}
	return &AuthLock{fl: flock.New(path)}, nil
}

// Lock blocks until the per-host lock is acquired or ctx is done.
func (l *AuthLock) Lock(ctx context.Context) error {
	return l.fl.LockContext(ctx, defaultRetryInterval)
}

// Unlock releases the per-host lock.
func (l *AuthLock) Unlock() error {
	return l.fl.Unlock()
}
