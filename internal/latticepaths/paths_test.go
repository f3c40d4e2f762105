package latticepaths

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestPaths_Layout(t *testing.T) {
	p := New("/repo/.git")

	cases := map[string]string{
		"config.toml":      p.Config(),
		"lock":             p.Lock(),
		"op-state.json":    p.OpState(),
		"cache/github_auth.json": p.GitHubAuthCache(),
	}
	for suffix, got := range cases {
		want := filepath.Join("/repo/.git", "lattice", suffix)
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestPaths_Journal(t *testing.T) {
	p := New("/repo/.git")
	got := p.Journal("op-123")
	want := filepath.Join("/repo/.git", "lattice", "ops", "op-123.json")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRepoLock_ExclusiveAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)

	lockA, err := NewRepoLock(p)
	if err != nil {
		t.Fatalf("NewRepoLock A: %v", err)
	}
	ctx := context.Background()
	if err := lockA.Lock(ctx); err != nil {
		t.Fatalf("lock A: %v", err)
	}
	defer lockA.Unlock()

	lockB, err := NewRepoLock(p)
	if err != nil {
		t.Fatalf("NewRepoLock B: %v", err)
	}
	tctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	ok, err := lockB.TryLock(tctx)
	if err == nil && ok {
		t.Fatal("expected second lock acquisition to fail while first holds the lock")
	}
}

func TestRepoLock_ReacquireAfterUnlock(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)
	ctx := context.Background()

	lockA, err := NewRepoLock(p)
	if err != nil {
		t.Fatalf("NewRepoLock A: %v", err)
	}
	if err := lockA.Lock(ctx); err != nil {
		t.Fatalf("lock A: %v", err)
	}
	if err := lockA.Unlock(); err != nil {
		t.Fatalf("unlock A: %v", err)
	}

	lockB, err := NewRepoLock(p)
	if err != nil {
		t.Fatalf("NewRepoLock B: %v", err)
	}
	if err := lockB.Lock(ctx); err != nil {
		t.Fatalf("expected lock B to acquire after A released: %v", err)
	}
	lockB.Unlock()
}
