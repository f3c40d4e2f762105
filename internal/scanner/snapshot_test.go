package scanner

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/kofron/lattice/internal/gitx"
	"github.com/kofron/lattice/internal/ledger"
	"github.com/kofron/lattice/internal/metadata"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q", "-b", "main")
	run("config", "user.email", "t@t.com")
	run("config", "user.name", "t")
	if err := os.WriteFile(dir+"/a.txt", []byte("hi"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	run("add", "a.txt")
	run("commit", "-q", "-m", "initial")
	return dir
}

func TestScan_CleanRepoNoTrackedBranches(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()

	snap, err := Scan(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if snap.Trunk != "main" {
		t.Errorf("Trunk = %q, want main", snap.Trunk)
	}
	if !snap.Capabilities.Has("TrunkKnown") {
		t.Error("expected TrunkKnown satisfied")
	}
	if !snap.Capabilities.Has("RepoOpen") {
		t.Error("expected RepoOpen satisfied")
	}
	if len(snap.TrackedBranches) != 0 {
		t.Errorf("expected no tracked branches, got %v", snap.TrackedBranches)
	}
	if snap.WorktreeStatus.Kind != gitx.WorktreeClean {
		t.Errorf("expected clean worktree, got %v", snap.WorktreeStatus.Kind)
	}
	if snap.Fingerprint == "" {
		t.Error("expected non-empty fingerprint")
	}
}

func TestScan_TracksBranchWithMetadata(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	git := gitx.NewClient(dir)

	if err := git.CreateBranch(ctx, "feature", "main"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	tip, err := git.ResolveBranchTip(ctx, "main")
	if err != nil {
		t.Fatalf("ResolveBranchTip: %v", err)
	}

	store := metadata.NewStore(git)
	md := metadata.NewUnfrozen("feature", string(tip), "2026-01-01T00:00:00Z")
	if _, err := store.Write(ctx, "feature", md, "", "lattice:test"); err != nil {
		t.Fatalf("Write metadata: %v", err)
	}

	snap, err := Scan(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if _, ok := snap.TrackedBranches["feature"]; !ok {
		t.Fatalf("expected feature to be tracked, got %v", snap.TrackedBranches)
	}
	if !snap.Capabilities.Has("MetadataReadable") {
		t.Error("expected MetadataReadable satisfied")
	}
	if !snap.Capabilities.Has("GraphValid") {
		t.Error("expected GraphValid satisfied")
	}
	if children := snap.Graph.Children("main"); len(children) != 1 || children[0] != "feature" {
		t.Errorf("expected main's children [feature], got %v", children)
	}
}

func TestScan_DanglingParentProducesIssue(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	git := gitx.NewClient(dir)

	if err := git.CreateBranch(ctx, "feature", "main"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	tip, _ := git.ResolveBranchTip(ctx, "main")

	store := metadata.NewStore(git)
	md := metadata.NewUnfrozen("feature", string(tip), "2026-01-01T00:00:00Z")
	md.Parent = metadata.Parent{Kind: metadata.ParentBranch, Name: "ghost"}
	if _, err := store.Write(ctx, "feature", md, "", "lattice:test"); err != nil {
		t.Fatalf("Write metadata: %v", err)
	}

	snap, err := Scan(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if snap.Capabilities.Has("GraphValid") {
		t.Error("expected GraphValid to be unsatisfied with a dangling parent")
	}
	found := false
	for _, issue := range snap.Issues {
		if issue.ID == "missing-parent-branch:feature" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing-parent-branch issue, got %+v", snap.Issues)
	}
}

func TestScan_BareRepoReportsUnavailableAndNoWorkingDirectory(t *testing.T) {
	parent := initRepo(t)
	bareDir := parent + "-bare.git"
	cmd := exec.Command("git", "clone", "--bare", parent, bareDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git clone --bare: %v\n%s", err, out)
	}

	ctx := context.Background()
	snap, err := Scan(ctx, bareDir, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if snap.WorktreeStatus.Kind != gitx.WorktreeUnavailable {
		t.Errorf("expected Unavailable, got %v", snap.WorktreeStatus.Kind)
	}
	if snap.Capabilities.Has("WorkingDirectoryAvailable") {
		t.Error("expected WorkingDirectoryAvailable unsatisfied for a bare repo")
	}
}

func TestScan_RecordsDivergenceWhenFingerprintChangesSinceLastCommitted(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	git := gitx.NewClient(dir)
	lg := ledger.New(git)

	first, err := Scan(ctx, dir, lg)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if _, err := lg.Append(ctx, ledger.Event{
		Kind:      ledger.CommittedKind,
		Committed: &ledger.CommittedPayload{OpID: "op1", PostFingerprint: first.Fingerprint},
	}); err != nil {
		t.Fatalf("Append Committed: %v", err)
	}

	if err := git.CreateBranch(ctx, "feature", "main"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	tip, err := git.ResolveBranchTip(ctx, "main")
	if err != nil {
		t.Fatalf("ResolveBranchTip: %v", err)
	}
	md := metadata.NewUnfrozen("feature", string(tip), "2026-01-01T00:00:00Z")
	if _, err := metadata.NewStore(git).Write(ctx, "feature", md, "", "lattice:test"); err != nil {
		t.Fatalf("Write metadata: %v", err)
	}

	if _, err := Scan(ctx, dir, lg); err != nil {
		t.Fatalf("second Scan: %v", err)
	}

	events, err := lg.Walk(ctx, 0)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	found := false
	for _, e := range events {
		if e.Kind == ledger.DivergenceObservedKind {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a DivergenceObserved event after fingerprint changed, got %+v", events)
	}
}
