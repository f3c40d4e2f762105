package doctor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/kofron/lattice/internal/capability"
	"github.com/kofron/lattice/internal/gitx"
	"github.com/kofron/lattice/internal/ledger"
	"github.com/kofron/lattice/internal/metadata"
	"github.com/kofron/lattice/internal/planner"
	"github.com/kofron/lattice/internal/scanner"
)

func initRepo(t *testing.T, dir string) {
	t.Helper()
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
}

func writeAndCommit(t *testing.T, dir, name, content, message string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	cmd := exec.Command("git", "add", name)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %v\n%s", err, out)
	}
	cmd = exec.Command("git", "commit", "-q", "-m", message)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t.com",
		"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t.com")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, out)
	}
}

func TestPropose_ReparentToTrunk(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	writeAndCommit(t, dir, "a.txt", "one", "initial")

	ctx := context.Background()
	git := gitx.NewClient(dir)
	meta := metadata.NewStore(git)

	tip, err := git.ResolveBranchTip(ctx, "main")
	if err != nil {
		t.Fatalf("ResolveBranchTip: %v", err)
	}
	md := metadata.NewUnfrozen("feature", string(tip), "2026-07-31T00:00:00Z")
	md.Parent = metadata.Parent{Kind: metadata.ParentBranch, Name: "ghost-branch"}
	if _, err := meta.Write(ctx, "feature", md, "", "test: seed dangling parent"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	snap := &scanner.RepoSnapshot{
		Trunk: "main",
		Issues: []capability.Issue{
			{ID: "missing-parent-branch:feature", Severity: capability.Blocking, Evidence: "feature"},
		},
	}

	opts := Propose(meta, snap)
	if len(opts) != 1 || opts[0].ID != "reparent-to-trunk:feature" {
		t.Fatalf("Propose = %+v, want one reparent-to-trunk:feature option", opts)
	}

	plan, err := opts[0].Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Kind != planner.StepWriteMetadata {
		t.Fatalf("unexpected plan: %+v", plan.Steps)
	}
	got := plan.Steps[0].WriteMetadata.NewMeta
	if got.Parent.Kind != metadata.ParentTrunk || got.Parent.Name != "" {
		t.Fatalf("Parent = %+v, want trunk with no name", got.Parent)
	}
}

func TestPropose_UntrackBranchWithUnparseableMetadata(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	writeAndCommit(t, dir, "a.txt", "one", "initial")

	ctx := context.Background()
	git := gitx.NewClient(dir)
	meta := metadata.NewStore(git)

	badOid, err := git.HashObject(ctx, []byte(`{"kind":"lattice.branch-metadata","not_a_real_field":true}`))
	if err != nil {
		t.Fatalf("HashObject: %v", err)
	}
	if err := git.UpdateRefCas(ctx, metadata.RefName("broken"), badOid, "", "test: seed corrupt metadata"); err != nil {
		t.Fatalf("UpdateRefCas: %v", err)
	}

	snap := &scanner.RepoSnapshot{
		Trunk: "main",
		Issues: []capability.Issue{
			{ID: "metadata-parse-error:broken", Severity: capability.Blocking},
		},
	}

	opts := Propose(meta, snap)
	if len(opts) != 1 || opts[0].ID != "untrack-branch:broken" {
		t.Fatalf("Propose = %+v, want one untrack-branch:broken option", opts)
	}

	plan, err := opts[0].Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Kind != planner.StepDeleteMetadata {
		t.Fatalf("unexpected plan: %+v", plan.Steps)
	}
	if plan.Steps[0].DeleteMetadata.ExpectedOldOid != string(badOid) {
		t.Fatalf("ExpectedOldOid = %s, want %s", plan.Steps[0].DeleteMetadata.ExpectedOldOid, badOid)
	}
}

func TestSelect_FiltersByID(t *testing.T) {
	opts := []FixOption{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}
	got := Select(opts, []string{"c", "a"})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("Select = %+v, want [a c] in options order", got)
	}
}

func TestSelectAll_ReturnsEverything(t *testing.T) {
	opts := []FixOption{{ID: "a"}, {ID: "b"}}
	got := SelectAll(opts)
	if len(got) != 2 {
		t.Fatalf("SelectAll = %+v, want all options", got)
	}
}

func TestBundle_ComposesStepsInOrder(t *testing.T) {
	ctx := context.Background()
	opts := []FixOption{
		{
			ID: "one",
			Build: func(ctx context.Context) (*planner.Plan, error) {
				p := planner.New()
				p.Append(planner.PlanStep{Kind: planner.StepCheckpoint, Checkpoint: &planner.CheckpointStep{Name: "one"}})
				return p, nil
			},
		},
		{
			ID: "two",
			Build: func(ctx context.Context) (*planner.Plan, error) {
				p := planner.New()
				p.Append(planner.PlanStep{Kind: planner.StepCheckpoint, Checkpoint: &planner.CheckpointStep{Name: "two"}})
				return p, nil
			},
		},
	}

	plan, err := Bundle(ctx, opts)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if len(plan.Steps) != 2 || plan.Steps[0].Checkpoint.Name != "one" || plan.Steps[1].Checkpoint.Name != "two" {
		t.Fatalf("unexpected bundled plan: %+v", plan.Steps)
	}
}

func TestRun_NoSelectionRecordsProposalOnly(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	writeAndCommit(t, dir, "a.txt", "one", "initial")

	ctx := context.Background()
	git := gitx.NewClient(dir)
	lg := ledger.New(git)

	result, err := Run(ctx, nil, lg, []string{"missing-trunk"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != nil {
		t.Fatalf("Run with no selection = %+v, want nil result", result)
	}

	last, err := lg.Walk(ctx, 10)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(last) != 1 || last[0].Kind != ledger.DoctorProposedKind {
		t.Fatalf("ledger events = %+v, want one DoctorProposed", last)
	}
}
