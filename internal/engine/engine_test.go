package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/kofron/lattice/internal/capability"
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
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("add", name)
	run("commit", "-q", "-m", message)
}

// createBranchCommand creates a new branch ref at trunk's current tip, a
// ReadOnly+metadata-free mutation that exercises Engine.Run's Scan → Gate
// → Plan → Execute path without touching the forge.
type createBranchCommand struct {
	branch string
}

func (c createBranchCommand) Name() string { return "test-create-branch" }

func (c createBranchCommand) Requirements(snap *scanner.RepoSnapshot) capability.RequirementSet {
	return capability.Navigation
}

func (c createBranchCommand) Scope(snap *scanner.RepoSnapshot) []string { return nil }

func (c createBranchCommand) Plan(ctx context.Context, snap *scanner.RepoSnapshot, rc *ReadyContext) (*planner.Plan, error) {
	tip := snap.LocalBranches[snap.Trunk]
	plan := planner.New()
	plan.Append(planner.PlanStep{
		Kind: planner.StepUpdateRefCas,
		UpdateRefCas: &planner.UpdateRefCasStep{
			Refname: "refs/heads/" + c.branch,
			NewOid:  string(tip),
			Reason:  "test branch creation",
		},
	})
	return plan, nil
}

type blockedCommand struct{}

func (blockedCommand) Name() string { return "test-blocked" }
func (blockedCommand) Requirements(snap *scanner.RepoSnapshot) capability.RequirementSet {
	return capability.RequirementSet{capability.Capability("never-satisfied")}
}
func (blockedCommand) Scope(snap *scanner.RepoSnapshot) []string { return nil }
func (blockedCommand) Plan(ctx context.Context, snap *scanner.RepoSnapshot, rc *ReadyContext) (*planner.Plan, error) {
	panic("Plan must not be called when the gate is not ready")
}

func TestEngine_Run_CommitsPlanAndReturnsCommittedOutcome(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	writeAndCommit(t, dir, "a.txt", "one", "initial")

	ctx := context.Background()
	eng, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	outcome, err := eng.Run(ctx, createBranchCommand{branch: "feature"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Kind != OutcomeCommitted {
		t.Fatalf("outcome kind = %s, want committed", outcome.Kind)
	}
	if outcome.Result == nil || outcome.Result.OpID == "" {
		t.Fatalf("outcome result missing op id: %+v", outcome.Result)
	}

	tip, err := eng.Git.ResolveBranchTip(ctx, "feature")
	if err != nil {
		t.Fatalf("ResolveBranchTip(feature): %v", err)
	}
	trunkTip, err := eng.Git.ResolveBranchTip(ctx, "main")
	if err != nil {
		t.Fatalf("ResolveBranchTip(main): %v", err)
	}
	if tip != trunkTip {
		t.Fatalf("feature tip = %s, want %s", tip, trunkTip)
	}
}

func TestEngine_Run_GateFailureReturnsNeedsRepairWithoutPlanning(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	writeAndCommit(t, dir, "a.txt", "one", "initial")

	ctx := context.Background()
	eng, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	outcome, err := eng.Run(ctx, blockedCommand{})
	if err == nil {
		t.Fatal("Run: want an error for an unsatisfiable gate")
	}
	if outcome.Kind != OutcomeNeedsRepair {
		t.Fatalf("outcome kind = %s, want needs_repair", outcome.Kind)
	}
	if len(outcome.Issues) != 1 || outcome.Issues[0].ID != "missing-capability:never-satisfied" {
		t.Fatalf("issues = %+v, want one synthetic missing-capability issue", outcome.Issues)
	}
}
