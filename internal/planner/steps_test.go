package planner

import "testing"

func TestPlanStep_IsMutation(t *testing.T) {
	cases := []struct {
		kind StepKind
		want bool
	}{
		{StepFetchRef, false},
		{StepCheckpoint, false},
		{StepUpdateRefCas, true},
		{StepRebaseOnto, true},
		{StepWriteMetadata, true},
		{StepDeleteMetadata, true},
		{StepCreateSnapshotBranch, true},
		{StepForgeCreatePr, true},
		{StepForgeUpdatePr, true},
		{StepForgePush, true},
	}
	for _, c := range cases {
		step := PlanStep{Kind: c.kind}
		if got := step.IsMutation(); got != c.want {
			t.Errorf("IsMutation(%s) = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestPlanStep_TouchedRefs(t *testing.T) {
	step := PlanStep{
		Kind:       StepRebaseOnto,
		RebaseOnto: &RebaseOntoStep{Branch: "feature", Upstream: "a", Onto: "main"},
	}
	refs := step.TouchedRefs()
	if len(refs) != 1 || refs[0] != "refs/heads/feature" {
		t.Fatalf("TouchedRefs = %v", refs)
	}

	meta := PlanStep{
		Kind:          StepWriteMetadata,
		WriteMetadata: &WriteMetadataStep{Branch: "feature"},
	}
	refs = meta.TouchedRefs()
	if len(refs) != 1 || refs[0] != "refs/branch-metadata/feature" {
		t.Fatalf("TouchedRefs = %v", refs)
	}

	fetch := PlanStep{Kind: StepFetchRef, FetchRef: &FetchRefStep{Remote: "origin", Spec: "refs/heads/main"}}
	if refs := fetch.TouchedRefs(); refs != nil {
		t.Fatalf("TouchedRefs(fetch) = %v, want nil", refs)
	}
}

func TestPlanStep_TouchedBranch(t *testing.T) {
	cases := []struct {
		step       PlanStep
		wantBranch string
		wantOk     bool
	}{
		{PlanStep{Kind: StepRebaseOnto, RebaseOnto: &RebaseOntoStep{Branch: "a"}}, "a", true},
		{PlanStep{Kind: StepWriteMetadata, WriteMetadata: &WriteMetadataStep{Branch: "b"}}, "b", true},
		{PlanStep{Kind: StepDeleteMetadata, DeleteMetadata: &DeleteMetadataStep{Branch: "c"}}, "c", true},
		{PlanStep{Kind: StepForgeCreatePr, ForgeCreatePr: &ForgeCreatePrStep{Branch: "d"}}, "d", true},
		{PlanStep{Kind: StepForgeUpdatePr, ForgeUpdatePr: &ForgeUpdatePrStep{Branch: "e"}}, "e", true},
		{PlanStep{Kind: StepForgePush, ForgePush: &ForgePushStep{Branch: "f"}}, "f", true},
		{PlanStep{Kind: StepFetchRef, FetchRef: &FetchRefStep{}}, "", false},
		{PlanStep{Kind: StepCheckpoint, Checkpoint: &CheckpointStep{Name: "x"}}, "", false},
	}
	for _, c := range cases {
		branch, ok := c.step.TouchedBranch()
		if branch != c.wantBranch || ok != c.wantOk {
			t.Errorf("TouchedBranch(%s) = (%q, %v), want (%q, %v)", c.step.Kind, branch, ok, c.wantBranch, c.wantOk)
		}
	}
}
