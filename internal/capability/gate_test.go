package capability

import "testing"

func TestGate_AllSatisfied_Ready(t *testing.T) {
	caps := Set{RepoOpen: true, TrunkKnown: true, MetadataReadable: true, GraphValid: true, WorkingDirectoryAvailable: true}
	result := Gate(caps, nil, Navigation, []string{"feature"})
	if !result.Ready {
		t.Fatalf("expected Ready, got NeedsRepair with issues: %+v", result.Issues)
	}
	if len(result.ValidatedScope) != 1 || result.ValidatedScope[0] != "feature" {
		t.Errorf("expected validated scope [feature], got %v", result.ValidatedScope)
	}
}

func TestGate_MissingCapability_NeedsRepairWithIssue(t *testing.T) {
	caps := Set{RepoOpen: true}
	issue := Issue{ID: "missing-trunk", Severity: Blocking, Message: "no trunk configured", BlocksCapabilities: []Capability{TrunkKnown}}
	result := Gate(caps, []Issue{issue}, Navigation, nil)

	if result.Ready {
		t.Fatal("expected NeedsRepair, got Ready")
	}
	found := false
	for _, i := range result.Issues {
		if i.ID == "missing-trunk" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing-trunk issue in result, got %+v", result.Issues)
	}
}

func TestGate_MissingCapability_NoMatchingIssue_SynthesizesOne(t *testing.T) {
	caps := Set{RepoOpen: true}
	result := Gate(caps, nil, Navigation, nil)

	if result.Ready {
		t.Fatal("expected NeedsRepair, got Ready")
	}
	if len(result.Issues) == 0 {
		t.Fatal("expected synthesized issues for unmet requirements")
	}
}

func TestGate_DeduplicatesRepeatedIssue(t *testing.T) {
	caps := Set{}
	issue := Issue{ID: "dup", Severity: Blocking, BlocksCapabilities: []Capability{RepoOpen, TrunkKnown}}
	result := Gate(caps, []Issue{issue}, Navigation, nil)

	count := 0
	for _, i := range result.Issues {
		if i.ID == "dup" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected issue blocking two requirements to appear once, got %d", count)
	}
}

type fakeGraph struct {
	parents  map[string]string
	children map[string][]string
}

func (g fakeGraph) Parent(branch string) (string, bool) {
	p, ok := g.parents[branch]
	return p, ok
}

func (g fakeGraph) Children(branch string) []string {
	return g.children[branch]
}

func TestDownstackScope_StopsAtTrunk(t *testing.T) {
	g := fakeGraph{parents: map[string]string{"c": "b", "b": "a"}} // a has no entry -> trunk
	scope := DownstackScope(g, "c")
	want := []string{"c", "b", "a"}
	if len(scope) != len(want) {
		t.Fatalf("expected %v, got %v", want, scope)
	}
	for i := range want {
		if scope[i] != want[i] {
			t.Errorf("scope[%d] = %q, want %q", i, scope[i], want[i])
		}
	}
}

func TestWithUpstackScope_IncludesDescendants(t *testing.T) {
	g := fakeGraph{
		parents:  map[string]string{"b": "a", "c": "b", "d": "b"},
		children: map[string][]string{"a": {"b"}, "b": {"c", "d"}},
	}
	scope := WithUpstackScope(g, "b")

	want := map[string]bool{"b": true, "a": true, "c": true, "d": true}
	if len(scope) != len(want) {
		t.Fatalf("expected %d branches, got %v", len(want), scope)
	}
	for _, b := range scope {
		if !want[b] {
			t.Errorf("unexpected branch %q in scope", b)
		}
	}
}

func TestFrozenPolicySatisfied(t *testing.T) {
	scope := []string{"a", "b", "c"}
	frozen := func(b string) bool { return b == "b" }

	if FrozenPolicySatisfied(scope, frozen) {
		t.Error("expected policy violated when a branch in scope is frozen")
	}

	unfrozen := func(b string) bool { return false }
	if !FrozenPolicySatisfied(scope, unfrozen) {
		t.Error("expected policy satisfied when no branch in scope is frozen")
	}
}
