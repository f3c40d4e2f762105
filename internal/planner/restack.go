package planner

import (
	"sort"

	"github.com/kofron/lattice/internal/capability"
	"github.com/kofron/lattice/internal/metadata"
)

// TrackedBranch is one branch's metadata plus the blob OID it was read at,
// so WriteMetadata steps can carry the CAS precondition the scan observed.
type TrackedBranch struct {
	Meta    *metadata.BranchMetadata
	MetaOid string // "" if the branch has no metadata ref yet
}

// RestackInput is everything the restack algorithm needs, assembled by the
// Engine from a ReadyContext. It carries no clock and performs no I/O of
// its own.
type RestackInput struct {
	Trunk     string
	Graph     capability.Graph
	Tracked   map[string]TrackedBranch
	LocalTips map[string]string // branch -> current tip OID
	Scope     []string          // branches under consideration, any order
}

// topoOrder returns scope in bottom-up order: a branch's parent (if also in
// scope) always precedes it. Ties — branches with no ordering constraint
// between them — break by name, for determinism.
func topoOrder(g capability.Graph, scope []string) []string {
	inScope := make(map[string]bool, len(scope))
	for _, b := range scope {
		inScope[b] = true
	}

	visited := map[string]bool{}
	var order []string

	var visit func(branch string)
	visit = func(branch string) {
		if visited[branch] {
			return
		}
		visited[branch] = true
		if parent, ok := g.Parent(branch); ok && inScope[parent] {
			visit(parent)
		}
		order = append(order, branch)
	}

	sorted := append([]string{}, scope...)
	sort.Strings(sorted)
	for _, b := range sorted {
		visit(b)
	}
	return order
}

// pendingOid marks a WriteMetadata step's base.oid as not yet known at plan
// time: its RebaseOnto companion targets the parent branch by name, not by
// OID, so the rebase picks up whatever tip the parent actually lands on —
// including a tip produced by that same parent's own RebaseOnto step earlier
// in this plan. The Executor fills this field in with the real post-rebase
// tip immediately after running the paired RebaseOnto, before the CAS write.
const pendingOid = ""

// Restack derives the plan steps that bring every branch in input.Scope
// back into sync with its parent's current tip. For a branch b with parent
// p: if p is unchanged by this plan and b.base.oid already equals p's
// scanned tip, no step is emitted. Otherwise a RebaseOnto targeting p by
// branch name is emitted, followed by a WriteMetadata recording the new
// base — left pending if p is itself being restacked in this same pass,
// since its final tip isn't known until the Executor runs that rebase.
// Traversal is bottom-up (ancestors first) so that by the time a child is
// considered, its parent's touched-by-this-plan status is already decided.
func Restack(input RestackInput, now string) []PlanStep {
	var steps []PlanStep

	order := topoOrder(input.Graph, input.Scope)
	touched := map[string]bool{}

	for _, branch := range order {
		tracked, ok := input.Tracked[branch]
		if !ok {
			continue // untracked branch in scope (shouldn't happen; nothing to restack)
		}

		parent, ok := input.Graph.Parent(branch)
		if !ok {
			parent = input.Trunk
		}

		parentScanTip, known := input.LocalTips[parent]
		if !known {
			continue // dangling parent; doctor's concern, not restack's
		}

		if !touched[parent] && tracked.Meta.Base.Oid == parentScanTip {
			continue // already based on the parent's current tip
		}

		steps = append(steps, PlanStep{
			Kind: StepRebaseOnto,
			RebaseOnto: &RebaseOntoStep{
				Branch:   branch,
				Upstream: tracked.Meta.Base.Oid,
				Onto:     parent,
			},
		})

		newMeta := cloneMeta(tracked.Meta)
		if touched[parent] {
			newMeta.Base.Oid = pendingOid
		} else {
			newMeta.Base.Oid = parentScanTip
		}
		newMeta.Timestamps.UpdatedAt = now

		steps = append(steps, PlanStep{
			Kind: StepWriteMetadata,
			WriteMetadata: &WriteMetadataStep{
				Branch:         branch,
				NewMeta:        newMeta,
				ExpectedOldOid: tracked.MetaOid,
			},
		})

		touched[branch] = true
	}

	return steps
}

func cloneMeta(md *metadata.BranchMetadata) *metadata.BranchMetadata {
	clone := *md
	return &clone
}
