package planner

import (
	"sort"

	"github.com/kofron/lattice/internal/canon"
	"github.com/kofron/lattice/internal/constants"
)

// Plan is an ordered, typed step sequence partitioned into three phases:
// local structural changes, local verification, and remote interaction.
// Steps within a phase run in the order the Planner emitted them; phases
// themselves always run in this fixed order.
type Plan struct {
	SchemaVersion int        `json:"schema_version"`
	Steps         []PlanStep `json:"steps"`
}

// New builds an empty Plan stamped with the build's current plan schema
// version.
func New() *Plan {
	return &Plan{SchemaVersion: constants.PlanSchemaVersion}
}

// Append adds a step to the end of the plan.
func (p *Plan) Append(step PlanStep) {
	p.Steps = append(p.Steps, step)
}

// TouchedBranches is the union, sorted, of every branch named by any step
// in the plan — the single source of truth for occupancy gating, CAS
// precondition tracking, and rollback scope.
func (p *Plan) TouchedBranches() []string {
	seen := map[string]bool{}
	for _, step := range p.Steps {
		if branch, ok := step.TouchedBranch(); ok {
			seen[branch] = true
		}
	}
	branches := make([]string, 0, len(seen))
	for b := range seen {
		branches = append(branches, b)
	}
	sort.Strings(branches)
	return branches
}

// TouchedRefs is the union of every ref any step writes, in plan order
// (duplicates kept — the Executor records one journal entry per step, not
// per unique ref).
func (p *Plan) TouchedRefs() []string {
	var refs []string
	for _, step := range p.Steps {
		refs = append(refs, step.TouchedRefs()...)
	}
	return refs
}

// Digest returns the SHA-256 of the plan's canonical JSON encoding with
// stable key ordering — recorded in op-state and compared against the
// journal on `lattice continue` as a defense-in-depth check alongside the
// schema version.
func (p *Plan) Digest() (string, error) {
	return canon.Digest(p)
}
