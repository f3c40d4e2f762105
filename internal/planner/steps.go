// Package planner derives a typed, ordered Plan from a validated context
// and command parameters. It performs no I/O and reads no clock: a
// timestamp a step carries (Restack's now) is passed in by the caller and
// written as planned (the Executor does not restamp it), so two calls with
// the same inputs always produce the same Plan.
package planner

import "github.com/kofron/lattice/internal/metadata"

// StepKind discriminates the tagged PlanStep variant.
type StepKind string

const (
	StepUpdateRefCas         StepKind = "update_ref_cas"
	StepRebaseOnto           StepKind = "rebase_onto"
	StepWriteMetadata        StepKind = "write_metadata"
	StepDeleteMetadata       StepKind = "delete_metadata"
	StepFetchRef             StepKind = "fetch_ref"
	StepCreateSnapshotBranch StepKind = "create_snapshot_branch"
	StepForgeCreatePr        StepKind = "forge_create_pr"
	StepForgeUpdatePr        StepKind = "forge_update_pr"
	StepForgePush            StepKind = "forge_push"
	StepCheckpoint           StepKind = "checkpoint"
)

// UpdateRefCasStep moves a ref by compare-and-swap.
type UpdateRefCasStep struct {
	Refname      string
	NewOid       string
	ExpectedOld  string // "" means the ref must not already exist
	Reason       string
}

// RebaseOntoStep drives `git rebase --onto onto upstream branch`.
type RebaseOntoStep struct {
	Branch   string
	Upstream string
	Onto     string
}

// WriteMetadataStep replaces a branch's metadata document via CAS.
type WriteMetadataStep struct {
	Branch         string
	NewMeta        *metadata.BranchMetadata
	ExpectedOldOid string // blob OID observed at scan time, "" if none existed
}

// DeleteMetadataStep removes a branch's metadata ref via CAS.
type DeleteMetadataStep struct {
	Branch         string
	ExpectedOldOid string
}

// FetchRefStep fetches a single refspec from a remote.
type FetchRefStep struct {
	Remote string
	Spec   string
}

// CreateSnapshotBranchStep creates the frozen snapshot branch a merged PR
// leaves behind, naming the PR it corresponds to.
type CreateSnapshotBranchStep struct {
	Name      string
	PRNumber  int
	HeadRef   string
	HeadOid   string
}

// ForgeCreatePrStep opens a new pull request for a branch.
type ForgeCreatePrStep struct {
	Branch string
	Title  string
	Body   string
	Base   string
	Draft  bool
}

// ForgeUpdatePrStep edits an existing pull request.
type ForgeUpdatePrStep struct {
	Branch string
	Number int
	Title  *string
	Body   *string
	Base   *string
}

// ForgePushStep pushes a branch to the forge remote ahead of creating or
// updating its pull request.
type ForgePushStep struct {
	Branch         string
	Remote         string
	ForceWithLease bool
}

// CheckpointStep marks a point the journal can report progress against; it
// has no effect beyond being recorded.
type CheckpointStep struct {
	Name string
}

// PlanStep is one step of a Plan. Exactly one of the typed fields is
// populated, selected by Kind — the same manually-validated tagged-variant
// shape internal/metadata and internal/ledger use, so planner never leans
// on a generic interface{} payload that can't be strictly validated or
// digested.
type PlanStep struct {
	Kind StepKind `json:"kind"`

	UpdateRefCas         *UpdateRefCasStep         `json:"update_ref_cas,omitempty"`
	RebaseOnto           *RebaseOntoStep           `json:"rebase_onto,omitempty"`
	WriteMetadata        *WriteMetadataStep        `json:"write_metadata,omitempty"`
	DeleteMetadata       *DeleteMetadataStep       `json:"delete_metadata,omitempty"`
	FetchRef             *FetchRefStep             `json:"fetch_ref,omitempty"`
	CreateSnapshotBranch *CreateSnapshotBranchStep `json:"create_snapshot_branch,omitempty"`
	ForgeCreatePr        *ForgeCreatePrStep        `json:"forge_create_pr,omitempty"`
	ForgeUpdatePr        *ForgeUpdatePrStep        `json:"forge_update_pr,omitempty"`
	ForgePush            *ForgePushStep            `json:"forge_push,omitempty"`
	Checkpoint           *CheckpointStep           `json:"checkpoint,omitempty"`
}

// IsMutation reports whether the step writes repository-visible state (as
// opposed to FetchRef or Checkpoint, which never do).
func (s PlanStep) IsMutation() bool {
	switch s.Kind {
	case StepFetchRef, StepCheckpoint:
		return false
	default:
		return true
	}
}

// TouchedRefs returns the refs this step writes, for occupancy gating, CAS
// precondition tracking, and rollback scope. Branch refs are returned in
// their full refs/heads/ form so they compare directly against worktree
// occupancy checks and metadata refs.
func (s PlanStep) TouchedRefs() []string {
	switch s.Kind {
	case StepUpdateRefCas:
		return []string{s.UpdateRefCas.Refname}
	case StepRebaseOnto:
		return []string{"refs/heads/" + s.RebaseOnto.Branch}
	case StepWriteMetadata:
		return []string{"refs/branch-metadata/" + s.WriteMetadata.Branch}
	case StepDeleteMetadata:
		return []string{"refs/branch-metadata/" + s.DeleteMetadata.Branch}
	case StepCreateSnapshotBranch:
		return []string{"refs/heads/" + s.CreateSnapshotBranch.Name}
	default:
		return nil
	}
}

// TouchedBranch returns the plain branch name this step operates on, and
// whether the step names one at all (ForgeCreatePr/ForgeUpdatePr/ForgePush
// name a branch without touching a ref directly; FetchRef and Checkpoint
// name none).
func (s PlanStep) TouchedBranch() (string, bool) {
	switch s.Kind {
	case StepRebaseOnto:
		return s.RebaseOnto.Branch, true
	case StepWriteMetadata:
		return s.WriteMetadata.Branch, true
	case StepDeleteMetadata:
		return s.DeleteMetadata.Branch, true
	case StepForgeCreatePr:
		return s.ForgeCreatePr.Branch, true
	case StepForgeUpdatePr:
		return s.ForgeUpdatePr.Branch, true
	case StepForgePush:
		return s.ForgePush.Branch, true
	default:
		return "", false
	}
}
