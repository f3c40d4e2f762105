// Package journal persists the Executor's per-operation record to disk:
// the append-only journal at <common_dir>/lattice/ops/<op_id>.json and the
// op-state marker at <common_dir>/lattice/op-state.json. Both are written
// by the same atomic temp-file-then-rename path no partial write can ever
// leave a reader looking at a half-written document.
package journal

import "github.com/kofron/lattice/internal/planner"

// Phase is the closed set of lifecycle states a journal document can be in.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhasePaused     Phase = "paused"
	PhaseCommitted  Phase = "committed"
	PhaseRolledBack Phase = "rolled_back"
)

// StepResultKind discriminates the tagged StepResult variant.
type StepResultKind string

const (
	StepApplied    StepResultKind = "applied"
	StepRolledBack StepResultKind = "rolled_back"
)

// StepResult records the outcome of executing a single plan step, appended
// to Document.Entries in step order as the Executor runs. TouchedRef and
// the before/after oids are what rollback replays in reverse: a CAS update
// of TouchedRef back from NewOid to PriorOid. NewOid is also what a later
// WriteMetadata step consults when its planned base.oid was left pending —
// the RebaseOnto entry immediately before it carries the real post-rebase
// tip the planner couldn't have predicted.
type StepResult struct {
	Kind       StepResultKind `json:"kind"`
	StepIndex  int            `json:"step_index"`
	Timestamp  string         `json:"timestamp"`
	TouchedRef string         `json:"touched_ref,omitempty"`
	PriorOid   string         `json:"prior_oid,omitempty"` // "" means the ref did not exist before this step
	NewOid     string         `json:"new_oid,omitempty"`
}

// Document is the full on-disk journal for one operation. It is rewritten
// in full on every append — there is no "append-in-place" mode, so a
// reader only ever observes a syntactically complete document.
type Document struct {
	OpID          string        `json:"op_id"`
	Command       string        `json:"command"`
	SchemaVersion int           `json:"schema_version"`
	Plan          *planner.Plan `json:"plan"`
	PlanDigest    string        `json:"plan_digest"`
	Phase         Phase         `json:"phase"`
	StartedAt     string        `json:"started_at"`
	VerifyHooks   bool          `json:"verify_hooks"`
	Entries       []StepResult  `json:"entries"`
}

// AwaitingReasonKind discriminates the tagged AwaitingReason variant.
type AwaitingReasonKind string

const (
	RebaseConflict     AwaitingReasonKind = "rebase_conflict"
	RollbackIncomplete AwaitingReasonKind = "rollback_incomplete"
	VerificationFailed AwaitingReasonKind = "verification_failed"
)

// AwaitingReason explains why an operation is paused waiting on the user.
// Exactly one of the kind-specific fields is populated, selected by Kind.
type AwaitingReason struct {
	Kind AwaitingReasonKind `json:"kind"`

	FailedRefs []string `json:"failed_refs,omitempty"` // set iff Kind == RollbackIncomplete
	Evidence   string   `json:"evidence,omitempty"`     // set iff Kind == VerificationFailed
}

// OpStateKind discriminates the tagged OpState variant.
type OpStateKind string

const (
	Executing    OpStateKind = "executing"
	AwaitingUser OpStateKind = "awaiting_user"
)

// OpState is the marker file at <common_dir>/lattice/op-state.json: its
// mere presence is what makes `lattice continue`/`lattice abort` meaningful
// and what every other command's occupancy check refuses to run alongside.
type OpState struct {
	Kind OpStateKind `json:"kind"`

	OpID           string          `json:"op_id"`
	Command        string          `json:"command"`
	PlanDigest     string          `json:"plan_digest"`
	SchemaVersion  int             `json:"schema_version"`
	OriginWorktree string          `json:"origin_worktree"`
	StartedAt      string          `json:"started_at"`
	AwaitingReason *AwaitingReason `json:"awaiting_reason,omitempty"` // set iff Kind == AwaitingUser
}
