// Package ledger implements the event ledger: an append-only commit chain
// under refs/lattice/event-log recording what Lattice did, for evidence and
// divergence detection only. It is never replayed to
// overwrite refs and never consulted to decide whether a mutation is safe —
// only Git refs and metadata are authority.
package ledger

// Kind is the closed set of event kinds the ledger records.
type Kind string

const (
	IntentRecordedKind    Kind = "IntentRecorded"
	CommittedKind         Kind = "Committed"
	AbortedKind           Kind = "Aborted"
	DivergenceObservedKind Kind = "DivergenceObserved"
	DoctorProposedKind    Kind = "DoctorProposed"
	DoctorAppliedKind     Kind = "DoctorApplied"
)

// Event is the envelope stored as event.json in each ledger commit's tree.
// Exactly one payload field is populated, selected by Kind — the same
// manually-validated tagged-variant shape as internal/metadata.BranchMetadata,
// chosen so the ledger never depends on a generic interface{} payload that
// strict JSON decoding can't validate.
type Event struct {
	Kind      Kind   `json:"kind"`
	Timestamp string `json:"timestamp"` // RFC3339, set by the caller at append time

	IntentRecorded     *IntentRecordedPayload     `json:"intent_recorded,omitempty"`
	Committed          *CommittedPayload          `json:"committed,omitempty"`
	Aborted            *AbortedPayload            `json:"aborted,omitempty"`
	DivergenceObserved *DivergenceObservedPayload `json:"divergence_observed,omitempty"`
	DoctorProposed     *DoctorProposedPayload     `json:"doctor_proposed,omitempty"`
	DoctorApplied      *DoctorAppliedPayload      `json:"doctor_applied,omitempty"`
}

// IntentRecordedPayload is appended by the Executor before it takes any
// mutating step, recording what it is about to attempt.
type IntentRecordedPayload struct {
	OpID           string   `json:"op_id"`
	Command        string   `json:"command"`
	PreFingerprint string   `json:"pre_fingerprint"`
	TouchedRefs    []string `json:"touched_refs"`
}

// CommittedPayload is appended on a successful operation.
type CommittedPayload struct {
	OpID            string `json:"op_id"`
	PostFingerprint string `json:"post_fingerprint"`
}

// AbortedPayload is appended when an operation rolls back, whether from a
// CAS loss, a conflict abandonment, or a post-verify failure.
type AbortedPayload struct {
	OpID                string   `json:"op_id"`
	Reason              string   `json:"reason"`
	PartialTouchedRefs  []string `json:"partial_touched_refs"`
}

// DivergenceObservedPayload is appended by the Scanner — the one event kind
// a read path may append, since the ledger is evidence, not state.
type DivergenceObservedPayload struct {
	PriorFingerprint   string `json:"prior_fingerprint"`
	CurrentFingerprint string `json:"current_fingerprint"`
	DiffSummary        string `json:"diff_summary"`
}

// DoctorProposedPayload is appended when doctor presents a repair bundle,
// before the user (or a non-interactive fix-id list) selects fixes.
type DoctorProposedPayload struct {
	IssueIDs       []string `json:"issue_ids"`
	SelectedFixIDs []string `json:"selected_fix_ids"`
}

// DoctorAppliedPayload is appended after a repair bundle's Plan has run
// through the Executor to completion.
type DoctorAppliedPayload struct {
	ResolvedIssueIDs []string `json:"resolved_issue_ids"`
	PlanDigest       string   `json:"plan_digest"`
}
