// Package metadata reads and writes branch metadata blobs — the content-
// addressed JSON documents pointed to by refs/branch-metadata/<branch>.
// Reads reject unknown fields and unrecognized schema versions outright;
// writes always go through a CAS ref update with no merge semantics.
package metadata

const (
	Kind          = "lattice.branch-metadata"
	SchemaVersion = 1
)

// ParentKind discriminates the tagged parent variant.
type ParentKind string

const (
	ParentBranch ParentKind = "branch"
	ParentTrunk  ParentKind = "trunk"
)

// Parent identifies what a tracked branch stacks on: another tracked branch,
// or trunk directly.
type Parent struct {
	Kind ParentKind `json:"kind"`
	Name string     `json:"name,omitempty"` // set iff Kind == ParentBranch
}

// Base records the commit a branch was rebased onto at its last restack.
type Base struct {
	Oid string `json:"oid"`
}

// FreezeKind discriminates the tagged freeze variant.
type FreezeKind string

const (
	Unfrozen FreezeKind = "unfrozen"
	Frozen   FreezeKind = "frozen"
)

// Freeze records whether a branch is exempt from automatic restacking, and
// if so, over what scope and why.
type Freeze struct {
	Kind     FreezeKind `json:"kind"`
	Scope    string     `json:"scope,omitempty"`    // set iff Kind == Frozen
	Reason   string     `json:"reason,omitempty"`   // set iff Kind == Frozen
	FrozenAt string     `json:"frozen_at,omitempty"` // set iff Kind == Frozen
}

// PRKind discriminates the tagged pull-request linkage variant.
type PRKind string

const (
	PRNone   PRKind = "none"
	PRLinked PRKind = "linked"
)

// LastKnown is the most recently observed forge-side snapshot of a linked
// pull request. It is cached evidence only — never a source of truth for
// structural decisions.
type LastKnown struct {
	State     string `json:"state,omitempty"`
	Mergeable *bool  `json:"mergeable,omitempty"`
	HeadOid   string `json:"head_oid,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// PR records a branch's linkage to a forge pull request.
type PR struct {
	Kind      PRKind     `json:"kind"`
	Forge     string     `json:"forge,omitempty"` // e.g. "github"; set iff Kind == PRLinked
	Number    int        `json:"number,omitempty"`
	URL       string     `json:"url,omitempty"`
	LastKnown *LastKnown `json:"last_known,omitempty"`
}

// Timestamps tracks document provenance, not Git history.
type Timestamps struct {
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// BranchRef names the branch a metadata document describes.
type BranchRef struct {
	Name string `json:"name"`
}

// BranchMetadata is the full schema-versioned document stored at
// refs/branch-metadata/<branch>.
type BranchMetadata struct {
	Kind          string     `json:"kind"`
	SchemaVersion int        `json:"schema_version"`
	Branch        BranchRef  `json:"branch"`
	Parent        Parent     `json:"parent"`
	Base          Base       `json:"base"`
	Freeze        Freeze     `json:"freeze"`
	PR            PR         `json:"pr"`
	Timestamps    Timestamps `json:"timestamps"`
}

// NewUnfrozen builds a fresh document for a newly tracked branch stacked
// directly on trunk, with no forge linkage yet.
func NewUnfrozen(branch, baseOid, now string) *BranchMetadata {
	return &BranchMetadata{
		Kind:          Kind,
		SchemaVersion: SchemaVersion,
		Branch:        BranchRef{Name: branch},
		Parent:        Parent{Kind: ParentTrunk},
		Base:          Base{Oid: baseOid},
		Freeze:        Freeze{Kind: Unfrozen},
		PR:            PR{Kind: PRNone},
		Timestamps:    Timestamps{CreatedAt: now, UpdatedAt: now},
	}
}
