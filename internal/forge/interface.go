// Package forge defines the typed async trait Lattice drives against a
// remote code-hosting service and the error taxonomy forge
// adapters classify their failures into. The core treats every Adapter
// call as cached, non-structural metadata: a forge failure must never
// leave ref or metadata state inconsistent, and nothing here is consulted
// to decide whether a local mutation is safe.
package forge

import (
	"context"
	"time"
)

// Adapter is the one surface the core drives a forge through. v1 ships a
// single implementation (internal/forge/github); additional platforms are
// a drop-in addition behind NewAdapter's URL-sniffing factory.
type Adapter interface {
	CreatePR(ctx context.Context, req CreatePRRequest) (*PullRequest, error)
	UpdatePR(ctx context.Context, number int, req UpdatePRRequest) (*PullRequest, error)
	GetPR(ctx context.Context, number int) (*PullRequest, error)
	FindPRByHead(ctx context.Context, headBranch string) (*PullRequest, error)
	ListOpenPRs(ctx context.Context, opts ListOpenPRsOptions) (ListOpenPRsResult, error)
	SetDraft(ctx context.Context, number int, draft bool) (*PullRequest, error)
	RequestReviewers(ctx context.Context, number int, reviewers []string) error
	MergePR(ctx context.Context, number int, opts MergePROptions) error

	Owner() string
	Repo() string
	Platform() string
}

// CreatePRRequest describes a pull request to open.
type CreatePRRequest struct {
	Title string
	Body  string
	Head  string // branch name, same-repo only
	Base  string
	Draft bool
}

// UpdatePRRequest patches only the fields that are non-nil.
type UpdatePRRequest struct {
	Title *string
	Body  *string
	Base  *string
}

// PullRequest is the forge-agnostic shape the core caches as metadata.
type PullRequest struct {
	Number    int
	Title     string
	Body      string
	Head      string
	Base      string
	State     string // "open", "closed"
	Draft     bool
	Merged    bool
	URL       string
	UpdatedAt time.Time
}

// ListOpenPRsOptions scopes a ListOpenPRs call. Base, when non-empty,
// restricts the listing to PRs targeting that branch.
type ListOpenPRsOptions struct {
	Base  string
	Limit int // <= 0 means the adapter's default cap
}

// ListOpenPRsResult reports whether the listing was capped before
// exhausting the forge's result set.
type ListOpenPRsResult struct {
	Pulls     []PullRequest
	Truncated bool
}

// MergePROptions selects a merge strategy.
type MergePROptions struct {
	Method        string // "merge", "squash", "rebase"
	CommitTitle   string
	CommitMessage string
}
