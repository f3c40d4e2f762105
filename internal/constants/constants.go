package constants

import "time"

// Remote and branch defaults.
const (
	DefaultRemote = "origin"
	DefaultBranch = "main"
	MasterBranch  = "master"
)

// Timeouts for individual gitx invocations. These bound the invocation
// itself, never a conflict pause — a rebase that stops for user conflict
// resolution returns a structured conflict descriptor well within
// RebaseOperationTimeout; the timeout only guards against a hung process.
const (
	DefaultFetchTimeout     = 30 * time.Second
	DefaultOperationTimeout = 10 * time.Second
	QuickOperationTimeout   = 5 * time.Second
	BranchOperationTimeout  = 2 * time.Second
	RebaseOperationTimeout  = 5 * time.Minute
)

// PlanSchemaVersion is compared against a paused operation's journal on
// `lattice continue`; a mismatch is a hard error.
const PlanSchemaVersion = 1

// MetadataSchemaVersion is the only schema_version a branch metadata blob
// may declare.
const MetadataSchemaVersion = 1

// RepoAuthorizedCacheTTL bounds how long a RepoAuthorized result may be
// reused without re-verifying against the forge.
const RepoAuthorizedCacheTTL = 10 * time.Minute

// ListOpenPRsDefaultCap is the default page cap for list-open-PRs pagination.
const ListOpenPRsDefaultCap = 200
