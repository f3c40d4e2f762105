// Package doctor turns blocking capability.Issues into proposed repairs:
// a catalogue of FixOptions, each carrying a human preview and a Build
// func that composes the Plan the Executor will apply. No FixOption ever
// touches a ref directly — every repair, like every other mutation in
// Lattice, runs through internal/executor.
package doctor

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/kofron/lattice/internal/metadata"
	"github.com/kofron/lattice/internal/planner"
	"github.com/kofron/lattice/internal/scanner"
)

// FixOption is one automatically composable repair for a single blocking
// issue.
type FixOption struct {
	ID          string
	IssueID     string
	Description string
	Preview     string
	Build       func(ctx context.Context) (*planner.Plan, error)
}

// Propose returns one FixOption per issue in snap.Issues this catalogue
// knows how to repair. Issues with no known automatic fix — a cycle in
// the stack graph, a missing trunk, an in-progress operation — are left
// out; those need `lattice continue`/`abort` or manual intervention, and
// the caller lists them separately as unresolved.
func Propose(meta *metadata.Store, snap *scanner.RepoSnapshot) []FixOption {
	var opts []FixOption
	for _, issue := range snap.Issues {
		switch {
		case strings.HasPrefix(issue.ID, "missing-parent-branch:"):
			branch := strings.TrimPrefix(issue.ID, "missing-parent-branch:")
			opts = append(opts, reparentToTrunk(meta, snap.Trunk, branch))
		case strings.HasPrefix(issue.ID, "metadata-parse-error:"):
			branch := strings.TrimPrefix(issue.ID, "metadata-parse-error:")
			opts = append(opts, untrackBranch(meta, branch))
		}
	}
	return opts
}

// reparentToTrunk fixes a branch whose metadata names a parent that is
// neither trunk nor another tracked branch, by rewriting it to stack
// directly on trunk.
func reparentToTrunk(meta *metadata.Store, trunk, branch string) FixOption {
	return FixOption{
		ID:          "reparent-to-trunk:" + branch,
		IssueID:     "missing-parent-branch:" + branch,
		Description: fmt.Sprintf("reparent %q onto trunk %q", branch, trunk),
		Preview:     fmt.Sprintf("write_metadata %s: parent -> trunk", branch),
		Build: func(ctx context.Context) (*planner.Plan, error) {
			md, oid, err := meta.Read(ctx, branch)
			if err != nil {
				return nil, fmt.Errorf("re-reading metadata for %s: %w", branch, err)
			}
			fixed := *md
			fixed.Parent = metadata.Parent{Kind: metadata.ParentTrunk}
			fixed.Timestamps.UpdatedAt = now()

			plan := planner.New()
			plan.Append(planner.PlanStep{
				Kind: planner.StepWriteMetadata,
				WriteMetadata: &planner.WriteMetadataStep{
					Branch:         branch,
					NewMeta:        &fixed,
					ExpectedOldOid: string(oid),
				},
			})
			return plan, nil
		},
	}
}

// untrackBranch fixes a branch whose metadata document fails strict
// parsing by deleting the metadata ref outright — the branch itself is
// untouched, it simply stops being part of the tracked stack until
// re-tracked.
func untrackBranch(meta *metadata.Store, branch string) FixOption {
	return FixOption{
		ID:          "untrack-branch:" + branch,
		IssueID:     "metadata-parse-error:" + branch,
		Description: fmt.Sprintf("stop tracking %q (its metadata document could not be parsed)", branch),
		Preview:     fmt.Sprintf("delete_metadata %s", branch),
		Build: func(ctx context.Context) (*planner.Plan, error) {
			expected, err := currentMetadataOid(ctx, meta, branch)
			if err != nil {
				return nil, err
			}
			plan := planner.New()
			plan.Append(planner.PlanStep{
				Kind: planner.StepDeleteMetadata,
				DeleteMetadata: &planner.DeleteMetadataStep{
					Branch:         branch,
					ExpectedOldOid: expected,
				},
			})
			return plan, nil
		},
	}
}

// currentMetadataOid re-reads a branch's metadata blob oid even when the
// document itself fails strict parsing, by recovering BlobOid from the
// typed parse error rather than re-deriving it.
func currentMetadataOid(ctx context.Context, meta *metadata.Store, branch string) (string, error) {
	_, oid, err := meta.Read(ctx, branch)
	if err == nil {
		return string(oid), nil
	}

	var parseErr *metadata.ParseError
	if stderrors.As(err, &parseErr) {
		return parseErr.BlobOid, nil
	}
	var schemaErr *metadata.SchemaMismatchError
	if stderrors.As(err, &schemaErr) {
		return schemaErr.BlobOid, nil
	}
	return "", fmt.Errorf("re-reading metadata for %s: %w", branch, err)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
