package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kofron/lattice/internal/capability"
	"github.com/kofron/lattice/internal/engine"
	"github.com/kofron/lattice/internal/metadata"
	"github.com/kofron/lattice/internal/planner"
	"github.com/kofron/lattice/internal/scanner"
)

var flagTrackParent string

func init() {
	trackCmd.Flags().StringVar(&flagTrackParent, "parent", "", "Parent branch (defaults to trunk)")
}

var trackCmd = &cobra.Command{
	Use:   "track <branch>",
	Short: "Start tracking an existing local branch in the stack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEngineCommand(cmd.Context(), &trackCommand{branch: args[0], parent: flagTrackParent})
	},
}

// trackCommand implements engine.Command for `lattice track`: it registers
// a fresh metadata document for a branch that already exists locally but
// has never had one, stacking it on --parent (or trunk when omitted).
type trackCommand struct {
	branch string
	parent string
}

func (c *trackCommand) Name() string { return "track" }

func (c *trackCommand) Requirements(snap *scanner.RepoSnapshot) capability.RequirementSet {
	return capability.MutatingMetadataOnly
}

func (c *trackCommand) Scope(snap *scanner.RepoSnapshot) []string {
	return nil
}

func (c *trackCommand) Plan(ctx context.Context, snap *scanner.RepoSnapshot, rc *engine.ReadyContext) (*planner.Plan, error) {
	if _, already := snap.TrackedBranches[c.branch]; already {
		return nil, fmt.Errorf("branch %q is already tracked", c.branch)
	}
	if _, exists := snap.LocalBranches[c.branch]; !exists {
		return nil, fmt.Errorf("branch %q does not exist locally", c.branch)
	}

	parentName := c.parent
	if parentName == "" {
		parentName = snap.Trunk
	}
	parentTip, ok := snap.LocalBranches[parentName]
	if !ok {
		return nil, fmt.Errorf("parent branch %q does not exist locally", parentName)
	}
	if parentName != snap.Trunk {
		if _, tracked := snap.TrackedBranches[parentName]; !tracked {
			return nil, fmt.Errorf("parent branch %q is not tracked", parentName)
		}
	}

	md := metadata.NewUnfrozen(c.branch, string(parentTip), nowRFC3339())
	if parentName != snap.Trunk {
		md.Parent = metadata.Parent{Kind: metadata.ParentBranch, Name: parentName}
	}

	plan := planner.New()
	plan.Append(planner.PlanStep{
		Kind: planner.StepWriteMetadata,
		WriteMetadata: &planner.WriteMetadataStep{
			Branch:         c.branch,
			NewMeta:        md,
			ExpectedOldOid: "",
		},
	})
	return plan, nil
}
