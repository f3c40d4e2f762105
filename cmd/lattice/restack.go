package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kofron/lattice/internal/capability"
	"github.com/kofron/lattice/internal/engine"
	"github.com/kofron/lattice/internal/planner"
	"github.com/kofron/lattice/internal/scanner"
)

var restackCmd = &cobra.Command{
	Use:   "restack [branch]",
	Short: "Rebase a branch and its stack onto their parents' current tips",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		return runEngineCommand(cmd.Context(), &restackCommand{target: target})
	},
}

// restackCommand implements engine.Command for `lattice restack`. Scope
// defaults to the current branch when no explicit target is given, and
// always widens to the full downstack+upstack set so a restack of any one
// branch never leaves a sibling based on a tip it is about to move.
type restackCommand struct {
	target string
}

func (c *restackCommand) Name() string { return "restack" }

func (c *restackCommand) resolveTarget(snap *scanner.RepoSnapshot) string {
	if c.target != "" {
		return c.target
	}
	return snap.CurrentBranch
}

func (c *restackCommand) Requirements(snap *scanner.RepoSnapshot) capability.RequirementSet {
	return capability.Mutating
}

func (c *restackCommand) Scope(snap *scanner.RepoSnapshot) []string {
	target := c.resolveTarget(snap)
	if target == "" {
		return nil
	}
	return capability.WithUpstackScope(snap.Graph, target)
}

func (c *restackCommand) Plan(ctx context.Context, snap *scanner.RepoSnapshot, rc *engine.ReadyContext) (*planner.Plan, error) {
	tracked := make(map[string]planner.TrackedBranch, len(snap.TrackedBranches))
	for name, md := range snap.TrackedBranches {
		_, oid, err := eng.Meta.Read(ctx, name)
		if err != nil {
			return nil, err
		}
		tracked[name] = planner.TrackedBranch{Meta: md, MetaOid: string(oid)}
	}

	localTips := make(map[string]string, len(snap.LocalBranches))
	for name, oid := range snap.LocalBranches {
		localTips[name] = string(oid)
	}

	steps := planner.Restack(planner.RestackInput{
		Trunk:     snap.Trunk,
		Graph:     snap.Graph,
		Tracked:   tracked,
		LocalTips: localTips,
		Scope:     rc.ValidatedScope,
	}, nowRFC3339())

	plan := planner.New()
	for _, step := range steps {
		plan.Append(step)
	}
	return plan, nil
}

// nowRFC3339 stamps a wall-clock timestamp for plan construction. Plan
// derivation itself stays pure (planner.Restack takes now as a parameter
// rather than calling a clock); only the caller assembling its input may
// read one.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
