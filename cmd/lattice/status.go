package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/kofron/lattice/internal/metadata"
	"github.com/kofron/lattice/internal/scanner"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the tracked stack and any blocking issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := eng.Scan(cmd.Context())
		if err != nil {
			return err
		}

		if out.IsJSON() {
			return out.JSON(buildStatusReport(snap))
		}
		printStatusReport(snap)
		return nil
	},
}

// statusReport is the JSON-rendered shape of `lattice status`, kept
// separate from scanner.RepoSnapshot so the wire format doesn't change
// shape every time an internal field is added to the snapshot.
type statusReport struct {
	Trunk          string             `json:"trunk"`
	CurrentBranch  string             `json:"current_branch"`
	OpStatePresent bool               `json:"op_state_present"`
	Branches       []statusBranch     `json:"branches"`
	Issues         []statusIssueEntry `json:"issues"`
}

type statusBranch struct {
	Name     string `json:"name"`
	Parent   string `json:"parent"`
	Frozen   bool   `json:"frozen"`
	PRState  string `json:"pr_state"`
	BaseOid  string `json:"base_oid"`
	LocalOid string `json:"local_oid"`
}

type statusIssueEntry struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func buildStatusReport(snap *scanner.RepoSnapshot) *statusReport {
	report := &statusReport{
		Trunk:          snap.Trunk,
		CurrentBranch:  snap.CurrentBranch,
		OpStatePresent: snap.OpStatePresent,
	}
	for _, name := range trackedBranchNames(snap) {
		md := snap.TrackedBranches[name]
		parent := snap.Trunk
		if md.Parent.Kind == metadata.ParentBranch {
			parent = md.Parent.Name
		}
		prState := string(md.PR.Kind)
		localOid := string(snap.LocalBranches[name])
		report.Branches = append(report.Branches, statusBranch{
			Name:     name,
			Parent:   parent,
			Frozen:   md.Freeze.Kind == metadata.Frozen,
			PRState:  prState,
			BaseOid:  md.Base.Oid,
			LocalOid: localOid,
		})
	}
	for _, issue := range snap.Issues {
		report.Issues = append(report.Issues, statusIssueEntry{
			ID:       issue.ID,
			Severity: string(issue.Severity),
			Message:  issue.Message,
		})
	}
	return report
}

func printStatusReport(snap *scanner.RepoSnapshot) {
	out.Header("Lattice status")
	out.Infof("trunk: %s", snap.Trunk)
	if snap.CurrentBranch != "" {
		out.Infof("current branch: %s", snap.CurrentBranch)
	}
	if snap.OpStatePresent {
		out.Warning("an operation is in progress (run 'lattice doctor' to see what it's waiting on)")
	}
	out.Separator()

	names := trackedBranchNames(snap)
	if len(names) == 0 {
		out.Info("no branches are tracked yet")
	}
	for _, name := range names {
		md := snap.TrackedBranches[name]
		parent := snap.Trunk
		if md.Parent.Kind == metadata.ParentBranch {
			parent = md.Parent.Name
		}
		marker := "  "
		if name == snap.CurrentBranch {
			marker = "* "
		}
		frozen := ""
		if md.Freeze.Kind == metadata.Frozen {
			frozen = " [frozen]"
		}
		out.Infof("%s%s -> %s%s (pr: %s)", marker, name, parent, frozen, md.PR.Kind)
	}

	if len(snap.Issues) > 0 {
		out.Separator()
		out.Header("Issues")
		for _, issue := range snap.Issues {
			out.Errorf("%s: %s", issue.ID, issue.Message)
		}
	}
}

// trackedBranchNames returns snap.TrackedBranches' keys sorted, for
// deterministic output ordering across both rendering modes.
func trackedBranchNames(snap *scanner.RepoSnapshot) []string {
	names := make([]string, 0, len(snap.TrackedBranches))
	for name := range snap.TrackedBranches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
