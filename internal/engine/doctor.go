package engine

import (
	"context"

	"github.com/kofron/lattice/internal/doctor"
	"github.com/kofron/lattice/internal/executor"
)

// Propose takes a fresh scan and returns the repair catalogue for its
// current issues, alongside every issue id seen (not just the ones with an
// automatic fix) so a DoctorProposed ledger event can record the full
// picture. This is the read side `lattice doctor` and a NeedsRepair
// Outcome both drive; it performs no mutation.
func (e *Engine) Propose(ctx context.Context) (options []doctor.FixOption, allIssueIDs []string, err error) {
	snap, err := e.Scan(ctx)
	if err != nil {
		return nil, nil, err
	}
	options = doctor.Propose(e.Meta, snap)
	for _, issue := range snap.Issues {
		allIssueIDs = append(allIssueIDs, issue.ID)
	}
	return options, allIssueIDs, nil
}

// Repair bundles selected into one plan and runs it through the Executor,
// bracketed by doctor's own ledger markers. Pass doctor.SelectAll(options)
// for `--auto-fix`, or doctor.Select(options, ids) for an explicit or
// interactively chosen subset.
func (e *Engine) Repair(ctx context.Context, allIssueIDs []string, selected []doctor.FixOption) (*executor.Result, error) {
	return doctor.Run(ctx, e.Exec, e.Ledger, allIssueIDs, selected)
}
