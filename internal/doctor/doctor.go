package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/kofron/lattice/internal/executor"
	"github.com/kofron/lattice/internal/ledger"
	"github.com/kofron/lattice/internal/planner"
)

// SelectAll returns every proposed option, the bundle `--auto-fix` applies.
func SelectAll(options []FixOption) []FixOption {
	return options
}

// Select returns the subset of options named by ids, in options' order —
// the bundle an interactive session or an explicit `--fix <id>` list
// applies. An id with no matching option is silently dropped: options are
// re-derived from a fresh scan each run, so a stale id from a prior
// `lattice doctor` invocation simply no longer applies.
func Select(options []FixOption, ids []string) []FixOption {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var selected []FixOption
	for _, opt := range options {
		if want[opt.ID] {
			selected = append(selected, opt)
		}
	}
	return selected
}

// Bundle composes one Plan from the ordered union of selected options'
// individual plans — a single Executor operation rather than one per
// fix, so a bundle of repairs commits or rolls back atomically together.
func Bundle(ctx context.Context, selected []FixOption) (*planner.Plan, error) {
	plan := planner.New()
	for _, opt := range selected {
		sub, err := opt.Build(ctx)
		if err != nil {
			return nil, fmt.Errorf("composing fix %s: %w", opt.ID, err)
		}
		for _, step := range sub.Steps {
			plan.Append(step)
		}
	}
	return plan, nil
}

// Run composes selected's bundle and applies it through exec, bracketed by
// DoctorProposed (recording which issues were offered and which the
// caller selected) and DoctorApplied ledger events — doctor's own
// before/after markers around the Executor's own IntentRecorded/Committed
// pair, so the ledger distinguishes "a user asked for these repairs" from
// "the Executor ran some plan."
func Run(ctx context.Context, exec *executor.Executor, lg *ledger.Ledger, allIssueIDs []string, selected []FixOption) (*executor.Result, error) {
	selectedIDs := make([]string, 0, len(selected))
	for _, opt := range selected {
		selectedIDs = append(selectedIDs, opt.ID)
	}

	if _, err := lg.Append(ctx, ledger.Event{
		Kind:      ledger.DoctorProposedKind,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DoctorProposed: &ledger.DoctorProposedPayload{
			IssueIDs:       allIssueIDs,
			SelectedFixIDs: selectedIDs,
		},
	}); err != nil {
		return nil, fmt.Errorf("recording doctor proposal: %w", err)
	}

	if len(selected) == 0 {
		return nil, nil
	}

	plan, err := Bundle(ctx, selected)
	if err != nil {
		return nil, err
	}
	planDigest, err := plan.Digest()
	if err != nil {
		return nil, fmt.Errorf("computing repair plan digest: %w", err)
	}

	result, err := exec.Run(ctx, executor.RunParams{Plan: plan, Command: "doctor"})
	if err != nil {
		return nil, err
	}

	resolvedIssueIDs := make([]string, 0, len(selected))
	for _, opt := range selected {
		resolvedIssueIDs = append(resolvedIssueIDs, opt.IssueID)
	}
	if _, err := lg.Append(ctx, ledger.Event{
		Kind:      ledger.DoctorAppliedKind,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DoctorApplied: &ledger.DoctorAppliedPayload{
			ResolvedIssueIDs: resolvedIssueIDs,
			PlanDigest:       planDigest,
		},
	}); err != nil {
		return nil, fmt.Errorf("recording doctor outcome: %w", err)
	}

	return result, nil
}
