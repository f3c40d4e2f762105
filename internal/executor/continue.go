package executor

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kofron/lattice/internal/constants"
	"github.com/kofron/lattice/internal/errors"
	"github.com/kofron/lattice/internal/gitx"
	"github.com/kofron/lattice/internal/journal"
	"github.com/kofron/lattice/internal/ledger"
	"github.com/kofron/lattice/internal/planner"
)

// Continue resumes an operation paused on AwaitingUser{RebaseConflict}: the
// user has resolved the conflicted files and staged them, and
// `git rebase --continue` is expected to finish the in-flight rebase step
// before the remaining plan steps apply exactly as Run would have applied
// them. Unlike Run, Continue has no PostVerify closure to call — the
// original command's post-condition check is not something a journal
// document can serialize, so a resumed operation commits once every step
// has applied without re-running it.
func (e *Executor) Continue(ctx context.Context) (*Result, error) {
	locked, err := e.Lock.TryLock(ctx)
	if err != nil {
		return nil, errors.Internal("acquiring repo lock", err)
	}
	if !locked {
		return nil, errors.New(errors.KindConcurrency, "another lattice operation is already running against this repository")
	}
	unlock := func() {
		if uerr := e.Lock.Unlock(); uerr != nil {
			_ = uerr
		}
	}

	opState, doc, err := e.loadPausedOp(journal.RebaseConflict)
	if err != nil {
		unlock()
		return nil, err
	}

	resumeIndex := len(doc.Entries)
	if resumeIndex >= len(doc.Plan.Steps) {
		unlock()
		return nil, errors.Internal("resuming operation", fmt.Errorf("operation %s has no pending step to resume", opState.OpID))
	}
	step := doc.Plan.Steps[resumeIndex]
	if step.Kind != planner.StepRebaseOnto {
		unlock()
		return nil, errors.Internal("resuming operation", fmt.Errorf("paused step %d is %s, not a rebase", resumeIndex, step.Kind))
	}

	priorTip, err := e.Git.ResolveBranchTip(ctx, step.RebaseOnto.Branch)
	if err != nil {
		unlock()
		return nil, errors.Internal("resolving branch tip before resuming rebase", err)
	}

	newTip, err := e.Git.RebaseContinue(ctx, doc.VerifyHooks)
	if err != nil {
		var conflict *gitx.ConflictError
		if stderrors.As(err, &conflict) {
			// Still conflicted: op-state and journal already describe
			// AwaitingUser{RebaseConflict}, nothing to change.
			unlock()
			return nil, errors.Paused(opState.OpID)
		}
		if failErr := e.rollbackAndPause(ctx, opState, doc, resumeIndex, err); failErr != nil {
			unlock()
			return nil, failErr
		}
		unlock()
		return nil, errors.Internal(fmt.Sprintf("resuming step %d failed", resumeIndex), err)
	}

	doc.Entries = append(doc.Entries, journal.StepResult{
		Kind:       journal.StepApplied,
		StepIndex:  resumeIndex,
		Timestamp:  now(),
		TouchedRef: "refs/heads/" + step.RebaseOnto.Branch,
		PriorOid:   string(priorTip),
		NewOid:     string(newTip),
	})
	if werr := e.Journal.WriteDocument(doc); werr != nil {
		unlock()
		return nil, errors.Internal("appending journal entry", werr)
	}

	opState.Kind = journal.Executing
	opState.AwaitingReason = nil
	if werr := e.Journal.WriteOpState(opState); werr != nil {
		unlock()
		return nil, errors.Internal("writing op-state", werr)
	}

	for i := resumeIndex + 1; i < len(doc.Plan.Steps); i++ {
		result, serr := e.executeStep(ctx, i, doc.Plan.Steps[i], doc, doc.VerifyHooks)
		if serr != nil {
			var conflict *gitx.ConflictError
			if stderrors.As(serr, &conflict) {
				e.pauseForConflict(ctx, opState, doc)
				unlock()
				return nil, errors.Paused(opState.OpID)
			}
			if failErr := e.rollbackAndPause(ctx, opState, doc, i, serr); failErr != nil {
				unlock()
				return nil, failErr
			}
			unlock()
			return nil, errors.Internal(fmt.Sprintf("step %d failed", i), serr)
		}
		doc.Entries = append(doc.Entries, *result)
		if werr := e.Journal.WriteDocument(doc); werr != nil {
			unlock()
			return nil, errors.Internal("appending journal entry", werr)
		}
	}

	postFingerprint := doc.PlanDigest
	if _, lerr := e.Ledger.Append(ctx, ledger.Event{
		Kind:      ledger.CommittedKind,
		Timestamp: now(),
		Committed: &ledger.CommittedPayload{OpID: opState.OpID, PostFingerprint: postFingerprint},
	}); lerr != nil {
		unlock()
		return nil, errors.Internal("recording commit", lerr)
	}

	doc.Phase = journal.PhaseCommitted
	if werr := e.Journal.WriteDocument(doc); werr != nil {
		unlock()
		return nil, errors.Internal("finalizing journal", werr)
	}
	if werr := e.Journal.ClearOpState(); werr != nil {
		unlock()
		return nil, errors.Internal("clearing op-state", werr)
	}

	unlock()
	return &Result{OpID: opState.OpID, PostFingerprint: postFingerprint}, nil
}

// Abort discards a paused operation: a paused rebase is reset via
// `git rebase --abort`, then every already-applied step is rolled back in
// reverse. Abort works against any AwaitingUser pause reason, not just a
// rebase conflict — RollbackIncomplete and VerificationFailed pauses leave
// no rebase in progress, so the abort step is conditional on the one that
// does.
func (e *Executor) Abort(ctx context.Context) error {
	locked, err := e.Lock.TryLock(ctx)
	if err != nil {
		return errors.Internal("acquiring repo lock", err)
	}
	if !locked {
		return errors.New(errors.KindConcurrency, "another lattice operation is already running against this repository")
	}
	unlock := func() {
		if uerr := e.Lock.Unlock(); uerr != nil {
			_ = uerr
		}
	}

	opState, err := e.Journal.ReadOpState()
	if err != nil {
		unlock()
		return errors.Internal("reading op-state", err)
	}
	if opState == nil {
		unlock()
		return errors.New(errors.KindPrecondition, "no lattice operation is in progress")
	}

	doc, err := e.Journal.ReadDocument(opState.OpID)
	if err != nil {
		unlock()
		return errors.Internal("reading journal", err)
	}

	if opState.AwaitingReason != nil && opState.AwaitingReason.Kind == journal.RebaseConflict {
		if rerr := e.Git.RebaseAbort(ctx); rerr != nil {
			unlock()
			return errors.Internal("aborting in-progress rebase", rerr)
		}
	}

	failedRefs := e.rollback(ctx, doc.Entries)
	if len(failedRefs) > 0 {
		e.pauseForRollbackFailure(ctx, opState, doc, failedRefs)
		unlock()
		return errors.RollbackIncomplete(failedRefs)
	}

	e.abort(ctx, opState.OpID, doc, "aborted by user request")
	unlock()
	return nil
}

// loadPausedOp reads op-state and its journal document, failing unless an
// operation is in progress and paused for wantReason specifically — every
// other pause reason needs `lattice doctor` or `lattice abort`, not continue.
func (e *Executor) loadPausedOp(wantReason journal.AwaitingReasonKind) (*journal.OpState, *journal.Document, error) {
	opState, err := e.Journal.ReadOpState()
	if err != nil {
		return nil, nil, errors.Internal("reading op-state", err)
	}
	if opState == nil {
		return nil, nil, errors.New(errors.KindPrecondition, "no lattice operation is in progress")
	}
	if opState.Kind != journal.AwaitingUser || opState.AwaitingReason == nil || opState.AwaitingReason.Kind != wantReason {
		return nil, nil, errors.WithHint(
			errors.New(errors.KindPrecondition, "the in-progress operation is not paused on a rebase conflict"),
			"Run 'lattice doctor' to see what the operation is actually waiting on.",
		)
	}

	doc, err := e.Journal.ReadDocument(opState.OpID)
	if err != nil {
		return nil, nil, errors.Internal("reading journal", err)
	}
	if doc.SchemaVersion != constants.PlanSchemaVersion {
		return nil, nil, errors.SchemaMismatch(doc.SchemaVersion, constants.PlanSchemaVersion)
	}
	return opState, doc, nil
}

// rollbackAndPause rolls back every applied entry after a resumed step
// fails outright (not a fresh conflict); it either leaves the operation
// aborted and returns nil, or returns a RollbackIncomplete error with
// op-state left paused for a repair.
func (e *Executor) rollbackAndPause(ctx context.Context, opState *journal.OpState, doc *journal.Document, failedStepIndex int, cause error) error {
	failedRefs := e.rollback(ctx, doc.Entries)
	if len(failedRefs) > 0 {
		e.pauseForRollbackFailure(ctx, opState, doc, failedRefs)
		return errors.RollbackIncomplete(failedRefs)
	}
	e.abort(ctx, opState.OpID, doc, fmt.Sprintf("step %d failed: %v", failedStepIndex, cause))
	return nil
}
