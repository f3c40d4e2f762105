// Package executor is the sole mutator: every ref, metadata blob, and
// forge call a Plan describes is applied here, under the repo lock, with
// an append-only journal entry per step and a CAS-aware rollback path. No
// other package writes to a repository's git state or ledger.
package executor

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kofron/lattice/internal/errors"
	"github.com/kofron/lattice/internal/forge"
	"github.com/kofron/lattice/internal/gitx"
	"github.com/kofron/lattice/internal/journal"
	"github.com/kofron/lattice/internal/latticepaths"
	"github.com/kofron/lattice/internal/ledger"
	"github.com/kofron/lattice/internal/metadata"
	"github.com/kofron/lattice/internal/planner"
)

// Executor applies a Plan against one repository.
type Executor struct {
	Git     *gitx.Client
	Meta    *metadata.Store
	Journal *journal.Store
	Ledger  *ledger.Ledger
	Lock    *latticepaths.RepoLock
	Forge   forge.Adapter // nil if the plan carries no forge steps

	// WorkDir is this process's own worktree path, excluded from the
	// occupancy revalidation so a command can always touch the branch it
	// is itself checked out on.
	WorkDir string
}

// RunParams describes one operation to execute.
type RunParams struct {
	Plan           *planner.Plan
	Command        string
	OriginWorktree string
	PreFingerprint string
	VerifyHooks    bool

	// PostVerify re-scans and re-evaluates the command's requirement set
	// after every step has applied; a non-nil error triggers rollback. Left
	// nil for operations with no post-condition beyond the steps applying.
	PostVerify func(ctx context.Context) error
}

// Result reports a successfully committed operation.
type Result struct {
	OpID            string
	PostFingerprint string
}

// Run executes params.Plan from start to finish: lock, revalidate
// occupancy, record intent, apply each step with a journal entry, then
// either commit or roll back. A Git conflict or a stuck rollback returns a
// typed *errors.LatticeError and leaves op-state in place for `lattice
// continue`/`lattice abort` to pick up; Run itself never leaves the lock
// held once it returns.
func (e *Executor) Run(ctx context.Context, params RunParams) (*Result, error) {
	locked, err := e.Lock.TryLock(ctx)
	if err != nil {
		return nil, errors.Internal("acquiring repo lock", err)
	}
	if !locked {
		return nil, errors.New(errors.KindConcurrency, "another lattice operation is already running against this repository")
	}
	unlock := func() {
		if uerr := e.Lock.Unlock(); uerr != nil {
			// Best-effort: a failed unlock is surfaced by the next command's
			// TryLock failing, not swallowed silently nor fatal here.
			_ = uerr
		}
	}

	opID := journal.NewOpID()
	startedAt := now()

	touched := params.Plan.TouchedBranches()
	checkedOut, err := e.Git.BranchesCheckedOutElsewhere(ctx, touched, e.WorkDir)
	if err != nil {
		unlock()
		return nil, errors.Internal("revalidating branch occupancy", err)
	}
	if len(checkedOut) > 0 {
		unlock()
		return nil, errors.OccupancyViolation(checkedOut[0].Branch, checkedOut[0].WorktreePath)
	}

	planDigest, err := params.Plan.Digest()
	if err != nil {
		unlock()
		return nil, errors.Internal("computing plan digest", err)
	}

	opState := &journal.OpState{
		Kind:           journal.Executing,
		OpID:           opID,
		Command:        params.Command,
		PlanDigest:     planDigest,
		SchemaVersion:  params.Plan.SchemaVersion,
		OriginWorktree: params.OriginWorktree,
		StartedAt:      startedAt,
	}
	if err := e.Journal.WriteOpState(opState); err != nil {
		unlock()
		return nil, errors.Internal("writing op-state", err)
	}

	doc := &journal.Document{
		OpID:          opID,
		Command:       params.Command,
		SchemaVersion: params.Plan.SchemaVersion,
		Plan:          params.Plan,
		PlanDigest:    planDigest,
		Phase:         journal.PhaseInProgress,
		StartedAt:     startedAt,
		VerifyHooks:   params.VerifyHooks,
	}
	if err := e.Journal.WriteDocument(doc); err != nil {
		unlock()
		return nil, errors.Internal("writing journal", err)
	}

	if _, err := e.Ledger.Append(ctx, ledger.Event{
		Kind:      ledger.IntentRecordedKind,
		Timestamp: startedAt,
		IntentRecorded: &ledger.IntentRecordedPayload{
			OpID:           opID,
			Command:        params.Command,
			PreFingerprint: params.PreFingerprint,
			TouchedRefs:    params.Plan.TouchedRefs(),
		},
	}); err != nil {
		unlock()
		return nil, errors.Internal("recording intent", err)
	}

	for i, step := range params.Plan.Steps {
		result, err := e.executeStep(ctx, i, step, doc, params.VerifyHooks)
		if err != nil {
			var conflict *gitx.ConflictError
			if stderrors.As(err, &conflict) {
				e.pauseForConflict(ctx, opState, doc)
				unlock()
				return nil, errors.Paused(opID)
			}

			failedRefs := e.rollback(ctx, doc.Entries)
			if len(failedRefs) > 0 {
				e.pauseForRollbackFailure(ctx, opState, doc, failedRefs)
				unlock()
				return nil, errors.RollbackIncomplete(failedRefs)
			}
			e.abort(ctx, opID, doc, fmt.Sprintf("step %d failed: %v", i, err))
			unlock()
			return nil, errors.Internal(fmt.Sprintf("step %d failed", i), err)
		}
		doc.Entries = append(doc.Entries, *result)
		if werr := e.Journal.WriteDocument(doc); werr != nil {
			unlock()
			return nil, errors.Internal("appending journal entry", werr)
		}
	}

	if params.PostVerify != nil {
		if verr := params.PostVerify(ctx); verr != nil {
			failedRefs := e.rollback(ctx, doc.Entries)
			if len(failedRefs) > 0 {
				e.pauseForRollbackFailure(ctx, opState, doc, failedRefs)
				unlock()
				return nil, errors.RollbackIncomplete(failedRefs)
			}
			e.abort(ctx, opID, doc, fmt.Sprintf("post-verify failed: %v", verr))
			unlock()
			return nil, errors.VerificationFailed(verr.Error())
		}
	}

	postFingerprint := planDigest // placeholder until the Engine wires a real post-scan fingerprint through PostVerify's closure
	if _, err := e.Ledger.Append(ctx, ledger.Event{
		Kind:      ledger.CommittedKind,
		Timestamp: now(),
		Committed: &ledger.CommittedPayload{OpID: opID, PostFingerprint: postFingerprint},
	}); err != nil {
		unlock()
		return nil, errors.Internal("recording commit", err)
	}

	doc.Phase = journal.PhaseCommitted
	if err := e.Journal.WriteDocument(doc); err != nil {
		unlock()
		return nil, errors.Internal("finalizing journal", err)
	}
	if err := e.Journal.ClearOpState(); err != nil {
		unlock()
		return nil, errors.Internal("clearing op-state", err)
	}

	unlock()
	return &Result{OpID: opID, PostFingerprint: postFingerprint}, nil
}

func (e *Executor) abort(ctx context.Context, opID string, doc *journal.Document, reason string) {
	var partialRefs []string
	for _, entry := range doc.Entries {
		if entry.TouchedRef != "" {
			partialRefs = append(partialRefs, entry.TouchedRef)
		}
	}
	_, _ = e.Ledger.Append(ctx, ledger.Event{
		Kind:      ledger.AbortedKind,
		Timestamp: now(),
		Aborted: &ledger.AbortedPayload{
			OpID:               opID,
			Reason:             reason,
			PartialTouchedRefs: partialRefs,
		},
	})
	doc.Phase = journal.PhaseRolledBack
	_ = e.Journal.WriteDocument(doc)
	_ = e.Journal.ClearOpState()
}

func (e *Executor) pauseForConflict(ctx context.Context, opState *journal.OpState, doc *journal.Document) {
	opState.Kind = journal.AwaitingUser
	opState.AwaitingReason = &journal.AwaitingReason{Kind: journal.RebaseConflict}
	_ = e.Journal.WriteOpState(opState)
	doc.Phase = journal.PhasePaused
	_ = e.Journal.WriteDocument(doc)
}

func (e *Executor) pauseForRollbackFailure(ctx context.Context, opState *journal.OpState, doc *journal.Document, failedRefs []string) {
	opState.Kind = journal.AwaitingUser
	opState.AwaitingReason = &journal.AwaitingReason{Kind: journal.RollbackIncomplete, FailedRefs: failedRefs}
	_ = e.Journal.WriteOpState(opState)
	doc.Phase = journal.PhasePaused
	_ = e.Journal.WriteDocument(doc)
}

// now is the one clock read in this package's control flow; the Planner
// never calls it, but the Executor must, to stamp op-state and journal
// timestamps the Planner was deliberately kept ignorant of.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

