package executor

import (
	"context"
	"fmt"

	"github.com/kofron/lattice/internal/gitx"
	"github.com/kofron/lattice/internal/journal"
	"github.com/kofron/lattice/internal/metadata"
	"github.com/kofron/lattice/internal/planner"
)

const rollbackReason gitx.UpdateRefReason = "lattice: rollback"

// executeStep applies one plan step and returns the journal entry
// recording what it did. A *gitx.ConflictError is returned unwrapped so
// Run's errors.As check can recognize it as a pause signal rather than a
// failure.
func (e *Executor) executeStep(ctx context.Context, index int, step planner.PlanStep, doc *journal.Document, verifyHooks bool) (*journal.StepResult, error) {
	result := &journal.StepResult{Kind: journal.StepApplied, StepIndex: index, Timestamp: now()}

	switch step.Kind {
	case planner.StepRebaseOnto:
		s := step.RebaseOnto
		priorTip, err := e.Git.ResolveBranchTip(ctx, s.Branch)
		if err != nil {
			return nil, err
		}
		res, err := e.Git.RebaseOnto(ctx, s.Branch, s.Upstream, s.Onto, verifyHooks)
		if err != nil {
			return nil, err // may be *gitx.ConflictError; Run distinguishes it
		}
		result.TouchedRef = "refs/heads/" + s.Branch
		result.PriorOid = string(priorTip)
		result.NewOid = string(res.NewTip)

	case planner.StepWriteMetadata:
		s := step.WriteMetadata
		meta := s.NewMeta
		if meta.Base.Oid == "" {
			resolved, ok := lastResolvedTip(doc.Entries, s.Branch)
			if !ok {
				return nil, fmt.Errorf("write_metadata for %s: no preceding rebase result to resolve pending base oid", s.Branch)
			}
			meta = cloneMeta(meta)
			meta.Base.Oid = resolved
		}
		newOid, err := e.Meta.Write(ctx, s.Branch, meta, gitx.Oid(s.ExpectedOldOid), "lattice: restack "+gitx.UpdateRefReason(s.Branch))
		if err != nil {
			return nil, err
		}
		result.TouchedRef = metadata.RefName(s.Branch)
		result.PriorOid = s.ExpectedOldOid
		result.NewOid = string(newOid)

	case planner.StepDeleteMetadata:
		s := step.DeleteMetadata
		if err := e.Meta.Delete(ctx, s.Branch, gitx.Oid(s.ExpectedOldOid), "lattice: untrack "+gitx.UpdateRefReason(s.Branch)); err != nil {
			return nil, err
		}
		result.TouchedRef = metadata.RefName(s.Branch)
		result.PriorOid = s.ExpectedOldOid
		result.NewOid = ""

	case planner.StepUpdateRefCas:
		s := step.UpdateRefCas
		if err := e.Git.UpdateRefCas(ctx, s.Refname, gitx.Oid(s.NewOid), gitx.Oid(s.ExpectedOld), gitx.UpdateRefReason(s.Reason)); err != nil {
			return nil, err
		}
		result.TouchedRef = s.Refname
		result.PriorOid = s.ExpectedOld
		result.NewOid = s.NewOid

	case planner.StepCreateSnapshotBranch:
		s := step.CreateSnapshotBranch
		if err := e.Git.CreateBranch(ctx, s.Name, s.HeadOid); err != nil {
			return nil, err
		}
		result.TouchedRef = "refs/heads/" + s.Name
		result.PriorOid = ""
		result.NewOid = s.HeadOid

	case planner.StepFetchRef:
		s := step.FetchRef
		if _, err := e.Git.FetchRef(ctx, s.Remote, s.Spec); err != nil {
			return nil, err
		}
		// Not a mutation of any ref this Executor owns CAS semantics over;
		// nothing to roll back.

	case planner.StepForgePush:
		s := step.ForgePush
		if err := e.Git.Push(ctx, s.Remote, "refs/heads/"+s.Branch, gitx.PushOptions{ForceWithLease: s.ForceWithLease, VerifyHooks: verifyHooks}); err != nil {
			return nil, err
		}

	case planner.StepForgeCreatePr:
		s := step.ForgeCreatePr
		if _, err := e.Forge.CreatePR(ctx, forgeCreateRequest(s)); err != nil {
			return nil, err
		}

	case planner.StepForgeUpdatePr:
		s := step.ForgeUpdatePr
		if _, err := e.Forge.UpdatePR(ctx, s.Number, forgeUpdateRequest(s)); err != nil {
			return nil, err
		}

	case planner.StepCheckpoint:
		// Recorded for journal visibility only; nothing to apply.

	default:
		return nil, fmt.Errorf("unrecognized plan step kind %q", step.Kind)
	}

	return result, nil
}

// rollback undoes applied, ref-touching entries in reverse order, returning
// the refs it could not restore (a CAS loss mid-rollback, meaning another
// writer moved the ref since this operation touched it). A non-empty
// result means the repository is left in a state only `lattice doctor` or
// manual recovery can resolve — the caller surfaces that as
// AwaitingUser{RollbackIncomplete}.
func (e *Executor) rollback(ctx context.Context, entries []journal.StepResult) []string {
	var failed []string
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.TouchedRef == "" {
			continue
		}
		var err error
		if entry.PriorOid == "" {
			err = e.Git.DeleteRefCas(ctx, entry.TouchedRef, gitx.Oid(entry.NewOid), rollbackReason)
		} else {
			err = e.Git.UpdateRefCas(ctx, entry.TouchedRef, gitx.Oid(entry.PriorOid), gitx.Oid(entry.NewOid), rollbackReason)
		}
		if err != nil {
			failed = append(failed, entry.TouchedRef)
		}
	}
	return failed
}

// lastResolvedTip finds the most recent applied entry touching branch's own
// ref (i.e. a RebaseOnto result), for a WriteMetadata step whose planned
// base.oid was left pending because the planner couldn't predict it.
func lastResolvedTip(entries []journal.StepResult, branch string) (string, bool) {
	want := "refs/heads/" + branch
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].TouchedRef == want {
			return entries[i].NewOid, true
		}
	}
	return "", false
}

func cloneMeta(md *metadata.BranchMetadata) *metadata.BranchMetadata {
	clone := *md
	return &clone
}
