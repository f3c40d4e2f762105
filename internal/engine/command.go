package engine

import (
	"context"
	stderrors "errors"

	"github.com/kofron/lattice/internal/capability"
	lerrors "github.com/kofron/lattice/internal/errors"
	"github.com/kofron/lattice/internal/executor"
	"github.com/kofron/lattice/internal/metadata"
	"github.com/kofron/lattice/internal/planner"
	"github.com/kofron/lattice/internal/scanner"
)

// Command is one cmd/lattice subcommand's domain logic: what it needs to
// run, what it touches, and how to turn a ready snapshot into a plan.
// Everything about gating, forge wiring, locking, and journaling is the
// Engine's job, not the Command's.
type Command interface {
	// Name identifies the command in the journal and ledger.
	Name() string

	// Requirements declares the capabilities snap must satisfy before Plan
	// may run. Commands that touch the forge build a capability.Remote or
	// capability.RemoteBareAllowed set using snap.Config's forge identity.
	Requirements(snap *scanner.RepoSnapshot) capability.RequirementSet

	// Scope names the branches FrozenPolicySatisfied and the gate's
	// ValidatedScope are computed over. Returning nil means the command
	// has no branch-scoped semantics (doctor, status, init).
	Scope(snap *scanner.RepoSnapshot) []string

	// Plan builds the mutation plan once Requirements are satisfied. An
	// empty or nil Plan is a legitimate no-op outcome, not an error.
	Plan(ctx context.Context, snap *scanner.RepoSnapshot, rc *ReadyContext) (*planner.Plan, error)
}

// VerifyingCommand is implemented by commands whose post-condition can't
// be expressed as plan steps alone (e.g. "the rebase replayed every
// commit without introducing a new conflict marker"). Its Verify runs
// after every step has applied, inside the same locked operation, and a
// non-nil error triggers rollback exactly like a failed step would.
type VerifyingCommand interface {
	Command
	Verify(ctx context.Context, e *Engine, snap *scanner.RepoSnapshot) error
}

// ReadyContext is handed to Plan once the gate has confirmed every
// required capability holds. ValidatedScope is the gate's accounting of
// which branches Scope actually covered — identical to Scope's return
// value on success, kept distinct because the gate, not the command, is
// the authority on what was validated.
type ReadyContext struct {
	Snapshot       *scanner.RepoSnapshot
	ValidatedScope []string
}

// OutcomeKind discriminates how a Run call concluded.
type OutcomeKind string

const (
	OutcomeCommitted   OutcomeKind = "committed"
	OutcomeNoOp        OutcomeKind = "no_op"
	OutcomeNeedsRepair OutcomeKind = "needs_repair"
	OutcomePaused      OutcomeKind = "paused"
)

// Outcome reports how a command invocation concluded. Exactly one of
// Result or Issues is meaningful, discriminated by Kind.
type Outcome struct {
	Kind     OutcomeKind
	Snapshot *scanner.RepoSnapshot
	Result   *executor.Result
	Issues   []capability.Issue // non-empty iff Kind == OutcomeNeedsRepair
}

// Run scans, gates, plans, and executes cmd against this Engine's
// repository: Scan → Gate → Plan → (forge wiring if the plan needs it) →
// Execute → Outcome. A NeedsRepair outcome is returned alongside
// errors.NeedsRepair so the CLI layer can decide whether to suggest
// `lattice doctor` or run it automatically; a Paused outcome is returned
// alongside the Executor's own conflict error so the CLI can report the
// paused op id without treating it as a hard failure.
func (e *Engine) Run(ctx context.Context, cmd Command) (*Outcome, error) {
	log := e.Log.With("command", cmd.Name())

	log.Debug("scan")
	snap, err := e.Scan(ctx)
	if err != nil {
		return nil, err
	}

	scope := cmd.Scope(snap)
	if len(scope) > 0 {
		e.foldScopeCapabilities(snap, scope)
	}

	reqs := cmd.Requirements(snap)
	if issues := e.foldRemoteCapabilities(ctx, snap, reqs); len(issues) > 0 {
		snap.Issues = append(snap.Issues, issues...)
	}

	gate := capability.Gate(snap.Capabilities, snap.Issues, reqs, scope)
	if !gate.Ready {
		log.Debug("gate blocked", "issues", len(gate.Issues))
		return &Outcome{Kind: OutcomeNeedsRepair, Snapshot: snap, Issues: gate.Issues}, lerrors.NeedsRepair(cmd.Name())
	}

	rc := &ReadyContext{Snapshot: snap, ValidatedScope: gate.ValidatedScope}

	plan, err := cmd.Plan(ctx, snap, rc)
	if err != nil {
		return nil, err
	}
	if plan == nil || len(plan.Steps) == 0 {
		log.Debug("plan empty")
		return &Outcome{Kind: OutcomeNoOp, Snapshot: snap}, nil
	}
	log.Debug("plan built", "steps", len(plan.Steps))

	if needsForgeAdapter(plan) {
		if err := e.ensureForge(ctx, snap); err != nil {
			return nil, err
		}
	}

	var postVerify func(ctx context.Context) error
	if vc, ok := cmd.(VerifyingCommand); ok {
		postVerify = func(ctx context.Context) error { return vc.Verify(ctx, e, snap) }
	}

	result, err := e.Exec.Run(ctx, executor.RunParams{
		Plan:           plan,
		Command:        cmd.Name(),
		OriginWorktree: e.CWD,
		PreFingerprint: snap.Fingerprint,
		VerifyHooks:    true,
		PostVerify:     postVerify,
	})
	if err != nil {
		var latticeErr *lerrors.LatticeError
		if stderrors.As(err, &latticeErr) && latticeErr.Kind == lerrors.KindConflict {
			log.Debug("paused")
			return &Outcome{Kind: OutcomePaused, Snapshot: snap}, err
		}
		return nil, err
	}

	log.Debug("committed", "op_id", result.OpID)
	return &Outcome{Kind: OutcomeCommitted, Snapshot: snap, Result: result}, nil
}

// needsForgeAdapter reports whether plan carries a step that calls
// through Executor.Forge. StepForgePush is a plain git push and does not
// count — only CreatePR/UpdatePR touch the forge API surface.
func needsForgeAdapter(plan *planner.Plan) bool {
	for _, step := range plan.Steps {
		if step.Kind == planner.StepForgeCreatePr || step.Kind == planner.StepForgeUpdatePr {
			return true
		}
	}
	return false
}

// foldScopeCapabilities sets ScopeResolved and FrozenPolicySatisfied over
// scope, the two capabilities the Scanner deliberately leaves for the
// Engine to compute once a command's target branch is known.
func (e *Engine) foldScopeCapabilities(snap *scanner.RepoSnapshot, scope []string) {
	snap.Capabilities[capability.ScopeResolved] = true

	isFrozen := func(branch string) bool {
		md, ok := snap.TrackedBranches[branch]
		return ok && md.Freeze.Kind == metadata.Frozen
	}
	satisfied := capability.FrozenPolicySatisfied(scope, isFrozen)
	snap.Capabilities[capability.FrozenPolicySatisfied] = satisfied
	if !satisfied {
		for _, branch := range scope {
			if isFrozen(branch) {
				snap.Issues = append(snap.Issues, capability.Issue{
					ID:                 "frozen-branch-in-scope:" + branch,
					Severity:           capability.Blocking,
					Message:            "branch " + branch + " is frozen and in this command's scope",
					Evidence:           branch,
					BlocksCapabilities: []capability.Capability{capability.FrozenPolicySatisfied},
				})
			}
		}
	}
}
