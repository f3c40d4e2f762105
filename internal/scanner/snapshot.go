// Package scanner produces the canonical RepoSnapshot:
// refs, metadata, stack graph, config, worktree status, fingerprint,
// baseline capability set, and issue list. It performs exactly one
// deliberate exception to "no mutation": appending a DivergenceObserved
// ledger event when the computed fingerprint no longer matches the last
// Committed one (the ledger is evidence, never state, so this does not
// count as the Scanner mutating repository state).
package scanner

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/kofron/lattice/internal/capability"
	"github.com/kofron/lattice/internal/config"
	"github.com/kofron/lattice/internal/gitx"
	"github.com/kofron/lattice/internal/latticepaths"
	"github.com/kofron/lattice/internal/ledger"
	"github.com/kofron/lattice/internal/metadata"
)

const metadataRefPrefix = "refs/branch-metadata/"

// RepoSnapshot is the Scanner's sole output. Commands consume a
// ReadyContext (built by the Engine) that borrows one of these; nothing
// caches a snapshot across invocations.
type RepoSnapshot struct {
	Info            *gitx.RepoInfo
	GitState        *gitx.GitState
	WorktreeStatus  *gitx.WorktreeStatus
	CurrentBranch   string // "" if detached or unavailable
	LocalBranches   map[string]gitx.Oid
	TrackedBranches map[string]*metadata.BranchMetadata
	Config          *config.Config
	Trunk           string
	Graph           *Graph
	Fingerprint     string
	OpStatePresent  bool
	Capabilities    capability.Set
	Issues          []capability.Issue
}

// Scan runs the full Scanner algorithm against the
// repository rooted at cwd.
func Scan(ctx context.Context, cwd string, lg *ledger.Ledger) (*RepoSnapshot, error) {
	info, err := gitx.Open(ctx, cwd)
	if err != nil {
		return nil, err
	}
	git := gitx.NewClient(cwd)

	paths := latticepaths.New(info.CommonDir)
	cfg, err := config.Load(paths.Config())
	if err != nil {
		return nil, err
	}

	localBranches, err := git.LocalBranches(ctx)
	if err != nil {
		return nil, err
	}

	metadataRefs, err := git.RefsWithPrefix(ctx, metadataRefPrefix)
	if err != nil {
		return nil, err
	}

	var issues []capability.Issue
	tracked := map[string]*metadata.BranchMetadata{}
	for refname, oid := range metadataRefs {
		branch := refname[len(metadataRefPrefix):]
		blob, err := git.ReadBlob(ctx, oid)
		if err != nil {
			issues = append(issues, issueMetadataParseError(branch, err))
			continue
		}
		md, err := metadata.ParseStrict(blob, string(oid))
		if err != nil {
			issues = append(issues, issueMetadataParseError(branch, err))
			continue
		}
		tracked[branch] = md
	}

	graph := BuildGraph(cfg.Trunk, tracked)
	if cyc := graph.Cycle(); cyc != nil {
		issues = append(issues, issueGraphCycle(cyc))
	}
	for _, branch := range graph.DanglingParents(tracked) {
		issues = append(issues, issueMissingParentBranch(branch))
	}

	if _, trunkExists := localBranches[cfg.Trunk]; !trunkExists {
		issues = append(issues, issueMissingTrunk(cfg.Trunk))
	}

	gitState, err := git.State(ctx)
	if err != nil {
		return nil, err
	}
	if gitState.Kind != gitx.GitStateNone {
		issues = append(issues, issueInProgressExternalGitOp(string(gitState.Kind)))
	}

	opStatePresent := fileExists(paths.OpState())
	if opStatePresent {
		issues = append(issues, issueInProgressLatticeOp(""))
	}

	var worktreeStatus *gitx.WorktreeStatus
	worktreeStatus, err = git.Status(ctx, info)
	if err != nil {
		return nil, err
	}
	if info.Context == gitx.ContextBare {
		issues = append(issues, issueNoWorkingDirectory())
	}

	currentBranch := ""
	if info.Context != gitx.ContextBare {
		currentBranch, err = git.CurrentBranch(ctx)
		if err != nil {
			return nil, err
		}
	}

	fingerprintBranches := map[string]gitx.Oid{}
	for name, oid := range localBranches {
		if _, isTracked := tracked[name]; isTracked || name == cfg.Trunk {
			fingerprintBranches[name] = oid
		}
	}
	fingerprint, err := computeFingerprint(refEntries(fingerprintBranches, metadataRefs), configVersion(cfg))
	if err != nil {
		return nil, err
	}

	if lg != nil {
		if err := recordDivergenceIfAny(ctx, lg, fingerprint); err != nil {
			return nil, err
		}
	}

	caps := deriveCapabilities(info, cfg, gitState, opStatePresent, issues)

	return &RepoSnapshot{
		Info:            info,
		GitState:        gitState,
		WorktreeStatus:  worktreeStatus,
		CurrentBranch:   currentBranch,
		LocalBranches:   localBranches,
		TrackedBranches: tracked,
		Config:          cfg,
		Trunk:           cfg.Trunk,
		Graph:           graph,
		Fingerprint:     fingerprint,
		OpStatePresent:  opStatePresent,
		Capabilities:    caps,
		Issues:          issues,
	}, nil
}

// deriveCapabilities computes the baseline, target-independent capability
// set. ScopeResolved, FrozenPolicySatisfied, AuthAvailable,
// RemoteResolved, and RepoAuthorized depend on a command's target branch
// or forge identity and are folded in by the Engine once those are known,
// using capability.DownstackScope/WithUpstackScope/FrozenPolicySatisfied
// over this snapshot's Graph.
func deriveCapabilities(info *gitx.RepoInfo, cfg *config.Config, gitState *gitx.GitState, opStatePresent bool, issues []capability.Issue) capability.Set {
	metadataReadable := true
	graphValid := true
	for _, issue := range issues {
		for _, bc := range issue.BlocksCapabilities {
			if bc == capability.MetadataReadable {
				metadataReadable = false
			}
			if bc == capability.GraphValid {
				graphValid = false
			}
		}
	}

	trunkKnown := true
	for _, issue := range issues {
		if issue.ID == "missing-trunk" {
			trunkKnown = false
		}
	}

	return capability.Set{
		capability.RepoOpen:                  true,
		capability.TrunkKnown:                trunkKnown,
		capability.NoLatticeOpInProgress:      !opStatePresent,
		capability.NoExternalGitOpInProgress:  gitState.Kind == gitx.GitStateNone,
		capability.MetadataReadable:           metadataReadable,
		capability.GraphValid:                 graphValid,
		capability.WorkingDirectoryAvailable:  info.Context != gitx.ContextBare,
		capability.WorkingCopyStateKnown:      true,
	}
}

// refEntries folds local branch tips and metadata ref oids into the
// fingerprint's flat (refname, oid) list.
func refEntries(localBranches map[string]gitx.Oid, metadataRefs map[string]gitx.Oid) []refEntry {
	entries := make([]refEntry, 0, len(localBranches)+len(metadataRefs))
	for name, oid := range localBranches {
		entries = append(entries, refEntry{Refname: "refs/heads/" + name, Oid: string(oid)})
	}
	for refname, oid := range metadataRefs {
		entries = append(entries, refEntry{Refname: refname, Oid: string(oid)})
	}
	return entries
}

func configVersion(cfg *config.Config) string {
	return fmt.Sprintf("trunk=%s;remote=%s;forge=%s", cfg.Trunk, cfg.Remote, cfg.Forge.Name)
}

// recordDivergenceIfAny compares the just-computed fingerprint against the
// ledger's last Committed fingerprint, appending DivergenceObserved when
// they differ.
func recordDivergenceIfAny(ctx context.Context, lg *ledger.Ledger, current string) error {
	last, err := lg.LastCommitted(ctx)
	if err != nil {
		return err
	}
	if last == nil || last.PostFingerprint == current {
		return nil
	}

	_, err = lg.Append(ctx, ledger.Event{
		Kind:      ledger.DivergenceObservedKind,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DivergenceObserved: &ledger.DivergenceObservedPayload{
			PriorFingerprint:   last.PostFingerprint,
			CurrentFingerprint: current,
			DiffSummary:        "fingerprint mismatch since last committed operation",
		},
	})
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// sortedBranchNames is a small helper kept for callers (e.g. tests) that
// want deterministic iteration over TrackedBranches.
func sortedBranchNames(tracked map[string]*metadata.BranchMetadata) []string {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
