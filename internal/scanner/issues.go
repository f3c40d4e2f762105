package scanner

import (
	"fmt"
	"strings"

	"github.com/kofron/lattice/internal/capability"
)

// Issue ids are deterministic from the evidence that produced them (spec
// §4.8) so repeated scans of unchanged state produce the same id — doctor
// matches on these ids when composing fix options.

func issueMissingTrunk(trunk string) capability.Issue {
	return capability.Issue{
		ID: "missing-trunk",
		Severity: capability.Blocking,
		Message: fmt.Sprintf("configured trunk branch %q does not exist", trunk),
		Evidence: trunk,
		BlocksCapabilities: []capability.Capability{capability.TrunkKnown},
	}
}

func issueMetadataParseError(branch string, err error) capability.Issue {
	return capability.Issue{
		ID: "metadata-parse-error:" + branch,
		Severity: capability.Blocking,
		Message: fmt.Sprintf("branch %q has an unreadable metadata document: %v", branch, err),
		Evidence: err.Error(),
		BlocksCapabilities: []capability.Capability{capability.MetadataReadable},
	}
}

func issueGraphCycle(cycle []string) capability.Issue {
	return capability.Issue{
		ID: "graph-cycle:" + strings.Join(cycle, ","),
		Severity: capability.Blocking,
		Message: fmt.Sprintf("stack graph has a cycle: %s", strings.Join(cycle, " -> ")),
		Evidence: strings.Join(cycle, ","),
		BlocksCapabilities: []capability.Capability{capability.GraphValid},
	}
}

func issueMissingParentBranch(branch string) capability.Issue {
	return capability.Issue{
		ID: "missing-parent-branch:" + branch,
		Severity: capability.Blocking,
		Message: fmt.Sprintf("branch %q declares a parent that is not trunk or another tracked branch", branch),
		Evidence: branch,
		BlocksCapabilities: []capability.Capability{capability.GraphValid},
	}
}

func issueInProgressLatticeOp(opID string) capability.Issue {
	return capability.Issue{
		ID: "in-progress-operation:lattice:" + opID,
		Severity: capability.Blocking,
		Message: "a Lattice operation is in progress or awaiting conflict resolution",
		Evidence: opID,
		BlocksCapabilities: []capability.Capability{capability.NoLatticeOpInProgress},
	}
}

func issueInProgressExternalGitOp(kind string) capability.Issue {
	return capability.Issue{
		ID: "in-progress-operation:external:" + kind,
		Severity: capability.Blocking,
		Message: fmt.Sprintf("a Git %s is in progress outside Lattice", kind),
		Evidence: kind,
		BlocksCapabilities: []capability.Capability{capability.NoExternalGitOpInProgress},
	}
}

func issueNoWorkingDirectory() capability.Issue {
	return capability.Issue{
		ID: "no-working-directory",
		Severity: capability.Blocking,
		Message: "repository has no working directory (bare repository)",
		BlocksCapabilities: []capability.Capability{capability.WorkingDirectoryAvailable},
	}
}
