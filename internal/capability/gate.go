package capability

// GateResult is the outcome of evaluating a command's requirements against
// a scan. Exactly one of Ready or the NeedsRepair issue bundle is
// meaningful, discriminated by the Ready field.
type GateResult struct {
	Ready          bool
	ValidatedScope []string
	Issues         []Issue // non-empty iff !Ready
}

// Gate evaluates requirements against caps. Any requirement not satisfied
// contributes the issues that block it (falling back to a synthetic
// "missing capability" issue when none of the scan's issues name it) and
// the gate result is NeedsRepair. No command may proceed to Plan without a
// Ready result.
func Gate(caps Set, issues []Issue, requirements RequirementSet, validatedScope []string) GateResult {
	var blocking []Issue
	seen := map[string]bool{}

	for _, req := range requirements {
		if caps.Has(req) {
			continue
		}
		found := false
		for _, issue := range issues {
			if issue.blocks(req) && !seen[issue.ID] {
				blocking = append(blocking, issue)
				seen[issue.ID] = true
				found = true
			}
		}
		if !found {
			synthetic := Issue{
				ID:                 "missing-capability:" + string(req),
				Severity:           Blocking,
				Message:            "required capability " + string(req) + " is not satisfied",
				BlocksCapabilities: []Capability{req},
			}
			if !seen[synthetic.ID] {
				blocking = append(blocking, synthetic)
				seen[synthetic.ID] = true
			}
		}
	}

	if len(blocking) == 0 {
		return GateResult{Ready: true, ValidatedScope: validatedScope}
	}
	return GateResult{Ready: false, Issues: blocking}
}
