package scanner

import (
	"sort"

	"github.com/kofron/lattice/internal/canon"
)

// refEntry is one (refname, oid) pair folded into the fingerprint (spec
// §3.5: "stable hash of sorted (refname, oid) across trunk + tracked branch
// refs + structural metadata refs + config version").
type refEntry struct {
	Refname string `json:"refname"`
	Oid     string `json:"oid"`
}

// fingerprintInput is canonically marshaled and digested; ConfigVersion
// folds in config.toml's trunk/remote/forge name so a trunk rename changes the
// fingerprint even though no ref moved.
type fingerprintInput struct {
	Refs          []refEntry `json:"refs"`
	ConfigVersion string     `json:"config_version"`
}

// computeFingerprint hashes the sorted ref set plus a config version string
// (e.g. "trunk=main;remote=origin;forge=github") into a single stable digest.
func computeFingerprint(entries []refEntry, configVersion string) (string, error) {
	sorted := append([]refEntry{}, entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Refname < sorted[j].Refname })

	return canon.Digest(fingerprintInput{Refs: sorted, ConfigVersion: configVersion})
}
