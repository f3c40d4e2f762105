package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kofron/lattice/internal/canon"
	"github.com/kofron/lattice/internal/gitx"
)

// RefName returns the metadata ref for a branch.
func RefName(branch string) string {
	return "refs/branch-metadata/" + branch
}

// Store reads and writes branch metadata through a gitx.Client. It never
// caches: every call round-trips through Git, leaving the scanner as the
// only place a repo-wide snapshot of metadata is held.
type Store struct {
	git *gitx.Client
}

// NewStore builds a Store over an already-opened Git client.
func NewStore(git *gitx.Client) *Store {
	return &Store{git: git}
}

// Read fetches and strictly parses a branch's metadata document. It returns
// *NotTrackedError if no metadata ref exists, *ParseError on an unknown
// field, and *SchemaMismatchError on an unrecognized schema_version.
func (s *Store) Read(ctx context.Context, branch string) (*BranchMetadata, gitx.Oid, error) {
	ref := RefName(branch)
	oid, err := s.git.ReadRef(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	if oid == "" {
		return nil, "", &NotTrackedError{Branch: branch}
	}

	blob, err := s.git.ReadBlob(ctx, oid)
	if err != nil {
		return nil, "", err
	}

	md, err := parseStrict(blob, string(oid))
	if err != nil {
		return nil, "", err
	}
	return md, oid, nil
}

// Write serializes md canonically, stores it as a blob, and CAS-updates the
// branch's metadata ref. expectedOld must be the OID observed at scan time
// ("" for a brand-new metadata ref); there is no merge path.
func (s *Store) Write(ctx context.Context, branch string, md *BranchMetadata, expectedOld gitx.Oid, reason gitx.UpdateRefReason) (gitx.Oid, error) {
	data, err := canon.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("canonicalize metadata: %w", err)
	}

	newOid, err := s.git.HashObject(ctx, data)
	if err != nil {
		return "", err
	}

	if err := s.git.UpdateRefCas(ctx, RefName(branch), newOid, expectedOld, reason); err != nil {
		return "", err
	}
	return newOid, nil
}

// Delete removes a branch's metadata ref, guarded by its expected value —
// used when a branch is untracked or deleted.
func (s *Store) Delete(ctx context.Context, branch string, expectedOld gitx.Oid, reason gitx.UpdateRefReason) error {
	return s.git.DeleteRefCas(ctx, RefName(branch), expectedOld, reason)
}

// ParseStrict is the exported entry point to the same strict decode Read
// uses, for callers (the scanner) that enumerate metadata refs themselves
// and need per-branch parse errors rather than Read's NotTrackedError
// handling.
func ParseStrict(blob []byte, blobOid string) (*BranchMetadata, error) {
	return parseStrict(blob, blobOid)
}

// parseStrict decodes a metadata blob, rejecting unknown fields and
// unrecognized schema versions.
func parseStrict(blob []byte, blobOid string) (*BranchMetadata, error) {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.DisallowUnknownFields()

	var md BranchMetadata
	if err := dec.Decode(&md); err != nil {
		return nil, &ParseError{BlobOid: blobOid, FieldPath: unknownFieldPath(err), Err: err}
	}

	if md.SchemaVersion != SchemaVersion {
		return nil, &SchemaMismatchError{BlobOid: blobOid, Got: md.SchemaVersion}
	}
	if md.Kind != Kind {
		return nil, &ParseError{BlobOid: blobOid, FieldPath: "kind", Err: fmt.Errorf("unexpected kind %q", md.Kind)}
	}
	if err := validateVariants(&md); err != nil {
		return nil, &ParseError{BlobOid: blobOid, FieldPath: err.field, Err: err.err}
	}

	return &md, nil
}

type variantError struct {
	field string
	err   error
}

func (e *variantError) Error() string { return e.err.Error() }

func validateVariants(md *BranchMetadata) *variantError {
	switch md.Parent.Kind {
	case ParentTrunk:
		if md.Parent.Name != "" {
			return &variantError{"parent.name", fmt.Errorf("name must be empty for trunk parent")}
		}
	case ParentBranch:
		if md.Parent.Name == "" {
			return &variantError{"parent.name", fmt.Errorf("name required for branch parent")}
		}
	default:
		return &variantError{"parent.kind", fmt.Errorf("unrecognized parent kind %q", md.Parent.Kind)}
	}

	switch md.Freeze.Kind {
	case Unfrozen:
	case Frozen:
		if md.Freeze.Scope == "" || md.Freeze.Reason == "" || md.Freeze.FrozenAt == "" {
			return &variantError{"freeze", fmt.Errorf("frozen state requires scope, reason, and frozen_at")}
		}
	default:
		return &variantError{"freeze.kind", fmt.Errorf("unrecognized freeze kind %q", md.Freeze.Kind)}
	}

	switch md.PR.Kind {
	case PRNone:
	case PRLinked:
		if md.PR.Forge == "" || md.PR.Number == 0 {
			return &variantError{"pr", fmt.Errorf("linked pr requires forge and number")}
		}
	default:
		return &variantError{"pr.kind", fmt.Errorf("unrecognized pr kind %q", md.PR.Kind)}
	}

	return nil
}

// unknownFieldPath extracts the offending field name from the stdlib
// DisallowUnknownFields error text, which has no structured form.
func unknownFieldPath(err error) string {
	const marker = `unknown field "`
	msg := err.Error()
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return ""
	}
	rest := msg[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}
