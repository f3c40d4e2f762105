package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kofron/lattice/internal/canon"
	"github.com/kofron/lattice/internal/gitx"
)

// RefName is the event-log chain's tip ref.
const RefName = "refs/lattice/event-log"

// eventFileName is the single tree entry every ledger commit carries.
const eventFileName = "event.json"

// identity is the committer Lattice uses for its own ledger commits, so
// appending an event never depends on the invoking user's git config.
var identity = gitx.Identity{Name: "lattice", Email: "lattice@localhost"}

// maxAppendRetries bounds the CAS race retry loop. A real race resolves in one or two retries; this guards
// against a stuck lock/process rather than a plausible contention level.
const maxAppendRetries = 20

// Ledger appends to and reads refs/lattice/event-log.
type Ledger struct {
	git *gitx.Client
}

// New wraps git for ledger operations.
func New(git *gitx.Client) *Ledger {
	return &Ledger{git: git}
}

// Tip returns the current chain tip, or "" if the ledger has never been
// appended to.
func (l *Ledger) Tip(ctx context.Context) (gitx.Oid, error) {
	return l.git.ReadRef(ctx, RefName)
}

// Append writes event as a new commit parented on the current tip and
// CAS-updates the ref to point at it, retrying on a lost race. Returns the
// new tip's OID.
func (l *Ledger) Append(ctx context.Context, event Event) (gitx.Oid, error) {
	blob, err := canon.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		tip, err := l.Tip(ctx)
		if err != nil {
			return "", err
		}

		blobOid, err := l.git.HashObject(ctx, blob)
		if err != nil {
			return "", err
		}

		tree, err := l.git.MakeTree(ctx, []gitx.TreeEntry{
			{Mode: "100644", Type: "blob", Oid: blobOid, Name: eventFileName},
		})
		if err != nil {
			return "", err
		}

		var parents []gitx.Oid
		if tip != "" {
			parents = []gitx.Oid{tip}
		}

		commit, err := l.git.CommitTree(ctx, tree, parents, string(event.Kind), identity)
		if err != nil {
			return "", err
		}

		err = l.git.UpdateRefCas(ctx, RefName, commit, tip, gitx.UpdateRefReason("ledger: append "+string(event.Kind)))
		if err == nil {
			return commit, nil
		}

		var casErr *gitx.CasFailedError
		if errors.As(err, &casErr) {
			continue // lost the race; retry against the new tip
		}
		return "", err
	}

	return "", &gitx.InternalError{Message: fmt.Sprintf("ledger append: exceeded %d CAS retries", maxAppendRetries)}
}

// Walk returns up to limit events starting at the current tip and following
// explicit parent pointers toward the root (most recent first). limit <= 0
// means no bound — the whole chain.
func (l *Ledger) Walk(ctx context.Context, limit int) ([]Event, error) {
	tip, err := l.Tip(ctx)
	if err != nil {
		return nil, err
	}
	if tip == "" {
		return nil, nil
	}

	var events []Event
	cur := tip
	for cur != "" {
		if limit > 0 && len(events) >= limit {
			break
		}

		tree, parents, err := l.git.ReadCommitTree(ctx, cur)
		if err != nil {
			return nil, err
		}

		entries, err := l.treeEntries(ctx, tree)
		if err != nil {
			return nil, err
		}
		blobOid, ok := entries[eventFileName]
		if !ok {
			return nil, &gitx.InternalError{Message: fmt.Sprintf("ledger commit %s missing %s", cur, eventFileName)}
		}

		blob, err := l.git.ReadBlob(ctx, blobOid)
		if err != nil {
			return nil, err
		}

		var event Event
		dec := json.NewDecoder(bytes.NewReader(blob))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&event); err != nil {
			return nil, fmt.Errorf("parse ledger event at %s: %w", cur, err)
		}
		events = append(events, event)

		if len(parents) == 0 {
			break
		}
		cur = parents[0] // the ledger is a linear chain: exactly one parent per commit after the root
	}

	return events, nil
}

// LastCommitted walks the chain back to the most recent Committed event,
// used by the Scanner to compare against the current fingerprint.
func (l *Ledger) LastCommitted(ctx context.Context) (*CommittedPayload, error) {
	tip, err := l.Tip(ctx)
	if err != nil {
		return nil, err
	}
	if tip == "" {
		return nil, nil
	}

	cur := tip
	for cur != "" {
		tree, parents, err := l.git.ReadCommitTree(ctx, cur)
		if err != nil {
			return nil, err
		}
		entries, err := l.treeEntries(ctx, tree)
		if err != nil {
			return nil, err
		}
		blobOid, ok := entries[eventFileName]
		if !ok {
			return nil, &gitx.InternalError{Message: fmt.Sprintf("ledger commit %s missing %s", cur, eventFileName)}
		}
		blob, err := l.git.ReadBlob(ctx, blobOid)
		if err != nil {
			return nil, err
		}
		var event Event
		if err := json.Unmarshal(blob, &event); err != nil {
			return nil, fmt.Errorf("parse ledger event at %s: %w", cur, err)
		}
		if event.Kind == CommittedKind && event.Committed != nil {
			return event.Committed, nil
		}
		if len(parents) == 0 {
			break
		}
		cur = parents[0]
	}
	return nil, nil
}

// treeEntries parses `git ls-tree` output for a single-level tree into a
// name->oid map. The ledger's trees are always exactly one blob deep, but
// this doesn't assume that beyond indexing by name.
func (l *Ledger) treeEntries(ctx context.Context, tree gitx.Oid) (map[string]gitx.Oid, error) {
	return l.git.ListTree(ctx, tree)
}
