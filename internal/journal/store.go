package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kofron/lattice/internal/latticepaths"
)

// Store reads and writes journal documents and the op-state marker for one
// repository's lattice directory.
type Store struct {
	paths *latticepaths.Paths
}

// NewStore wraps paths for journal and op-state persistence.
func NewStore(paths *latticepaths.Paths) *Store {
	return &Store{paths: paths}
}

// WriteDocument serializes doc to its journal path, replacing whatever was
// there before. Appending an entry means: load, mutate doc.Entries, call
// WriteDocument again with the whole document — there is no partial-append
// mode, so a concurrent reader never observes a torn write.
func (s *Store) WriteDocument(doc *Document) error {
	return atomicWriteJSON(s.paths.Journal(doc.OpID), doc)
}

// ReadDocument loads the journal document for opID.
func (s *Store) ReadDocument(opID string) (*Document, error) {
	var doc Document
	if err := readJSON(s.paths.Journal(opID), &doc); err != nil {
		return nil, fmt.Errorf("read journal %s: %w", opID, err)
	}
	return &doc, nil
}

// WriteOpState replaces the op-state marker.
func (s *Store) WriteOpState(state *OpState) error {
	return atomicWriteJSON(s.paths.OpState(), state)
}

// ReadOpState loads the op-state marker, or (nil, nil) if no operation is
// in progress.
func (s *Store) ReadOpState() (*OpState, error) {
	var state OpState
	err := readJSON(s.paths.OpState(), &state)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read op-state: %w", err)
	}
	return &state, nil
}

// ClearOpState removes the op-state marker, called once an operation
// commits or fully rolls back. Safe to call when no marker exists.
func (s *Store) ClearOpState() error {
	if err := os.Remove(s.paths.OpState()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear op-state: %w", err)
	}
	return nil
}

// atomicWriteJSON writes v to path via a temp file in the same directory,
// fsync, then rename — so a crash mid-write never leaves a half-written
// document where the next read expects a whole one.
func atomicWriteJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}

	success = true
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
