package journal

import "github.com/google/uuid"

// NewOpID generates a fresh operation id for a journal document and its
// op-state marker. Op ids are opaque to every consumer except the journal
// filename they select.
func NewOpID() string {
	return uuid.New().String()
}
