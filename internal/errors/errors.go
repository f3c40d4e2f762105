// Package errors defines the closed error taxonomy used at the Engine
// boundary. Every layer below the Engine returns a typed sum
// type; the Engine is the only place that composes a human-facing message
// and picks an exit code from it.
package errors

import (
	"fmt"
)

// Kind is the closed taxonomy of user-facing error categories.
type Kind string

const (
	KindPrecondition       Kind = "precondition"       // gating produced NeedsRepair
	KindConcurrency        Kind = "concurrency"        // CasFailed, OccupancyViolation
	KindConflict           Kind = "conflict"            // Git-reported merge/rebase conflict
	KindSchemaMismatch     Kind = "schema_mismatch"     // plan_schema_version mismatch on continue
	KindRollbackFailure    Kind = "rollback_failure"    // AwaitingUser{RollbackIncomplete}
	KindVerificationFailed Kind = "verification_failed" // AwaitingUser{VerificationFailed}
	KindAuth               Kind = "auth"                // typed per host-adapter error
	KindInternal           Kind = "internal"             // unreachable invariant
)

// ExitCode maps a Kind to the process's exit code contract.
func (k Kind) ExitCode() int {
	if k == KindInternal {
		return 2
	}
	return 1
}

// LatticeError is a structured error carrying enough evidence for the
// Engine to compose a message without any layer below it doing string
// formatting for humans.
type LatticeError struct {
	Kind    Kind
	Message string
	Hint    string
	Err     error
}

func (e *LatticeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LatticeError) Unwrap() error {
	return e.Err
}

// UserFriendlyMessage renders the message plus an optional hint.
func (e *LatticeError) UserFriendlyMessage() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nSuggestion: " + e.Hint
	}
	return msg
}

// New creates a LatticeError with no wrapped cause.
func New(kind Kind, message string) *LatticeError {
	return &LatticeError{Kind: kind, Message: message}
}

// Wrap wraps an existing error with context.
func Wrap(kind Kind, message string, err error) *LatticeError {
	return &LatticeError{Kind: kind, Message: message, Err: err}
}

// WithHint attaches a hint and returns the same error for chaining.
func WithHint(err *LatticeError, hint string) *LatticeError {
	err.Hint = hint
	return err
}

// Common constructors used by the Engine when collapsing typed evidence
// from lower layers into user-facing errors.

func NeedsRepair(commandName string) *LatticeError {
	return WithHint(
		New(KindPrecondition, fmt.Sprintf("%s cannot proceed: required capabilities are absent", commandName)),
		"Run 'lattice doctor' to see the blocking issues and available fixes.",
	)
}

func CasFailed(refname, expected, actual string) *LatticeError {
	return WithHint(
		New(KindConcurrency, fmt.Sprintf("ref %s changed concurrently (expected %s, found %s)", refname, expected, actual)),
		"Re-run the command; it will re-scan current state before planning again.",
	)
}

func OccupancyViolation(branch, worktreePath string) *LatticeError {
	return WithHint(
		New(KindConcurrency, fmt.Sprintf("branch %s is checked out in another worktree", branch)),
		fmt.Sprintf("Switch away from %s in %s, or run the command from that worktree.", branch, worktreePath),
	)
}

func Paused(opID string) *LatticeError {
	return WithHint(
		New(KindConflict, fmt.Sprintf("operation %s paused: Git reported a conflict", opID)),
		"Resolve the conflict, then run 'lattice continue' (or 'lattice abort' to roll back).",
	)
}

func SchemaMismatch(opSchemaVersion, buildSchemaVersion int) *LatticeError {
	return WithHint(
		New(KindSchemaMismatch, fmt.Sprintf("operation created by schema v%d; this binary expects v%d", opSchemaVersion, buildSchemaVersion)),
		"Run 'lattice abort' or use a matching binary version.",
	)
}

func RollbackIncomplete(failedRefs []string) *LatticeError {
	return WithHint(
		New(KindRollbackFailure, fmt.Sprintf("rollback left %d ref(s) in an inconsistent state: %v", len(failedRefs), failedRefs)),
		"Run 'lattice doctor' to repair the affected refs.",
	)
}

func VerificationFailed(evidence string) *LatticeError {
	return WithHint(
		New(KindVerificationFailed, fmt.Sprintf("post-verify failed: %s", evidence)),
		"Run 'lattice doctor' to repair the affected state.",
	)
}

func AuthRequired(host string) *LatticeError {
	return WithHint(
		New(KindAuth, fmt.Sprintf("authentication required for %s", host)),
		"Run 'lattice doctor' for the install-app / re-authenticate link.",
	)
}

func Internal(message string, err error) *LatticeError {
	return Wrap(KindInternal, message, err)
}
