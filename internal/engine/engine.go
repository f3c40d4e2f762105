// Package engine is the composition root: the only place that wires
// scanner, capability, doctor, planner, executor, and forge together into
// one command invocation. Every cmd/lattice subcommand is a Command
// implementation handed to Engine.Run; nothing outside this package opens
// a repository, builds a forge adapter, or decides when a scan has
// satisfied a command's requirements.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kofron/lattice/internal/auth"
	"github.com/kofron/lattice/internal/config"
	"github.com/kofron/lattice/internal/executor"
	"github.com/kofron/lattice/internal/gitx"
	"github.com/kofron/lattice/internal/journal"
	"github.com/kofron/lattice/internal/latticepaths"
	"github.com/kofron/lattice/internal/ledger"
	"github.com/kofron/lattice/internal/metadata"
	"github.com/kofron/lattice/internal/scanner"
)

// Engine holds every long-lived handle a command needs against one
// repository, opened once per process invocation.
type Engine struct {
	CWD     string
	Info    *gitx.RepoInfo
	Paths   *latticepaths.Paths
	Git     *gitx.Client
	Meta    *metadata.Store
	Journal *journal.Store
	Ledger  *ledger.Ledger
	Exec    *executor.Executor
	Log     *slog.Logger

	// tokenProvider and repoAuthorizer are built lazily by ensureForge on
	// the first command whose requirements touch the forge, and cached
	// for the remainder of this process.
	tokenProvider  *auth.TokenProvider
	repoAuthorizer *auth.RepoAuthorizer
}

// Open classifies cwd's repository and wires every component that reads
// or writes its state. It does not scan: a snapshot is taken fresh inside
// Run so every command sees current state, not whatever was true at
// process start.
func Open(ctx context.Context, cwd string) (*Engine, error) {
	info, err := gitx.Open(ctx, cwd)
	if err != nil {
		return nil, err
	}
	git := gitx.NewClient(cwd)
	paths := latticepaths.New(info.CommonDir)
	meta := metadata.NewStore(git)
	journalStore := journal.NewStore(paths)
	lg := ledger.New(git)
	lock, err := latticepaths.NewRepoLock(paths)
	if err != nil {
		return nil, fmt.Errorf("opening repo lock: %w", err)
	}

	return &Engine{
		CWD:     cwd,
		Info:    info,
		Paths:   paths,
		Git:     git,
		Meta:    meta,
		Journal: journalStore,
		Ledger:  lg,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Exec: &executor.Executor{
			Git:     git,
			Meta:    meta,
			Journal: journalStore,
			Ledger:  lg,
			Lock:    lock,
			WorkDir: cwd,
		},
	}, nil
}

// SetLogger replaces the Engine's structured logger, discarded by default.
// cmd/lattice calls this once, from its --debug flag, before running any
// command.
func (e *Engine) SetLogger(log *slog.Logger) {
	e.Log = log
}

// Scan takes a fresh RepoSnapshot, wired to this Engine's ledger so a
// fingerprint divergence since the last committed operation is recorded.
func (e *Engine) Scan(ctx context.Context) (*scanner.RepoSnapshot, error) {
	return scanner.Scan(ctx, e.CWD, e.Ledger)
}

// Config is a convenience accessor equivalent to Scan(ctx).Config, for
// callers (like the CLI's global flags) that need config before a command
// has decided it wants a full scan.
func (e *Engine) Config(ctx context.Context) (*config.Config, error) {
	return config.Load(e.Paths.Config())
}
